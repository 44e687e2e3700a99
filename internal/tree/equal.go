package tree

import "slices"

// Equal reports whether a and b are structurally identical. Node ids are not
// compared, so a tree and its re-parse are equal when they print the same
// and carry the same type metadata.
func Equal(a, b *Node) bool {
	return FirstDifference(a, b) == nil
}

// FirstDifference returns the node of a at which a and b first diverge in a
// pre-order walk, or nil when they are equal. When a is nil and b is not,
// b is returned.
func FirstDifference(a, b *Node) *Node {
	if a == b {
		return nil
	}
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.kind != b.kind || a.syntax != b.syntax || a.name != b.name ||
		a.prefix != b.prefix || a.text != b.text || !equalType(a.typ, b.typ) ||
		len(a.children) != len(b.children) {
		return a
	}
	for i := range a.children {
		if d := FirstDifference(a.children[i], b.children[i]); d != nil {
			return d
		}
	}
	return nil
}

func equalType(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.FQN != b.FQN || !slices.Equal(a.Supertypes, b.Supertypes) {
		return false
	}
	if (a.Method == nil) != (b.Method == nil) {
		return false
	}
	if a.Method == nil {
		return true
	}
	return a.Method.Declaring == b.Method.Declaring &&
		a.Method.Name == b.Method.Name &&
		slices.Equal(a.Method.DeclaringSupertypes, b.Method.DeclaringSupertypes) &&
		slices.Equal(a.Method.Params, b.Method.Params)
}
