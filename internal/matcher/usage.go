package matcher

import "github.com/oxhq/quarkmig/internal/tree"

// TypeMatcher matches any node whose resolved type is the given type, or
// with includeSubtypes one of its subtypes.
type TypeMatcher struct {
	typ             *TypePattern
	includeSubtypes bool
}

// Type compiles a type usage matcher.
func Type(pattern string, includeSubtypes bool) (*TypeMatcher, error) {
	tp, err := CompileType(pattern)
	if err != nil {
		return nil, err
	}
	return &TypeMatcher{typ: tp, includeSubtypes: includeSubtypes}, nil
}

// MustType is Type for patterns known at build time.
func MustType(pattern string, includeSubtypes bool) *TypeMatcher {
	m, err := Type(pattern, includeSubtypes)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether n's resolved type satisfies the matcher.
func (m *TypeMatcher) Matches(n *tree.Node) bool {
	if n == nil || n.Type() == nil {
		return false
	}
	t := n.Type()
	if m.typ.Match(t.FQN) {
		return true
	}
	if !m.includeSubtypes {
		return false
	}
	for _, st := range t.Supertypes {
		if m.typ.Match(st) {
			return true
		}
	}
	return false
}

func (m *TypeMatcher) String() string {
	if m.includeSubtypes {
		return m.typ.String() + "+"
	}
	return m.typ.String()
}
