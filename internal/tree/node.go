// Package tree holds the immutable, structurally shared syntax tree that every
// rule reads and rewrites. Java sources and XML manifests share the same Node
// type and differ only in the kinds the adapters assign.
package tree

import (
	"slices"
	"sync/atomic"
)

// ID identifies a node across With* copies within one process.
type ID uint64

var lastID atomic.Uint64

// NextID returns a fresh, process-unique node id.
func NextID() ID {
	return ID(lastID.Add(1))
}

// Method describes a resolved method call or declaration.
type Method struct {
	Declaring string
	// DeclaringSupertypes lists the supertypes of Declaring, used to match
	// overrides.
	DeclaringSupertypes []string
	Name                string
	Params              []string
}

// Type is the resolved type metadata attached to a node by the host parser.
// Absent metadata (nil) means the parser could not resolve the node.
type Type struct {
	FQN        string
	Supertypes []string
	Method     *Method
}

// IsAssignableTo reports whether t is fqn or one of its supertypes.
func (t *Type) IsAssignableTo(fqn string) bool {
	if t == nil {
		return false
	}
	return t.FQN == fqn || slices.Contains(t.Supertypes, fqn)
}

// Node is one syntactic unit. Leaves carry text, inner nodes carry children.
// A node's prefix holds the whitespace and comments that precede it.
type Node struct {
	id       ID
	kind     Kind
	syntax   string
	name     string
	prefix   string
	text     string
	children []*Node
	typ      *Type
}

func (n *Node) ID() ID         { return n.id }
func (n *Node) Kind() Kind     { return n.kind }
func (n *Node) Syntax() string { return n.syntax }
func (n *Node) Name() string   { return n.name }
func (n *Node) Prefix() string { return n.prefix }
func (n *Node) Text() string   { return n.text }
func (n *Node) Type() *Type    { return n.typ }
func (n *Node) Len() int       { return len(n.children) }
func (n *Node) IsLeaf() bool   { return len(n.children) == 0 }

// Children returns the child list. Callers must not modify it.
func (n *Node) Children() []*Node { return n.children }

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// FQN returns the resolved fully qualified name or "".
func (n *Node) FQN() string {
	if n.typ == nil {
		return ""
	}
	return n.typ.FQN
}

func (n *Node) clone() *Node {
	c := *n
	return &c
}

// WithPrefix returns a copy of n with the given prefix.
func (n *Node) WithPrefix(prefix string) *Node {
	if n.prefix == prefix {
		return n
	}
	c := n.clone()
	c.prefix = prefix
	return c
}

// WithText returns a copy of the leaf n with new text.
func (n *Node) WithText(text string) *Node {
	if n.text == text {
		return n
	}
	c := n.clone()
	c.text = text
	return c
}

// WithName returns a copy of n with the given name.
func (n *Node) WithName(name string) *Node {
	if n.name == name {
		return n
	}
	c := n.clone()
	c.name = name
	return c
}

// WithType returns a copy of n carrying t.
func (n *Node) WithType(t *Type) *Node {
	c := n.clone()
	c.typ = t
	return c
}

// WithChildren returns a copy of n with the given children. The slice is
// owned by the returned node afterwards.
func (n *Node) WithChildren(children []*Node) *Node {
	c := n.clone()
	c.children = children
	return c
}

// WithChild replaces the i-th child.
func (n *Node) WithChild(i int, child *Node) *Node {
	if n.children[i] == child {
		return n
	}
	children := slices.Clone(n.children)
	children[i] = child
	return n.WithChildren(children)
}

// Insert returns a copy of n with nodes inserted before index i.
func (n *Node) Insert(i int, nodes ...*Node) *Node {
	return n.WithChildren(slices.Insert(slices.Clone(n.children), i, nodes...))
}

// Append returns a copy of n with nodes appended.
func (n *Node) Append(nodes ...*Node) *Node {
	return n.Insert(len(n.children), nodes...)
}

// Remove returns a copy of n without its i-th child. See CarryPrefix for how
// the removed child's prefix is redistributed.
func (n *Node) Remove(i int) *Node {
	children := slices.Clone(n.children)
	removed := children[i]
	children = slices.Delete(children, i, i+1)
	if i < len(children) {
		children[i] = CarryPrefix(removed, children[i], i == 0)
	}
	return n.WithChildren(children)
}

// CarryPrefix returns next adjusted for the removal of the sibling right
// before it. A removed first child, or a removed sibling of the same kind,
// hands its prefix over so the layout of the list is kept.
func CarryPrefix(removed, next *Node, first bool) *Node {
	if first || removed.kind == next.kind {
		return next.WithPrefix(removed.prefix)
	}
	return next
}

// IndexOf returns the index of the child with the given id, or -1.
func (n *Node) IndexOf(id ID) int {
	for i, c := range n.children {
		if c.id == id {
			return i
		}
	}
	return -1
}

// FirstChild returns the first child of one of the given kinds.
func (n *Node) FirstChild(kinds ...Kind) *Node {
	for _, c := range n.children {
		if slices.Contains(kinds, c.kind) {
			return c
		}
	}
	return nil
}

// ChildrenOf returns the children of one of the given kinds in order.
func (n *Node) ChildrenOf(kinds ...Kind) []*Node {
	var out []*Node
	for _, c := range n.children {
		if slices.Contains(kinds, c.kind) {
			out = append(out, c)
		}
	}
	return out
}

// FirstToken returns the first child leaf whose text is tok.
func (n *Node) FirstToken(tok string) (int, *Node) {
	for i, c := range n.children {
		if c.IsLeaf() && c.text == tok {
			return i, c
		}
	}
	return -1, nil
}
