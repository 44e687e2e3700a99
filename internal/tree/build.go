package tree

// New creates an inner node with a fresh id.
func New(kind Kind, syntax string, children ...*Node) *Node {
	return &Node{id: NextID(), kind: kind, syntax: syntax, children: children}
}

// Leaf creates a leaf node with a fresh id.
func Leaf(kind Kind, syntax, prefix, text string) *Node {
	return &Node{id: NextID(), kind: kind, syntax: syntax, prefix: prefix, text: text}
}

// Token creates an anonymous token leaf whose syntax is its own text.
func Token(prefix, text string) *Node {
	return Leaf(KindToken, text, prefix, text)
}

// Renumber returns a deep copy of n where every node has a fresh id. It is
// used when one synthesized subtree is spliced into several places.
func Renumber(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := n.clone()
	c.id = NextID()
	if len(n.children) > 0 {
		c.children = make([]*Node, len(n.children))
		for i, ch := range n.children {
			c.children[i] = Renumber(ch)
		}
	}
	return c
}
