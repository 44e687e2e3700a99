package tree

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}

// Any reports whether some node under n (n included) satisfies pred.
func Any(n *Node, pred func(*Node) bool) bool {
	found := false
	Walk(n, func(x *Node) bool {
		if found {
			return false
		}
		if pred(x) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Find returns the first node in pre-order satisfying pred.
func Find(n *Node, pred func(*Node) bool) *Node {
	var hit *Node
	Walk(n, func(x *Node) bool {
		if hit != nil {
			return false
		}
		if pred(x) {
			hit = x
			return false
		}
		return true
	})
	return hit
}

// Collect returns every node under n satisfying pred, in pre-order.
func Collect(n *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Walk(n, func(x *Node) bool {
		if pred(x) {
			out = append(out, x)
		}
		return true
	})
	return out
}

// OfKind is a predicate matching any of the given kinds.
func OfKind(kinds ...Kind) func(*Node) bool {
	return func(n *Node) bool {
		for _, k := range kinds {
			if n.kind == k {
				return true
			}
		}
		return false
	}
}

// Replace returns root with the node carrying id replaced by repl. A nil
// repl removes the node. Untouched subtrees are shared.
func Replace(root *Node, id ID, repl *Node) *Node {
	out, _ := replace(root, id, repl)
	return out
}

func replace(n *Node, id ID, repl *Node) (*Node, bool) {
	if n.id == id {
		return repl, true
	}
	for i, c := range n.children {
		nc, ok := replace(c, id, repl)
		if !ok {
			continue
		}
		if nc == nil {
			return n.Remove(i), true
		}
		return n.WithChild(i, nc), true
	}
	return n, false
}
