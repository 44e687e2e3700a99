// Package cursor tracks the path from a tree's root to the node under visit
// and carries messages between visit steps of one traversal.
package cursor

import (
	"github.com/oxhq/quarkmig/internal/imports"
	"github.com/oxhq/quarkmig/internal/tree"
)

// Pending is a visitor scheduled to run after the current pass.
type Pending interface {
	Name() string
}

// Pass is the state shared by every cursor of a single traversal.
type Pass struct {
	Rule    string
	Imports *imports.Ledger

	pending []Pending
}

// NewPass starts the state for one traversal of rule.
func NewPass(rule string, ledger *imports.Ledger) *Pass {
	if ledger == nil {
		ledger = imports.NewLedger(imports.DefaultStarThreshold)
	}
	return &Pass{Rule: rule, Imports: ledger}
}

// Pending returns the visitors scheduled during the pass.
func (p *Pass) Pending() []Pending {
	return p.pending
}

// Cursor is one frame of the root-to-node path. Frames are created on
// descent and dropped when the walk leaves the node, taking their messages
// with them.
type Cursor struct {
	parent *Cursor
	node   *tree.Node
	msgs   map[string]any
	pass   *Pass
}

// New returns the root frame of a traversal.
func New(root *tree.Node, pass *Pass) *Cursor {
	return &Cursor{node: root, pass: pass}
}

// Descend returns the frame for child n below c.
func (c *Cursor) Descend(n *tree.Node) *Cursor {
	return &Cursor{parent: c, node: n, pass: c.pass}
}

// Node returns the node of this frame. Before the children of the node are
// visited it is the input node; afterwards the walker updates it.
func (c *Cursor) Node() *tree.Node { return c.node }

// Update replaces the node of this frame. Only walkers should call it.
func (c *Cursor) Update(n *tree.Node) { c.node = n }

// Parent returns the enclosing frame, nil at the root.
func (c *Cursor) Parent() *Cursor { return c.parent }

// Pass returns the traversal state.
func (c *Cursor) Pass() *Pass { return c.pass }

// Imports returns the file's import ledger.
func (c *Cursor) Imports() *imports.Ledger { return c.pass.Imports }

// ParentNode returns the node of the enclosing frame or nil.
func (c *Cursor) ParentNode() *tree.Node {
	if c.parent == nil {
		return nil
	}
	return c.parent.node
}

// Root returns the root frame.
func (c *Cursor) Root() *Cursor {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// NearestAncestor returns the closest strict ancestor frame whose node has
// one of the given kinds.
func (c *Cursor) NearestAncestor(kinds ...tree.Kind) *Cursor {
	return c.parent.FirstAncestor(tree.OfKind(kinds...))
}

// FirstAncestor returns the closest frame, starting at c itself, whose node
// satisfies pred.
func (c *Cursor) FirstAncestor(pred func(*tree.Node) bool) *Cursor {
	for f := c; f != nil; f = f.parent {
		if pred(f.node) {
			return f
		}
	}
	return nil
}

// Path returns the nodes from the root down to c.
func (c *Cursor) Path() []*tree.Node {
	var path []*tree.Node
	for f := c; f != nil; f = f.parent {
		path = append(path, f.node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Depth returns the number of frames above c.
func (c *Cursor) Depth() int {
	d := 0
	for f := c.parent; f != nil; f = f.parent {
		d++
	}
	return d
}

// PutMessage stores a message on this frame.
func (c *Cursor) PutMessage(key string, value any) {
	if c.msgs == nil {
		c.msgs = make(map[string]any)
	}
	c.msgs[key] = value
}

// PutMessageOnNearest stores a message on the closest frame, c included,
// whose node has one of the given kinds. It reports whether such a frame
// exists.
func (c *Cursor) PutMessageOnNearest(key string, value any, kinds ...tree.Kind) bool {
	f := c.FirstAncestor(tree.OfKind(kinds...))
	if f == nil {
		return false
	}
	f.PutMessage(key, value)
	return true
}

// Message returns the value stored under key on the closest frame holding it.
func (c *Cursor) Message(key string) (any, bool) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.msgs[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// PollMessage is Message followed by removal from the holding frame.
func (c *Cursor) PollMessage(key string) (any, bool) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.msgs[key]; ok {
			delete(f.msgs, key)
			return v, true
		}
	}
	return nil, false
}

// DoAfter schedules p to run over the tree once the current pass ends.
func (c *Cursor) DoAfter(p Pending) {
	c.pass.pending = append(c.pass.pending, p)
}

// Get is the typed form of Message.
func Get[T any](c *Cursor, key string) (T, bool) {
	v, ok := c.Message(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Poll is the typed form of PollMessage.
func Poll[T any](c *Cursor, key string) (T, bool) {
	v, ok := c.PollMessage(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Append adds value to the slice message stored under key on the frame that
// already holds it, or on c when none does.
func Append[T any](c *Cursor, key string, value T) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.msgs[key]; ok {
			if s, ok := v.([]T); ok {
				f.msgs[key] = append(s, value)
				return
			}
		}
	}
	c.PutMessage(key, []T{value})
}
