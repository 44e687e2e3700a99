// Package visitor implements the structural tree walk every rule runs on.
// Handlers are registered per node kind in fixed-size tables, so a kind
// without a handler passes through untouched and children are always visited
// before their parent's post-order handler runs.
package visitor

import (
	"errors"
	"fmt"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/tree"
)

// ErrUnknownKind is returned when the walk meets a node outside the closed
// kind set.
var ErrUnknownKind = errors.New("unknown node kind")

// Func handles one node. Returning n itself means no change, a different
// node replaces n, and nil deletes n from its parent.
type Func func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error)

// Visitor is a named set of per-kind handlers.
type Visitor struct {
	name   string
	target string
	pre    [tree.KindCount]Func
	post   [tree.KindCount]Func
}

// New creates a visitor with no handlers.
func New(name string) *Visitor {
	return &Visitor{name: name}
}

// Name returns the visitor name, used in errors and logs.
func (v *Visitor) Name() string { return v.name }

// Target returns the file this visitor was scheduled for, "" meaning the
// file whose pass scheduled it.
func (v *Visitor) Target() string { return v.target }

// For returns a copy of v scheduled against the file at path.
func (v *Visitor) For(path string) *Visitor {
	c := *v
	c.target = path
	return &c
}

// On registers fn as a post-order handler for the given kinds. A second
// handler for the same kind runs on the first one's result.
func (v *Visitor) On(fn Func, kinds ...tree.Kind) *Visitor {
	for _, k := range kinds {
		v.post[k] = chain(v.post[k], fn)
	}
	return v
}

// OnEnter registers fn as a pre-order handler, run before the node's
// children are visited.
func (v *Visitor) OnEnter(fn Func, kinds ...tree.Kind) *Visitor {
	for _, k := range kinds {
		v.pre[k] = chain(v.pre[k], fn)
	}
	return v
}

// Handles reports whether v has a handler for k.
func (v *Visitor) Handles(k tree.Kind) bool {
	return k.Valid() && (v.pre[k] != nil || v.post[k] != nil)
}

func chain(first, next Func) Func {
	if first == nil {
		return next
	}
	return func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		out, err := first(c, n)
		if err != nil || out == nil {
			return out, err
		}
		c.Update(out)
		return next(c, out)
	}
}

// Error reports a handler failure with the node it failed on.
type Error struct {
	Visitor string
	NodeID  tree.ID
	Kind    tree.Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("visitor %s: %s node %d: %v", e.Visitor, e.Kind, e.NodeID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (v *Visitor) wrap(n *tree.Node, err error) error {
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Visitor: v.name, NodeID: n.ID(), Kind: n.Kind(), Err: err}
}

// Run performs one pass of v over root. Visitors scheduled with DoAfter are
// left on pass for the caller to drain.
func (v *Visitor) Run(root *tree.Node, pass *cursor.Pass) (*tree.Node, error) {
	c := cursor.New(root, pass)
	out, err := v.visit(c, root)
	if err != nil {
		return root, err
	}
	return out, nil
}

// Visit walks the subtree n as a child of the frame parent. Handlers use it
// to run a helper visitor over part of the tree within the same pass.
func (v *Visitor) Visit(parent *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	return v.visit(parent.Descend(n), n)
}

func (v *Visitor) visit(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	k := n.Kind()
	if !k.Valid() {
		return n, v.wrap(n, ErrUnknownKind)
	}
	if fn := v.pre[k]; fn != nil {
		out, err := fn(c, n)
		if err != nil {
			return n, v.wrap(n, err)
		}
		if out == nil {
			return nil, nil
		}
		n = out
		c.Update(n)
	}
	if n.Len() > 0 {
		out, err := v.children(c, n)
		if err != nil {
			return n, err
		}
		if out == nil {
			return nil, nil
		}
		n = out
		c.Update(n)
	}
	if fn := v.post[n.Kind()]; fn != nil {
		out, err := fn(c, n)
		if err != nil {
			return n, v.wrap(n, err)
		}
		return out, nil
	}
	return n, nil
}

// children visits every child of n in order. A node whose children were all
// deleted is deleted too.
func (v *Visitor) children(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	var (
		out        []*tree.Node
		changed    bool
		carry      *tree.Node
		carryFirst bool
	)
	for i, child := range n.Children() {
		res, err := v.visit(c.Descend(child), child)
		if err != nil {
			return n, err
		}
		if res != child && !changed {
			changed = true
			out = append(out, n.Children()[:i]...)
		}
		if res == nil {
			removed := child
			if carry != nil {
				removed = tree.CarryPrefix(carry, child, carryFirst)
			}
			carry, carryFirst = removed, len(out) == 0
			continue
		}
		if carry != nil {
			res = tree.CarryPrefix(carry, res, carryFirst)
			carry = nil
		}
		if changed {
			out = append(out, res)
		}
	}
	if !changed {
		return n, nil
	}
	if len(out) == 0 {
		return nil, nil
	}
	return n.WithChildren(out), nil
}
