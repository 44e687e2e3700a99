// Package fixpoint re-runs a visitor until the tree stops changing, and
// drains the visitors scheduled during a pass, both under one iteration cap.
package fixpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/imports"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

// DefaultMaxIterations bounds passes and pending-visitor rounds.
const DefaultMaxIterations = 3

// ErrOscillation marks a rule whose passes never stabilize.
var ErrOscillation = errors.New("rule did not converge")

// OscillationError reports a rule that still changed the tree on its last
// allowed pass. It indicates a defect in the rule, not in the input.
type OscillationError struct {
	Rule       string
	Iterations int
	RootID     tree.ID
	// Diverged is the first node that differed between the last two passes.
	Diverged tree.ID
}

func (e *OscillationError) Error() string {
	return fmt.Sprintf("rule %s did not converge after %d passes (root %d, diverging node %d)",
		e.Rule, e.Iterations, e.RootID, e.Diverged)
}

func (e *OscillationError) Is(target error) bool { return target == ErrOscillation }

// Options tune a driver run.
type Options struct {
	MaxIterations int
	StarThreshold int
}

func (o Options) maxIterations() int {
	if o.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return o.MaxIterations
}

// Result is the outcome of one driver run.
type Result struct {
	Tree   *tree.Node
	Passes int
	// External holds scheduled visitors aimed at other files.
	External []*visitor.Visitor
}

// Once runs v over root a single time, drains the visitors v scheduled for
// the same file, then reconciles the import list.
func Once(ctx context.Context, v *visitor.Visitor, root *tree.Node, opts Options) (*tree.Node, []*visitor.Visitor, error) {
	ledger := imports.NewLedger(opts.StarThreshold)
	pass := cursor.NewPass(v.Name(), ledger)
	out, err := v.Run(root, pass)
	if err != nil {
		return root, nil, err
	}
	out, external, err := drain(ctx, v.Name(), out, pass.Pending(), ledger, opts)
	if err != nil {
		return root, nil, err
	}
	return ledger.Apply(out), external, nil
}

// drain runs scheduled visitors round by round. Visitors scheduled while a
// round runs form the next round.
func drain(ctx context.Context, rule string, root *tree.Node, queue []cursor.Pending, ledger *imports.Ledger, opts Options) (*tree.Node, []*visitor.Visitor, error) {
	var external []*visitor.Visitor
	for round := 0; len(queue) > 0; round++ {
		if round == opts.maxIterations() {
			names := make([]string, len(queue))
			for i, p := range queue {
				names[i] = p.Name()
			}
			return root, nil, &OscillationError{
				Rule:       rule + " (pending " + strings.Join(names, ", ") + ")",
				Iterations: round,
				RootID:     root.ID(),
			}
		}
		if err := ctx.Err(); err != nil {
			return root, nil, err
		}
		var next []cursor.Pending
		for _, p := range queue {
			pv, ok := p.(*visitor.Visitor)
			if !ok {
				return root, nil, fmt.Errorf("pending %s: unsupported visitor type %T", p.Name(), p)
			}
			if pv.Target() != "" {
				external = append(external, pv)
				continue
			}
			pass := cursor.NewPass(pv.Name(), ledger)
			out, err := pv.Run(root, pass)
			if err != nil {
				return root, nil, err
			}
			root = out
			next = append(next, pass.Pending()...)
		}
		queue = next
	}
	return root, external, nil
}

// RepeatUntilStable runs Once until a pass leaves the tree structurally
// unchanged. Reaching opts.MaxIterations passes that all changed the tree
// returns an *OscillationError together with the last tree.
func RepeatUntilStable(ctx context.Context, v *visitor.Visitor, root *tree.Node, opts Options) (Result, error) {
	var external []*visitor.Visitor
	current := root
	for pass := 1; pass <= opts.maxIterations(); pass++ {
		if err := ctx.Err(); err != nil {
			return Result{Tree: current, Passes: pass - 1}, err
		}
		out, ext, err := Once(ctx, v, current, opts)
		if err != nil {
			return Result{Tree: current, Passes: pass}, err
		}
		external = appendUnique(external, ext...)
		diff := tree.FirstDifference(current, out)
		if diff == nil {
			return Result{Tree: current, Passes: pass, External: external}, nil
		}
		if pass == opts.maxIterations() {
			return Result{Tree: out, Passes: pass, External: external}, &OscillationError{
				Rule:       v.Name(),
				Iterations: pass,
				RootID:     root.ID(),
				Diverged:   diff.ID(),
			}
		}
		current = out
	}
	return Result{Tree: current, External: external}, nil
}

func appendUnique(list []*visitor.Visitor, vs ...*visitor.Visitor) []*visitor.Visitor {
	for _, v := range vs {
		dup := false
		for _, have := range list {
			if have.Name() == v.Name() && have.Target() == v.Target() {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
