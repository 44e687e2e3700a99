package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/oxhq/quarkmig/internal/fixpoint"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

// Policy decides what a rule failure does to the file it failed on.
type Policy string

const (
	// SkipRule keeps the file as it was before the failing rule and goes on
	// with the next rule.
	SkipRule Policy = "skip-rule"
	// AbortFile reverts the file to its original tree and applies no
	// further rules to it.
	AbortFile Policy = "abort-file"
)

// Options tune Apply.
type Options struct {
	Workers       int
	MaxIterations int
	StarThreshold int
	OnError       Policy
	Logger        *slog.Logger
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

func (o Options) fixpoint() fixpoint.Options {
	return fixpoint.Options{MaxIterations: o.MaxIterations, StarThreshold: o.StarThreshold}
}

// Outcome is what the rules did to one file.
type Outcome struct {
	Path     string
	Language Language
	Original *tree.Node
	Tree     *tree.Node
	// Applied lists the rules that changed the file, in the order they ran.
	Applied []string
	Errors  []*RuleError
	Aborted bool
}

// Changed reports whether the final tree prints differently from the
// original.
func (o *Outcome) Changed() bool {
	return o.Tree.String() != o.Original.String()
}

func (o *Outcome) file() *File {
	return &File{Path: o.Path, Language: o.Language, Tree: o.Tree}
}

type engine struct {
	opts     Options
	log      *slog.Logger
	outcomes []*Outcome
	byPath   map[string]*Outcome
}

// Apply runs rules over files in order. Files within one rule are handled
// concurrently; a rule only starts once the previous one finished with
// every file. Rule failures are recorded on the outcome of the file they
// happened in; the returned error is reserved for cancellation and for
// scanners that cannot be frozen. The input files are not modified.
func Apply(ctx context.Context, rules []Rule, files []*File, opts Options) ([]*Outcome, error) {
	e := &engine{opts: opts, log: opts.Logger, byPath: map[string]*Outcome{}}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	for _, f := range files {
		o := &Outcome{Path: f.Path, Language: f.Language, Original: f.Tree, Tree: f.Tree}
		e.outcomes = append(e.outcomes, o)
		e.byPath[f.Path] = o
	}

	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return e.outcomes, err
		}
		var err error
		switch r := r.(type) {
		case ScanningRecipe:
			err = e.scanning(ctx, r)
		case Recipe:
			err = e.stateless(ctx, r)
		default:
			err = fmt.Errorf("%w: %s (%T)", ErrUnsupportedRule, r.Name(), r)
		}
		if err != nil {
			return e.outcomes, err
		}
	}
	return e.outcomes, nil
}

// each calls fn for every file still taking rules, on at most
// opts.Workers goroutines.
func (e *engine) each(ctx context.Context, fn func(i int, o *Outcome) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers())
	for i, o := range e.outcomes {
		if o.Aborted {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i, o)
		})
	}
	return g.Wait()
}

func (e *engine) stateless(ctx context.Context, r Recipe) error {
	pre := r.Precondition()
	v := r.Visitor()
	repeat := false
	if rp, ok := r.(Repeating); ok {
		repeat = rp.Repeat()
	}
	external := make([][]*visitor.Visitor, len(e.outcomes))
	err := e.each(ctx, func(i int, o *Outcome) error {
		if pre != nil && !pre(o.Tree) {
			return nil
		}
		ext, err := e.visit(ctx, r.Name(), o, v, repeat)
		external[i] = ext
		return err
	})
	if err != nil {
		return err
	}
	return e.drainExternal(ctx, r.Name(), external)
}

func (e *engine) scanning(ctx context.Context, r ScanningRecipe) error {
	sc := r.Scanner()
	err := e.each(ctx, func(_ int, o *Outcome) error {
		if err := sc.Scan(o.file()); err != nil {
			e.fail(o, r.Name(), fmt.Errorf("scan: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := sc.Freeze(); err != nil {
		return fmt.Errorf("freeze %s: %w", r.Name(), err)
	}

	external := make([][]*visitor.Visitor, len(e.outcomes))
	err = e.each(ctx, func(i int, o *Outcome) error {
		v := sc.Transformer(o.file())
		if v == nil {
			return nil
		}
		ext, err := e.visit(ctx, r.Name(), o, v, false)
		external[i] = ext
		return err
	})
	if err == nil {
		err = e.drainExternal(ctx, r.Name(), external)
	}
	if cerr := sc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", r.Name(), cerr)
	}
	return err
}

// visit runs v over one file. Only cancellation is returned; rule failures
// are recorded on o.
func (e *engine) visit(ctx context.Context, rule string, o *Outcome, v *visitor.Visitor, repeat bool) ([]*visitor.Visitor, error) {
	var (
		out *tree.Node
		ext []*visitor.Visitor
		err error
	)
	if repeat {
		var res fixpoint.Result
		res, err = fixpoint.RepeatUntilStable(ctx, v, o.Tree, e.opts.fixpoint())
		out, ext = res.Tree, res.External
	} else {
		out, ext, err = fixpoint.Once(ctx, v, o.Tree, e.opts.fixpoint())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.fail(o, rule, err)
		return nil, nil
	}
	e.commit(o, rule, out)
	return ext, nil
}

func (e *engine) commit(o *Outcome, rule string, out *tree.Node) {
	if out == o.Tree || tree.FirstDifference(o.Tree, out) == nil {
		return
	}
	o.Tree = out
	if len(o.Applied) == 0 || o.Applied[len(o.Applied)-1] != rule {
		o.Applied = append(o.Applied, rule)
	}
	e.log.Debug("rule changed file", "rule", rule, "path", o.Path)
}

func (e *engine) fail(o *Outcome, rule string, err error) {
	o.Errors = append(o.Errors, &RuleError{Path: o.Path, Rule: rule, Err: err})
	e.log.Warn("rule failed", "rule", rule, "path", o.Path, "policy", e.policy(), "error", err)
	if e.policy() == AbortFile {
		o.Tree = o.Original
		o.Applied = nil
		o.Aborted = true
	}
}

func (e *engine) policy() Policy {
	if e.opts.OnError == AbortFile {
		return AbortFile
	}
	return SkipRule
}

// drainExternal runs the visitors a rule scheduled for other files, one
// target file at a time. Visitors they schedule in turn form the next
// round, up to the iteration cap.
func (e *engine) drainExternal(ctx context.Context, rule string, scheduled [][]*visitor.Visitor) error {
	var queue []*visitor.Visitor
	for _, vs := range scheduled {
		queue = append(queue, vs...)
	}
	limit := e.opts.fixpoint().MaxIterations
	if limit <= 0 {
		limit = fixpoint.DefaultMaxIterations
	}
	for round := 0; len(queue) > 0; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if round == limit {
			for _, v := range queue {
				if o, ok := e.byPath[v.Target()]; ok {
					e.fail(o, rule, &fixpoint.OscillationError{Rule: rule + " (pending " + v.Name() + ")", Iterations: round, RootID: o.Tree.ID()})
				}
			}
			return nil
		}
		var next []*visitor.Visitor
		for _, v := range queue {
			o, ok := e.byPath[v.Target()]
			if !ok {
				e.log.Warn("dropping scheduled visitor", "rule", rule, "visitor", v.Name(), "error", fmt.Errorf("%w: %s", ErrUnknownTarget, v.Target()))
				continue
			}
			if o.Aborted {
				continue
			}
			ext, err := e.visit(ctx, rule, o, v.For(""), false)
			if err != nil {
				return err
			}
			next = append(next, ext...)
		}
		queue = next
	}
	return nil
}

// Failed reports whether any outcome carries an error matching target.
func Failed(outcomes []*Outcome, target error) bool {
	for _, o := range outcomes {
		for _, err := range o.Errors {
			if errors.Is(err, target) {
				return true
			}
		}
	}
	return false
}
