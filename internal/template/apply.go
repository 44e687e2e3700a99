package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/tree"
)

// Apply parses the fragment with bindings in the file under c, splices it
// at coord and records the import changes on the pass ledger. When the
// target is already in the shape the fragment describes, the target is
// returned unchanged. On failure the target is returned with a
// *SynthesisError.
func (t *Template) Apply(c *cursor.Cursor, coord Coordinate, bindings ...any) (*tree.Node, error) {
	if coord.target == nil {
		return nil, t.fail(c, nil, fmt.Errorf("%w: no target", ErrBadCoordinate))
	}
	if t.err != nil {
		return coord.target, t.fail(c, coord.target, t.err)
	}
	var (
		out *tree.Node
		err error
	)
	switch coord.mode {
	case modeReplace:
		out, err = t.replace(c, coord.target, bindings)
	case modeBefore:
		out, err = t.before(c, coord.target, coord.child, bindings)
	case modeAddAnnotation:
		out, err = t.addAnnotation(c, coord.target, coord.cmp, bindings)
	case modeReplaceArguments:
		out, err = t.replaceArguments(c, coord.target, bindings)
	default:
		err = fmt.Errorf("%w: %s", ErrBadCoordinate, coord.mode)
	}
	if err != nil {
		return coord.target, t.fail(c, coord.target, err)
	}
	return out, nil
}

func (t *Template) fail(c *cursor.Cursor, target *tree.Node, err error) error {
	var se *SynthesisError
	if errors.As(err, &se) {
		return err
	}
	se = &SynthesisError{Fragment: t.source, Err: err}
	if c != nil {
		se.Rule = c.Pass().Rule
	}
	if target != nil {
		se.NodeID = target.ID()
	}
	return se
}

// fragment renders, parses and fills the template. The returned set holds
// the ids of the spliced bindings.
func (t *Template) fragment(c *cursor.Cursor, ctx Context, wrap func(string) string, bindings []any) (*tree.Node, map[tree.ID]bool, error) {
	src, holes, err := t.render(bindings)
	if err != nil {
		return nil, nil, err
	}
	if wrap != nil {
		src = wrap(src)
	}
	if t.parser == nil {
		return nil, nil, fmt.Errorf("%w: no parser configured", ErrParse)
	}
	req := Request{Source: src, Context: ctx, Imports: t.imports}
	if c != nil {
		req.File = c.Root().Node()
	}
	frag, err := t.parser.ParseFragment(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if frag == nil {
		return nil, nil, fmt.Errorf("%w: empty fragment", ErrParse)
	}
	used := map[string]bool{}
	bound := map[tree.ID]bool{}
	frag = fill(frag, holes, used, bound)
	for name := range holes {
		if !used[name] {
			return nil, nil, fmt.Errorf("%w: placeholder %s lost while parsing", ErrParse, name)
		}
	}
	return frag.WithPrefix(""), bound, nil
}

func (t *Template) replace(c *cursor.Cursor, target *tree.Node, bindings []any) (*tree.Node, error) {
	frag, bound, err := t.fragment(c, t.context, nil, bindings)
	if err != nil {
		return nil, err
	}
	frag = reindent(frag, lineIndent(c, target), bound).WithPrefix(target.Prefix())
	if frag.Source() == target.Source() {
		return target, nil
	}
	t.recordImports(c, target)
	return frag, nil
}

func (t *Template) before(c *cursor.Cursor, container, child *tree.Node, bindings []any) (*tree.Node, error) {
	if child == nil {
		return nil, fmt.Errorf("%w: no anchor child", ErrBadCoordinate)
	}
	idx := container.IndexOf(child.ID())
	if idx < 0 {
		return nil, fmt.Errorf("%w: node %d is not a child of %d", ErrBadCoordinate, child.ID(), container.ID())
	}
	frag, bound, err := t.fragment(c, t.context, nil, bindings)
	if err != nil {
		return nil, err
	}
	indent := child.Indent()
	frag = reindent(frag, indent, bound)
	if prev := container.Child(idx - 1); prev != nil && prev.Source() == frag.Source() {
		return container, nil
	}
	t.recordImports(c, nil)
	out := container.WithChild(idx, child.WithPrefix("\n"+indent))
	return out.Insert(idx, frag.WithPrefix(child.Prefix())), nil
}

func (t *Template) addAnnotation(c *cursor.Cursor, decl *tree.Node, cmp func(a, b *tree.Node) int, bindings []any) (*tree.Node, error) {
	if !decl.Kind().IsDeclaration() || decl.Len() == 0 {
		return nil, fmt.Errorf("%w: %s cannot carry annotations", ErrBadCoordinate, decl.Kind())
	}
	ann, _, err := t.fragment(c, Annotation, nil, bindings)
	if err != nil {
		return nil, err
	}
	if ann.Kind() != tree.KindAnnotation {
		return nil, fmt.Errorf("%w: fragment is a %s, not an annotation", ErrParse, ann.Kind())
	}
	sep := "\n" + decl.Indent()
	if decl.Kind() == tree.KindParameter {
		sep = " "
	}

	modsIdx := -1
	for i, ch := range decl.Children() {
		if ch.Kind() == tree.KindModifiers {
			modsIdx = i
			break
		}
	}
	if modsIdx < 0 {
		first := decl.Child(0)
		mods := tree.New(tree.KindModifiers, "modifiers", ann).WithPrefix(first.Prefix())
		t.recordImports(c, nil)
		return decl.WithChild(0, first.WithPrefix(sep)).Insert(0, mods), nil
	}

	mods := decl.Child(modsIdx)
	at, lastAnn := -1, -1
	for i, ch := range mods.Children() {
		if ch.Kind() != tree.KindAnnotation {
			continue
		}
		if ch.Source() == ann.Source() {
			return decl, nil
		}
		lastAnn = i
		if at < 0 && cmp != nil && cmp(ann, ch) < 0 {
			at = i
		}
	}
	if at < 0 {
		at = lastAnn + 1
	}
	if at == 0 {
		first := mods.Child(0)
		mods = mods.WithChild(0, first.WithPrefix(sep)).Insert(0, ann.WithPrefix(first.Prefix()))
	} else {
		mods = mods.Insert(at, ann.WithPrefix(sep))
	}
	t.recordImports(c, nil)
	return decl.WithChild(modsIdx, mods), nil
}

func (t *Template) replaceArguments(c *cursor.Cursor, n *tree.Node, bindings []any) (*tree.Node, error) {
	var (
		ctx  Context
		wrap func(string) string
	)
	switch n.Kind() {
	case tree.KindAnnotation:
		ctx = Annotation
		wrap = func(s string) string { return "@" + n.Name() + "(" + s + ")" }
	case tree.KindMethodCall:
		ctx = Expression
		wrap = func(s string) string { return "__call__(" + s + ")" }
	default:
		return nil, fmt.Errorf("%w: %s has no argument list", ErrBadCoordinate, n.Kind())
	}
	frag, bound, err := t.fragment(c, ctx, wrap, bindings)
	if err != nil {
		return nil, err
	}
	args := frag.FirstChild(tree.KindArguments)
	if args == nil {
		return nil, fmt.Errorf("%w: no argument list in %q", ErrParse, frag.Source())
	}
	args = reindent(args, lineIndent(c, n), bound)

	for i, ch := range n.Children() {
		if ch.Kind() != tree.KindArguments {
			continue
		}
		if ch.Source() == args.Source() {
			return n, nil
		}
		t.recordImports(c, ch)
		return n.WithChild(i, args.WithPrefix(ch.Prefix())), nil
	}
	t.recordImports(c, nil)
	return n.Append(args.WithPrefix("")), nil
}

// recordImports adds the template's imports to the ledger and asks for the
// removal of every type the replaced subtree referenced.
func (t *Template) recordImports(c *cursor.Cursor, replaced *tree.Node) {
	if c == nil {
		return
	}
	ledger := c.Imports()
	if replaced != nil {
		tree.Walk(replaced, func(n *tree.Node) bool {
			if n.Kind() == tree.KindIdentifier || n.Kind() == tree.KindQualifiedName {
				ledger.Remove(n.FQN())
			}
			return true
		})
	}
	for _, fqn := range t.imports {
		ledger.Add(fqn)
	}
}

// lineIndent returns the indentation of the line target starts on, looking
// up the cursor chain when target itself does not start a line.
func lineIndent(c *cursor.Cursor, target *tree.Node) string {
	if strings.Contains(target.Prefix(), "\n") {
		return target.Indent()
	}
	for f := c; f != nil; f = f.Parent() {
		if strings.Contains(f.Node().Prefix(), "\n") {
			return f.Node().Indent()
		}
	}
	return ""
}

// reindent shifts every line break inside n, apart from spliced bindings,
// by indent. The prefix of n itself is left alone.
func reindent(n *tree.Node, indent string, bound map[tree.ID]bool) *tree.Node {
	if indent == "" {
		return n
	}
	out := n
	for i, ch := range n.Children() {
		if nc := shift(ch, indent, bound); nc != ch {
			out = out.WithChild(i, nc)
		}
	}
	return out
}

func shift(n *tree.Node, indent string, bound map[tree.ID]bool) *tree.Node {
	if bound[n.ID()] {
		return n
	}
	if p := n.Prefix(); strings.Contains(p, "\n") {
		n = n.WithPrefix(strings.ReplaceAll(p, "\n", "\n"+indent))
	}
	return reindent(n, indent, bound)
}
