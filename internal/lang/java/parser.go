// Package java turns Java sources into tree.Node graphs with tree-sitter and
// attaches the type metadata a name-based oracle can resolve. Nothing here
// type-checks: a name that cannot be resolved is left without metadata.
package java

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	tsjava "github.com/smacker/go-tree-sitter/java"

	"github.com/oxhq/quarkmig/internal/tree"
)

// ErrSyntax marks sources tree-sitter could not parse cleanly.
var ErrSyntax = errors.New("java syntax error")

// SyntaxError locates the first error node of a source.
type SyntaxError struct {
	Line   int
	Column int
	Near   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("java syntax error at %d:%d near %q", e.Line, e.Column, e.Near)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// Parser converts Java sources. It is safe for concurrent use.
type Parser struct {
	classpath *Classpath
	parsers   sync.Pool
	fragments *fragmentCache
}

// Option configures a Parser.
type Option func(*Parser)

// WithFragmentCache sets how many parsed template fragments are kept.
func WithFragmentCache(size int) Option {
	return func(p *Parser) {
		p.fragments = newFragmentCache(size)
	}
}

// NewParser returns a parser resolving names against cp. A nil cp knows
// java.lang only.
func NewParser(cp *Classpath, opts ...Option) *Parser {
	if cp == nil {
		cp = NewClasspath()
	}
	p := &Parser{classpath: cp}
	p.parsers.New = func() any {
		sp := sitter.NewParser()
		sp.SetLanguage(tsjava.GetLanguage())
		return sp
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fragments == nil {
		p.fragments = newFragmentCache(defaultFragmentCacheSize)
	}
	return p
}

// Classpath returns the oracle the parser resolves against.
func (p *Parser) Classpath() *Classpath { return p.classpath }

// Parse converts src into a compilation unit. Printing the result
// reproduces src byte for byte.
func (p *Parser) Parse(ctx context.Context, src []byte) (*tree.Node, error) {
	root, err := p.syntax(ctx, src)
	if err != nil {
		return nil, err
	}
	return newResolver(p.classpath, root).attribute(root), nil
}

// syntax runs tree-sitter and converts its tree without attribution.
func (p *Parser) syntax(ctx context.Context, src []byte) (*tree.Node, error) {
	sp := p.parsers.Get().(*sitter.Parser)
	defer p.parsers.Put(sp)

	st, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse java: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("parse java: no tree")
	}
	defer st.Close()

	root := st.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src)
	}
	cv := &converter{src: src}
	unit := cv.node(root, "")
	if cv.pos < uint32(len(src)) {
		unit = unit.Append(tree.Leaf(tree.KindEOF, "eof", string(src[cv.pos:]), ""))
	}
	return unit, nil
}

func syntaxError(root *sitter.Node, src []byte) error {
	bad := findError(root)
	if bad == nil {
		return &SyntaxError{Line: 1, Column: 1}
	}
	start, end := bad.StartByte(), bad.EndByte()
	if end > start+20 {
		end = start + 20
	}
	pt := bad.StartPoint()
	return &SyntaxError{
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column) + 1,
		Near:   string(src[start:end]),
	}
}

func findError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.HasError() || c.IsMissing() {
			if bad := findError(c); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// converter walks a tree-sitter tree in source order. Every byte between
// the previous node and the next one becomes that node's prefix.
type converter struct {
	src []byte
	pos uint32
}

func (cv *converter) node(n *sitter.Node, parent string) *tree.Node {
	start := n.StartByte()
	if start < cv.pos {
		start = cv.pos
	}
	prefix := string(cv.src[cv.pos:start])
	cv.pos = start

	syntax := n.Type()
	kind := kindOf(syntax, n.IsNamed(), parent)
	if n.ChildCount() == 0 || collapsed[syntax] {
		end := n.EndByte()
		if end < start {
			end = start
		}
		cv.pos = end
		leaf := tree.Leaf(kind, syntax, prefix, string(cv.src[start:end]))
		if kind == tree.KindQualifiedName {
			leaf = leaf.WithName(compact(leaf.Text()))
		}
		return leaf
	}

	children := make([]*tree.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		children = append(children, cv.node(n.Child(i), syntax))
	}
	out := tree.New(kind, syntax, children...).WithPrefix(prefix)
	if name := nameOf(kind, children); name != "" {
		out = out.WithName(name)
	}
	return out
}
