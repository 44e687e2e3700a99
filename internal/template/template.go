// Package template parses small source fragments in the context of the file
// they will live in and splices them into the tree at a coordinate.
//
// A fragment may hold placeholders:
//
//	#{}                  positional
//	#{name}              named, every use binds the same value
//	#{name:any(a.b.T)}   named and typed
//	#{any(a.b.T)}        positional and typed
//
// A string binding is spliced as source text before parsing. A *tree.Node
// binding is spliced as a subtree after parsing and keeps its own
// formatting.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// Context tells a Parser which syntactic role a fragment plays.
type Context int

const (
	Expression Context = iota
	Statement
	Annotation
	ClassMember
	Parameter
	Tag
)

func (c Context) String() string {
	switch c {
	case Expression:
		return "expression"
	case Statement:
		return "statement"
	case Annotation:
		return "annotation"
	case ClassMember:
		return "class-member"
	case Parameter:
		return "parameter"
	case Tag:
		return "tag"
	}
	return fmt.Sprintf("context(%d)", int(c))
}

// Request is one fragment to parse.
type Request struct {
	Source  string
	Context Context
	// Imports are the names the fragment needs on top of the file's own.
	Imports []string
	// File is the root of the tree the fragment will be spliced into. It
	// may be nil.
	File *tree.Node
}

// Parser turns a fragment into a subtree. Implementations attach the type
// metadata they can resolve from the file and the requested imports, and
// return a subtree whose root has an empty prefix.
type Parser interface {
	ParseFragment(req Request) (*tree.Node, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(req Request) (*tree.Node, error)

func (f ParserFunc) ParseFragment(req Request) (*tree.Node, error) { return f(req) }

var placeholderRe = regexp.MustCompile(`#\{([^{}]*)\}`)

type slot struct {
	name string
	typ  string
}

type use struct {
	start, end int
	slot       int
}

// Template is a compiled fragment. Configure it once when the rule is
// built; afterwards it is read-only and may be applied concurrently.
type Template struct {
	source  string
	imports []string
	context Context
	parser  Parser
	slots   []slot
	uses    []use
	err     error
}

// New compiles source. A malformed placeholder is reported by Apply.
func New(source string) *Template {
	t := &Template{source: source}
	t.slots, t.uses, t.err = parsePlaceholders(source)
	return t
}

// Imports declares fully qualified names the fragment introduces.
func (t *Template) Imports(fqns ...string) *Template {
	t.imports = append(t.imports, fqns...)
	return t
}

// Context sets the syntactic role of the fragment. The default is
// Expression.
func (t *Template) Context(c Context) *Template {
	t.context = c
	return t
}

// Parser sets the parser used for the fragment.
func (t *Template) Parser(p Parser) *Template {
	t.parser = p
	return t
}

// Source returns the fragment as written.
func (t *Template) Source() string { return t.source }

// Arity returns the number of bindings Apply expects.
func (t *Template) Arity() int { return len(t.slots) }

// Err returns the compile error of the fragment, if any.
func (t *Template) Err() error { return t.err }

func parsePlaceholders(src string) ([]slot, []use, error) {
	var (
		slots []slot
		uses  []use
	)
	named := map[string]int{}
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(src, -1) {
		name, typ, err := parseSlot(src[m[2]:m[3]])
		if err != nil {
			return nil, nil, err
		}
		idx := -1
		if name != "" {
			if i, ok := named[name]; ok {
				if typ != "" && slots[i].typ != "" && typ != slots[i].typ {
					return nil, nil, fmt.Errorf("%w: %s typed both %s and %s", ErrBadPlaceholder, name, slots[i].typ, typ)
				}
				if slots[i].typ == "" {
					slots[i].typ = typ
				}
				idx = i
			}
		}
		if idx < 0 {
			idx = len(slots)
			slots = append(slots, slot{name: name, typ: typ})
			if name != "" {
				named[name] = idx
			}
		}
		uses = append(uses, use{start: m[0], end: m[1], slot: idx})
	}
	if n := strings.Count(src, "#{"); n != len(uses) {
		return nil, nil, fmt.Errorf("%w: unterminated placeholder in %q", ErrBadPlaceholder, src)
	}
	return slots, uses, nil
}

func parseSlot(s string) (name, typ string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", nil
	}
	head, rest, typed := strings.Cut(s, ":")
	if !typed {
		if strings.HasPrefix(s, "any(") {
			typ, err = parseAny(s)
			return "", typ, err
		}
		head = s
	} else if typ, err = parseAny(strings.TrimSpace(rest)); err != nil {
		return "", "", err
	}
	name = strings.TrimSpace(head)
	if !isIdent(name) {
		return "", "", fmt.Errorf("%w: bad name %q", ErrBadPlaceholder, name)
	}
	return name, typ, nil
}

func parseAny(s string) (string, error) {
	if !strings.HasPrefix(s, "any(") || !strings.HasSuffix(s, ")") {
		return "", fmt.Errorf("%w: want any(type), got %q", ErrBadPlaceholder, s)
	}
	typ := strings.TrimSpace(s[len("any(") : len(s)-1])
	if typ == "" {
		return "", fmt.Errorf("%w: empty type in %q", ErrBadPlaceholder, s)
	}
	return typ, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// holeName is the identifier a node binding occupies until it is spliced.
func holeName(slot int) string {
	return fmt.Sprintf("__p%d__", slot)
}

// render substitutes bindings into the source. Node bindings are returned
// keyed by the identifier that stands in for them.
func (t *Template) render(bindings []any) (string, map[string]*tree.Node, error) {
	if len(bindings) != len(t.slots) {
		return "", nil, fmt.Errorf("%w: want %d, got %d", ErrBindingCount, len(t.slots), len(bindings))
	}
	subst := make([]string, len(t.slots))
	holes := map[string]*tree.Node{}
	for i, b := range bindings {
		switch v := b.(type) {
		case string:
			subst[i] = v
		case *tree.Node:
			if v == nil {
				return "", nil, fmt.Errorf("%w: nil node for placeholder %d", ErrBindingType, i)
			}
			if typ := t.slots[i].typ; typ != "" && v.Type() != nil && !v.Type().IsAssignableTo(typ) {
				return "", nil, fmt.Errorf("%w: %s is not %s", ErrBindingType, v.FQN(), typ)
			}
			subst[i] = holeName(i)
			holes[subst[i]] = v
		default:
			return "", nil, fmt.Errorf("%w: unsupported binding %T", ErrBindingType, b)
		}
	}
	var b strings.Builder
	last := 0
	for _, u := range t.uses {
		b.WriteString(t.source[last:u.start])
		b.WriteString(subst[u.slot])
		last = u.end
	}
	b.WriteString(t.source[last:])
	return b.String(), holes, nil
}

// fill replaces the hole identifiers of n with their bound subtrees. The
// first use of a binding moves the node, later uses get a renumbered copy.
// The ids of spliced subtrees are recorded in bound.
func fill(n *tree.Node, holes map[string]*tree.Node, used map[string]bool, bound map[tree.ID]bool) *tree.Node {
	if n.IsLeaf() {
		repl, ok := holes[n.Text()]
		if !ok || n.Kind() != tree.KindIdentifier {
			return n
		}
		if used[n.Text()] {
			repl = tree.Renumber(repl)
		}
		used[n.Text()] = true
		bound[repl.ID()] = true
		return repl.WithPrefix(n.Prefix())
	}
	out := n
	for i, c := range n.Children() {
		if nc := fill(c, holes, used, bound); nc != c {
			out = out.WithChild(i, nc)
		}
	}
	return out
}
