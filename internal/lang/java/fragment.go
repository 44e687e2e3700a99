package java

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oxhq/quarkmig/internal/imports"
	"github.com/oxhq/quarkmig/internal/template"
	"github.com/oxhq/quarkmig/internal/tree"
)

const defaultFragmentCacheSize = 256

const (
	stubClass  = "__Stub__"
	stubMethod = "__stub__"
	stubVar    = "__v__"
)

// fragmentCache keeps parsed fragments keyed by the hash of their stub
// source. Hits are renumbered so spliced nodes never share ids.
type fragmentCache struct {
	entries *lru.Cache[string, *tree.Node]
}

func newFragmentCache(size int) *fragmentCache {
	if size <= 0 {
		return &fragmentCache{}
	}
	entries, err := lru.New[string, *tree.Node](size)
	if err != nil {
		return &fragmentCache{}
	}
	return &fragmentCache{entries: entries}
}

func (fc *fragmentCache) get(key string) (*tree.Node, bool) {
	if fc.entries == nil {
		return nil, false
	}
	n, ok := fc.entries.Get(key)
	if !ok {
		return nil, false
	}
	return tree.Renumber(n), true
}

func (fc *fragmentCache) add(key string, n *tree.Node) {
	if fc.entries != nil {
		fc.entries.Add(key, n)
	}
}

// Len returns the number of cached fragments.
func (fc *fragmentCache) Len() int {
	if fc.entries == nil {
		return 0
	}
	return fc.entries.Len()
}

// Template returns a template parsed by p.
func (p *Parser) Template(source string) *template.Template {
	return template.New(source).Parser(p)
}

// ParseFragment parses a fragment inside a stub compilation unit carrying
// the file's package and imports plus the requested ones, so names in the
// fragment resolve as they would in the file.
func (p *Parser) ParseFragment(req template.Request) (*tree.Node, error) {
	src, err := stub(req)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])
	if n, ok := p.fragments.get(key); ok {
		return n, nil
	}

	unit, err := p.Parse(context.Background(), []byte(src))
	if err != nil {
		return nil, err
	}
	n := extract(unit, req.Context)
	if n == nil {
		return nil, fmt.Errorf("no %s in fragment %q", req.Context, req.Source)
	}
	n = n.WithPrefix("")
	p.fragments.add(key, n)
	return n, nil
}

// CachedFragments returns the number of fragments held by the cache.
func (p *Parser) CachedFragments() int { return p.fragments.Len() }

func stub(req template.Request) (string, error) {
	var b strings.Builder
	if req.File != nil {
		if pkg := imports.PackageName(req.File); pkg != "" {
			fmt.Fprintf(&b, "package %s;\n", pkg)
		}
		for _, imp := range imports.Imports(req.File) {
			if imports.IsStatic(imp) {
				fmt.Fprintf(&b, "import static %s;\n", imp.Name())
			} else {
				fmt.Fprintf(&b, "import %s;\n", imp.Name())
			}
		}
	}
	for _, fqn := range req.Imports {
		fmt.Fprintf(&b, "import %s;\n", fqn)
	}
	switch req.Context {
	case template.Expression:
		fmt.Fprintf(&b, "class %s { Object %s = %s; }\n", stubClass, stubVar, req.Source)
	case template.Statement:
		fmt.Fprintf(&b, "class %s { void %s() {\n%s\n} }\n", stubClass, stubMethod, req.Source)
	case template.Annotation:
		fmt.Fprintf(&b, "%s\nclass %s {}\n", req.Source, stubClass)
	case template.ClassMember:
		fmt.Fprintf(&b, "class %s {\n%s\n}\n", stubClass, req.Source)
	case template.Parameter:
		fmt.Fprintf(&b, "class %s { void %s(%s) {} }\n", stubClass, stubMethod, req.Source)
	default:
		return "", fmt.Errorf("java fragments cannot be parsed as %s", req.Context)
	}
	return b.String(), nil
}

// extract finds the fragment inside the parsed stub.
func extract(unit *tree.Node, ctx template.Context) *tree.Node {
	class := tree.Find(unit, func(n *tree.Node) bool {
		return n.Kind() == tree.KindClassDecl && n.Name() == stubClass
	})
	if class == nil {
		return nil
	}
	body := class.FirstChild(tree.KindBlock)
	switch ctx {
	case template.Expression:
		field := body.FirstChild(tree.KindField)
		if field == nil {
			return nil
		}
		decl := firstSyntax(field.Children(), "variable_declarator")
		if decl == nil || decl.Len() < 3 {
			return nil
		}
		return decl.Child(decl.Len() - 1)
	case template.Statement:
		method := body.FirstChild(tree.KindMethodDecl)
		if method == nil {
			return nil
		}
		return firstMember(method.FirstChild(tree.KindBlock))
	case template.Annotation:
		mods := class.FirstChild(tree.KindModifiers)
		if mods == nil {
			return nil
		}
		return mods.FirstChild(tree.KindAnnotation)
	case template.ClassMember:
		return firstMember(body)
	case template.Parameter:
		method := body.FirstChild(tree.KindMethodDecl)
		if method == nil {
			return nil
		}
		params := method.FirstChild(tree.KindParameters)
		if params == nil {
			return nil
		}
		return params.FirstChild(tree.KindParameter)
	}
	return nil
}

func firstMember(block *tree.Node) *tree.Node {
	if block == nil {
		return nil
	}
	for _, c := range block.Children() {
		if c.Kind() != tree.KindToken && c.Kind() != tree.KindComment {
			return c
		}
	}
	return nil
}
