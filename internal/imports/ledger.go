// Package imports reconciles a Java compilation unit's import list with the
// names its tree still references.
package imports

import (
	"slices"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// DefaultStarThreshold is the number of explicit imports from one package at
// which they are folded into a single wildcard import.
const DefaultStarThreshold = 5

// Ledger records deferred import additions and removals for one file. Both
// operations are idempotent and only take effect in Apply.
type Ledger struct {
	starThreshold int
	add           map[string]struct{}
	remove        map[string]struct{}
}

// NewLedger creates an empty ledger. A threshold <= 0 disables folding.
func NewLedger(starThreshold int) *Ledger {
	return &Ledger{
		starThreshold: starThreshold,
		add:           make(map[string]struct{}),
		remove:        make(map[string]struct{}),
	}
}

// Add requests that fqn be imported if anything in the tree needs it.
func (l *Ledger) Add(fqn string) {
	if fqn == "" {
		return
	}
	delete(l.remove, fqn)
	l.add[fqn] = struct{}{}
}

// Remove requests that fqn be dropped if nothing in the tree needs it.
func (l *Ledger) Remove(fqn string) {
	if fqn == "" {
		return
	}
	if _, ok := l.add[fqn]; ok {
		return
	}
	l.remove[fqn] = struct{}{}
}

// Pending reports whether any request is recorded.
func (l *Ledger) Pending() bool {
	return len(l.add) > 0 || len(l.remove) > 0
}

// Additions returns the requested additions in sorted order.
func (l *Ledger) Additions() []string { return sortedKeys(l.add) }

// Removals returns the requested removals in sorted order.
func (l *Ledger) Removals() []string { return sortedKeys(l.remove) }

// Reset forgets every request.
func (l *Ledger) Reset() {
	clear(l.add)
	clear(l.remove)
}

// Apply reconciles the compilation unit root with the recorded requests and
// clears them. Removals run before additions so a name replaced by another
// of the same simple name can be re-imported in the same pass.
func (l *Ledger) Apply(root *tree.Node) *tree.Node {
	if root == nil || root.Kind() != tree.KindCompilationUnit || !l.Pending() {
		l.Reset()
		return root
	}
	defer l.Reset()

	refs := collectReferences(root)
	for _, fqn := range l.Removals() {
		root = removeImport(root, fqn, refs)
	}
	touched := map[string]bool{}
	for _, fqn := range l.Additions() {
		var added bool
		root, added = addImport(root, fqn, refs)
		if added {
			touched[packageOf(fqn)] = true
		}
	}
	if l.starThreshold > 0 {
		for _, pkg := range sortedKeys(touched) {
			root = foldPackage(root, pkg, l.starThreshold)
		}
	}
	return root
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// references summarises which names a compilation unit uses outside its
// package and import declarations.
type references struct {
	types      map[string]bool
	unresolved bool
}

func collectReferences(root *tree.Node) references {
	refs := references{types: map[string]bool{}}
	declared := map[string]bool{}
	tree.Walk(root, func(n *tree.Node) bool {
		if n.Kind() == tree.KindClassDecl && n.Name() != "" {
			declared[n.Name()] = true
		}
		return true
	})
	tree.Walk(root, func(n *tree.Node) bool {
		switch n.Kind() {
		case tree.KindImport, tree.KindPackage:
			return false
		case tree.KindIdentifier:
			if fqn := n.FQN(); fqn != "" {
				refs.types[fqn] = true
			} else if n.Syntax() == "type_identifier" && !declared[n.Text()] {
				refs.unresolved = true
			}
		}
		return true
	})
	return refs
}

func (r references) usesPackage(pkg string) bool {
	for fqn := range r.types {
		if packageOf(fqn) == pkg {
			return true
		}
	}
	return false
}

// IsStatic reports whether the import declaration n is a static import.
func IsStatic(n *tree.Node) bool {
	_, tok := n.FirstToken("static")
	return tok != nil
}

// Imports returns the import declarations of root in order.
func Imports(root *tree.Node) []*tree.Node {
	return root.ChildrenOf(tree.KindImport)
}

// PackageName returns the package declared by root, or "".
func PackageName(root *tree.Node) string {
	if p := root.FirstChild(tree.KindPackage); p != nil {
		return p.Name()
	}
	return ""
}

func packageOf(fqn string) string {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return ""
	}
	return fqn[:i]
}

func simpleName(fqn string) string {
	return fqn[strings.LastIndexByte(fqn, '.')+1:]
}

func removeImport(root *tree.Node, fqn string, refs references) *tree.Node {
	if refs.types[fqn] {
		return root
	}
	pkg := packageOf(fqn)
	for i, c := range root.Children() {
		if c.Kind() != tree.KindImport || IsStatic(c) {
			continue
		}
		switch c.Name() {
		case fqn:
			return root.Remove(i)
		case pkg + ".*":
			if refs.usesPackage(pkg) || refs.unresolved {
				continue
			}
			return root.Remove(i)
		}
	}
	return root
}

func visible(root *tree.Node, fqn string) bool {
	pkg := packageOf(fqn)
	if pkg == "java.lang" || pkg == PackageName(root) {
		return true
	}
	for _, imp := range Imports(root) {
		if IsStatic(imp) {
			continue
		}
		if imp.Name() == fqn || imp.Name() == pkg+".*" {
			return true
		}
	}
	return false
}

func clashes(root *tree.Node, fqn string) bool {
	simple := simpleName(fqn)
	for _, imp := range Imports(root) {
		if !IsStatic(imp) && imp.Name() != fqn && simpleName(imp.Name()) == simple {
			return true
		}
	}
	return false
}

// NewImport builds an import declaration for fqn with the given prefix.
func NewImport(prefix, fqn string) *tree.Node {
	return tree.New(tree.KindImport, "import_declaration",
		tree.Token("", "import"),
		tree.Leaf(tree.KindQualifiedName, "scoped_identifier", " ", fqn),
		tree.Token("", ";"),
	).WithName(fqn).WithType(&tree.Type{FQN: fqn}).WithPrefix(prefix)
}

func addImport(root *tree.Node, fqn string, refs references) (*tree.Node, bool) {
	if !refs.types[fqn] || !strings.Contains(fqn, ".") || visible(root, fqn) || clashes(root, fqn) {
		return root, false
	}

	children := root.Children()
	lastImport, firstImport, pkgIdx := -1, -1, -1
	insertAt := -1
	for i, c := range children {
		switch c.Kind() {
		case tree.KindPackage:
			pkgIdx = i
		case tree.KindImport:
			if firstImport < 0 {
				firstImport = i
			}
			lastImport = i
			if insertAt < 0 && !IsStatic(c) && c.Name() > fqn {
				insertAt = i
			}
		}
	}

	switch {
	case insertAt == firstImport && insertAt >= 0:
		first := children[firstImport]
		root = root.WithChild(firstImport, first.WithPrefix("\n"))
		return root.Insert(firstImport, NewImport(first.Prefix(), fqn)), true
	case insertAt >= 0:
		return root.Insert(insertAt, NewImport("\n", fqn)), true
	case lastImport >= 0:
		return root.Insert(lastImport+1, NewImport("\n", fqn)), true
	case pkgIdx >= 0:
		return root.Insert(pkgIdx+1, NewImport("\n\n", fqn)), true
	}

	idx := 0
	for idx < len(children) && children[idx].Kind() == tree.KindComment {
		idx++
	}
	if idx == len(children) {
		return root.Insert(idx, NewImport("", fqn)), true
	}
	next := children[idx]
	prefix := ""
	if idx > 0 {
		prefix = "\n\n"
	}
	if !strings.Contains(next.Prefix(), "\n\n") {
		root = root.WithChild(idx, next.WithPrefix("\n\n"+strings.TrimLeft(next.Prefix(), "\n")))
	}
	return root.Insert(idx, NewImport(prefix, fqn)), true
}

func foldPackage(root *tree.Node, pkg string, threshold int) *tree.Node {
	var idx []int
	for i, c := range root.Children() {
		if c.Kind() != tree.KindImport || IsStatic(c) {
			continue
		}
		if c.Name() == pkg+".*" {
			return root
		}
		if packageOf(c.Name()) == pkg {
			idx = append(idx, i)
		}
	}
	if len(idx) < threshold {
		return root
	}
	star := NewImport(root.Child(idx[0]).Prefix(), pkg+".*")
	for j := len(idx) - 1; j > 0; j-- {
		root = root.WithChildren(slices.Delete(slices.Clone(root.Children()), idx[j], idx[j]+1))
	}
	return root.WithChild(idx[0], star)
}
