package java

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// resolver attaches type metadata to one compilation unit. Names resolve
// through explicit imports, same-file declarations, wildcard imports the
// classpath confirms, the file's own package and java.lang, in that order.
type resolver struct {
	cp        *Classpath
	pkg       string
	explicit  map[string]string
	wildcards []string
	declared  map[string]string
	supers    map[string][]string
	vars      map[string]string
	classes   []string
}

func newResolver(cp *Classpath, unit *tree.Node) *resolver {
	r := &resolver{
		cp:       cp,
		explicit: map[string]string{},
		declared: map[string]string{},
		supers:   map[string][]string{},
		vars:     map[string]string{},
	}
	for _, c := range unit.Children() {
		switch c.Kind() {
		case tree.KindPackage:
			r.pkg = c.Name()
		case tree.KindImport:
			if _, static := c.FirstToken("static"); static != nil {
				continue
			}
			name := c.Name()
			if pkg, ok := strings.CutSuffix(name, ".*"); ok {
				r.wildcards = append(r.wildcards, pkg)
			} else if name != "" {
				r.explicit[simple(name)] = name
			}
		}
	}
	r.declareClasses(unit, r.pkg)
	r.collectSupertypes(unit)
	r.collectVars(unit)
	return r
}

func simple(fqn string) string {
	return fqn[strings.LastIndexByte(fqn, '.')+1:]
}

func (r *resolver) declareClasses(n *tree.Node, outer string) {
	for _, c := range n.Children() {
		next := outer
		if c.Kind() == tree.KindClassDecl && c.Name() != "" {
			fqn := c.Name()
			if outer != "" {
				fqn = outer + "." + c.Name()
			}
			if _, dup := r.declared[c.Name()]; !dup {
				r.declared[c.Name()] = fqn
			}
			next = fqn
		}
		r.declareClasses(c, next)
	}
}

func (r *resolver) collectSupertypes(n *tree.Node) {
	tree.Walk(n, func(x *tree.Node) bool {
		if x.Kind() != tree.KindClassDecl {
			return true
		}
		fqn := r.declared[x.Name()]
		for _, c := range x.Children() {
			switch c.Syntax() {
			case "superclass", "super_interfaces", "extends_interfaces":
				for _, t := range typeNodes(c) {
					if st := r.typeName(t); st != "" {
						r.supers[fqn] = append(r.supers[fqn], st)
					}
				}
			}
		}
		return true
	})
}

// typeNodes returns the type references listed directly in an extends or
// implements clause.
func typeNodes(clause *tree.Node) []*tree.Node {
	var out []*tree.Node
	for _, c := range clause.Children() {
		if c.Syntax() == "type_list" {
			out = append(out, typeNodes(c)...)
			continue
		}
		switch c.Kind() {
		case tree.KindIdentifier, tree.KindQualifiedName, tree.KindTypeRef:
			out = append(out, c)
		}
	}
	return out
}

func (r *resolver) collectVars(n *tree.Node) {
	tree.Walk(n, func(x *tree.Node) bool {
		switch x.Kind() {
		case tree.KindParameter:
			if t := declaredType(x); t != nil {
				typ := r.typeName(t)
				if x.Syntax() == "spread_parameter" {
					typ += "[]"
				}
				r.addVar(x.Name(), typ)
			}
		case tree.KindField, tree.KindVariable:
			t := declaredType(x)
			if t == nil {
				return true
			}
			typ := r.typeName(t)
			for _, d := range x.Children() {
				if d.Syntax() != "variable_declarator" {
					continue
				}
				if id := firstSyntax(d.Children(), "identifier"); id != nil {
					r.addVar(id.Text(), typ)
				}
			}
		}
		return true
	})
}

func (r *resolver) addVar(name, typ string) {
	if _, dup := r.vars[name]; name != "" && !dup {
		r.vars[name] = typ
	}
}

// declaredType returns the type child of a parameter, field or variable.
func declaredType(decl *tree.Node) *tree.Node {
	for _, c := range decl.Children() {
		switch c.Kind() {
		case tree.KindModifiers, tree.KindModifier, tree.KindAnnotation, tree.KindComment:
			continue
		case tree.KindIdentifier, tree.KindQualifiedName, tree.KindTypeRef:
			return c
		}
		if c.Syntax() == "var" {
			return nil
		}
	}
	return nil
}

// resolve returns the fully qualified form of a simple or dotted type name,
// or "" when it cannot be determined.
func (r *resolver) resolve(name string) string {
	name = compact(name)
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	head, rest, dotted := strings.Cut(name, ".")
	if !dotted {
		return r.resolveSimple(name)
	}
	if isTypeName(head) {
		if outer := r.resolveSimple(head); outer != "" {
			return outer + "." + rest
		}
		return ""
	}
	return name
}

func (r *resolver) resolveSimple(name string) string {
	if fqn, ok := r.explicit[name]; ok {
		return fqn
	}
	if fqn, ok := r.declared[name]; ok {
		return fqn
	}
	for _, pkg := range r.wildcards {
		if fqn, ok := r.cp.Lookup(pkg, name); ok {
			return fqn
		}
	}
	if fqn, ok := r.cp.Lookup(r.pkg, name); ok {
		return fqn
	}
	if fqn, ok := r.cp.Lookup("java.lang", name); ok {
		return fqn
	}
	return ""
}

// typeName renders a type node as a resolved name, falling back to the
// written name. Generic arguments are erased.
func (r *resolver) typeName(t *tree.Node) string {
	switch t.Kind() {
	case tree.KindIdentifier, tree.KindQualifiedName:
		if fqn := r.resolve(t.Text()); fqn != "" {
			return fqn
		}
		return compact(t.Text())
	case tree.KindTypeRef:
		switch t.Syntax() {
		case "generic_type":
			if len(t.Children()) > 0 {
				return r.typeName(t.Child(0))
			}
		case "array_type":
			dims := 0
			if d := firstSyntax(t.Children(), "dimensions"); d != nil {
				dims = strings.Count(d.String(), "[")
			}
			if len(t.Children()) > 0 {
				return r.typeName(t.Child(0)) + strings.Repeat("[]", dims)
			}
		}
		return compact(t.Source())
	}
	return ""
}

func (r *resolver) typeOf(fqn string) *tree.Type {
	return &tree.Type{FQN: fqn, Supertypes: r.supertypes(fqn)}
}

func (r *resolver) supertypes(fqn string) []string {
	return r.cp.Supertypes(fqn, r.supers[fqn]...)
}

func (r *resolver) enclosing() string {
	if len(r.classes) == 0 {
		return ""
	}
	return r.classes[len(r.classes)-1]
}

// attribute returns unit with type metadata attached.
func (r *resolver) attribute(unit *tree.Node) *tree.Node {
	return r.visit(unit, nil, -1)
}

func (r *resolver) visit(n, parent *tree.Node, idx int) *tree.Node {
	if n.Kind() == tree.KindImport || n.Kind() == tree.KindPackage {
		if n.Kind() == tree.KindImport && !strings.HasSuffix(n.Name(), ".*") {
			return n.WithType(&tree.Type{FQN: n.Name()})
		}
		return n
	}
	if n.Kind() == tree.KindClassDecl {
		r.classes = append(r.classes, r.declared[n.Name()])
		defer func() { r.classes = r.classes[:len(r.classes)-1] }()
	}

	out := n
	for i, c := range n.Children() {
		if nc := r.visit(c, n, i); nc != c {
			out = out.WithChild(i, nc)
		}
	}

	switch out.Kind() {
	case tree.KindIdentifier, tree.KindQualifiedName:
		if r.namesType(out, parent, idx) {
			if fqn := r.resolve(out.Text()); fqn != "" {
				return out.WithType(r.typeOf(fqn))
			}
		}
	case tree.KindAnnotation:
		if name := out.Child(1); name != nil && name.FQN() != "" {
			return out.WithType(&tree.Type{FQN: name.FQN()})
		}
	case tree.KindLiteral:
		if typ := literalType(out); typ != "" {
			return out.WithType(&tree.Type{FQN: typ})
		}
	case tree.KindClassLiteral:
		return out.WithType(&tree.Type{FQN: "java.lang.Class"})
	case tree.KindClassDecl:
		fqn := r.declared[out.Name()]
		return out.WithType(r.typeOf(fqn))
	case tree.KindParameter:
		if t := declaredType(out); t != nil {
			typ := r.typeName(t)
			if out.Syntax() == "spread_parameter" {
				typ += "[]"
			}
			return out.WithType(&tree.Type{FQN: typ})
		}
	case tree.KindMethodDecl:
		return out.WithType(r.methodDecl(out))
	case tree.KindMethodCall:
		if m := r.methodCall(out); m != nil {
			return out.WithType(&tree.Type{Method: m})
		}
	}
	return out
}

// namesType reports whether the identifier n at position idx of parent
// refers to a type rather than a variable, method or declared name.
func (r *resolver) namesType(n, parent *tree.Node, idx int) bool {
	switch n.Syntax() {
	case "type_identifier", "scoped_type_identifier":
		return true
	}
	if parent == nil {
		return false
	}
	switch parent.Syntax() {
	case "marker_annotation", "annotation":
		return idx == 1
	case "method_invocation", "field_access":
		if idx != 0 || n.Kind() != tree.KindIdentifier {
			return false
		}
		if _, isVar := r.vars[n.Text()]; isVar {
			return false
		}
		return isTypeName(n.Text())
	}
	return false
}

func (r *resolver) methodDecl(n *tree.Node) *tree.Type {
	declaring := r.enclosing()
	m := &tree.Method{
		Declaring:           declaring,
		DeclaringSupertypes: r.supertypes(declaring),
		Name:                n.Name(),
		Params:              []string{},
	}
	if n.Syntax() == "constructor_declaration" {
		m.Name = "<constructor>"
	}
	ret := ""
	for _, c := range n.Children() {
		switch c.Kind() {
		case tree.KindParameters:
			for _, p := range c.ChildrenOf(tree.KindParameter) {
				m.Params = append(m.Params, p.FQN())
			}
		case tree.KindIdentifier, tree.KindQualifiedName, tree.KindTypeRef:
			if ret == "" && c.Syntax() != "identifier" {
				ret = r.typeName(c)
			}
		}
	}
	return &tree.Type{FQN: ret, Method: m}
}

// methodCall resolves the receiver of a call: a type for static calls, the
// declared type of a variable, or the enclosing class for unqualified and
// this-qualified calls. Anything else stays unresolved.
func (r *resolver) methodCall(n *tree.Node) *tree.Method {
	children := n.Children()
	args := n.FirstChild(tree.KindArguments)
	if args == nil || n.Name() == "" {
		return nil
	}
	var declaring string
	switch first := children[0]; {
	case len(children) == 2:
		declaring = r.enclosing()
	case first.Syntax() == "this":
		declaring = r.enclosing()
	case first.Kind() == tree.KindIdentifier && first.FQN() != "":
		declaring = first.FQN()
	case first.Kind() == tree.KindIdentifier:
		declaring = r.vars[first.Text()]
	case first.Kind() == tree.KindFieldAccess && first.Len() == 3 && first.Child(0).Syntax() == "this":
		declaring = r.vars[first.Child(2).Text()]
	}
	if !r.known(declaring) {
		return nil
	}
	m := &tree.Method{
		Declaring:           declaring,
		DeclaringSupertypes: r.supertypes(declaring),
		Name:                n.Name(),
		Params:              []string{},
	}
	for _, a := range args.Children() {
		if a.Kind() == tree.KindToken || a.Kind() == tree.KindComment {
			continue
		}
		m.Params = append(m.Params, r.exprType(a))
	}
	return m
}

// known reports whether fqn is a resolved reference type.
func (r *resolver) known(fqn string) bool {
	if fqn == "" {
		return false
	}
	if r.cp.Has(fqn) || strings.Contains(fqn, ".") {
		return true
	}
	for _, d := range r.declared {
		if d == fqn {
			return true
		}
	}
	return false
}

func (r *resolver) exprType(n *tree.Node) string {
	switch n.Kind() {
	case tree.KindLiteral, tree.KindClassLiteral:
		return n.FQN()
	case tree.KindIdentifier:
		return r.vars[n.Text()]
	}
	return ""
}
