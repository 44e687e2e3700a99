package rules

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/gate"
	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/template"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

const (
	jaxrsPath = "jakarta.ws.rs.Path"
	jaxrsGET  = "jakarta.ws.rs.GET"
)

// Cursor messages of the web rule.
const (
	msgRoutes  = "web.routes"  // class: the class serves requests
	msgPath    = "web.path"    // method: value of its @Path
	msgDefault = "web.default" // parameter: value of its @DefaultValue
)

type webRule struct {
	controllers map[string]bool
	dropped     map[string]bool
	mapping     string
	verbs       map[string]string
	methods     map[string]string
	params      map[string]string

	markers      map[string]*template.Template
	path         *template.Template
	rootPath     *template.Template
	produces     *template.Template
	consumes     *template.Template
	defaultValue *template.Template
}

// NewSpringWebToJaxRs converts Spring MVC controllers to JAX-RS resources.
func NewSpringWebToJaxRs(cat *Catalog, jp *java.Parser) *recipe.Simple {
	t := cat.Web
	w := &webRule{
		controllers:  set(t.Controllers),
		dropped:      set(t.Dropped),
		mapping:      t.Mapping,
		verbs:        table(t.Verbs),
		methods:      table(t.Methods),
		params:       table(t.Parameters),
		markers:      map[string]*template.Template{},
		path:         annotation(jp, "@Path(#{})", jaxrsPath),
		rootPath:     annotation(jp, `@Path("")`, jaxrsPath),
		produces:     annotation(jp, "@Produces(#{})", "jakarta.ws.rs.Produces"),
		consumes:     annotation(jp, "@Consumes(#{})", "jakarta.ws.rs.Consumes"),
		defaultValue: annotation(jp, "@DefaultValue(#{})", "jakarta.ws.rs.DefaultValue"),
	}
	uses := []string{t.Mapping}
	uses = append(uses, t.Controllers...)
	uses = append(uses, t.Dropped...)
	for _, m := range t.Verbs {
		uses = append(uses, m.From)
		w.markers[m.To] = annotation(jp, "@"+matcher.SimpleName(m.To), m.To)
	}
	for _, m := range t.Methods {
		w.markers[m.To] = annotation(jp, "@"+matcher.SimpleName(m.To), m.To)
	}
	for _, m := range t.Parameters {
		uses = append(uses, m.From)
		w.markers[m.To] = annotation(jp, "@"+matcher.SimpleName(m.To)+"(#{})", m.To)
	}

	return &recipe.Simple{
		ID:       "SpringWebToJaxRs",
		Summary:  "Convert Spring MVC controllers and request mappings to JAX-RS resources",
		When:     gate.UsesAnyType(uses...),
		Fixpoint: true,
		Visit: visitor.New("SpringWebToJaxRs").
			On(w.annotation, tree.KindAnnotation).
			On(w.declaration, tree.KindClassDecl, tree.KindMethodDecl, tree.KindParameter),
	}
}

func annotation(jp *java.Parser, src string, imports ...string) *template.Template {
	return jp.Template(src).Context(template.Annotation).Imports(imports...)
}

func set(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// mediaKey scopes a produces/consumes message to one kind of declaration,
// so a method never picks up the value meant for its class.
func mediaKey(decl *tree.Node, name string) string {
	return "web." + decl.Kind().String() + "." + name
}

func (w *webRule) annotation(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	fqn := n.FQN()
	switch {
	case fqn == "":
		return n, nil
	case w.controllers[fqn], w.dropped[fqn]:
		if w.controllers[fqn] {
			c.PutMessageOnNearest(msgRoutes, true, tree.KindClassDecl)
		}
		c.Imports().Remove(fqn)
		return nil, nil
	case fqn == w.mapping:
		return w.requestMapping(c, n)
	case w.verbs[fqn] != "":
		decl := c.NearestAncestor(tree.KindMethodDecl, tree.KindClassDecl)
		if decl == nil || decl.Node().Kind() != tree.KindMethodDecl {
			return n, nil
		}
		return w.route(c, decl, n, w.verbs[fqn])
	case w.params[fqn] != "":
		return w.param(c, n, w.params[fqn])
	}
	return n, nil
}

func (w *webRule) requestMapping(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	decl := c.NearestAncestor(tree.KindMethodDecl, tree.KindClassDecl)
	if decl == nil {
		return n, nil
	}
	if decl.Node().Kind() == tree.KindClassDecl {
		w.mediaTypes(decl, n)
		c.PutMessageOnNearest(msgRoutes, true, tree.KindClassDecl)
		if v := pathValue(n); v != nil {
			return w.path.Apply(c, template.Replace(n), v)
		}
		return w.rootPath.Apply(c, template.Replace(n))
	}
	verb := jaxrsGET
	if m, ok := matcher.AnnotationArgument(n, "method"); ok {
		if verb = w.methods[constantName(m)]; verb == "" {
			return n, nil
		}
	}
	return w.route(c, decl, n, verb)
}

// route turns a method mapping into its verb, leaving the path and media
// types as messages for the method.
func (w *webRule) route(c, decl *cursor.Cursor, n *tree.Node, verb string) (*tree.Node, error) {
	if v := pathValue(n); v != nil {
		decl.PutMessage(msgPath, v)
	}
	w.mediaTypes(decl, n)
	decl.PutMessageOnNearest(msgRoutes, true, tree.KindClassDecl)
	return w.markers[verb].Apply(c, template.Replace(n))
}

func (w *webRule) mediaTypes(decl *cursor.Cursor, n *tree.Node) {
	for _, name := range []string{"produces", "consumes"} {
		if v, ok := matcher.AnnotationArgument(n, name); ok {
			decl.PutMessage(mediaKey(decl.Node(), name), v)
		}
	}
}

func (w *webRule) param(c *cursor.Cursor, n *tree.Node, to string) (*tree.Node, error) {
	p := c.NearestAncestor(tree.KindParameter)
	if p == nil {
		return n, nil
	}
	var name any = `"` + p.Node().Name() + `"`
	if v, ok := matcher.AnnotationArgument(n, "value"); ok {
		name = v
	} else if v, ok := matcher.AnnotationArgument(n, "name"); ok {
		name = v
	}
	if def, ok := matcher.AnnotationArgument(n, "defaultValue"); ok {
		p.PutMessage(msgDefault, def)
	}
	return w.markers[to].Apply(c, template.Replace(n), name)
}

func (w *webRule) declaration(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	var err error
	switch n.Kind() {
	case tree.KindParameter:
		if def, ok := cursor.Poll[*tree.Node](c, msgDefault); ok {
			n, err = w.defaultValue.Apply(c, template.AddAnnotation(n, template.BySimpleName), def)
		}
		return n, err
	case tree.KindMethodDecl:
		if v, ok := cursor.Poll[*tree.Node](c, msgPath); ok {
			if n, err = w.path.Apply(c, template.AddAnnotation(n, template.BySimpleName), v); err != nil {
				return n, err
			}
		}
	case tree.KindClassDecl:
		if routes, _ := cursor.Poll[bool](c, msgRoutes); routes && !hasAnnotation(n, jaxrsPath) {
			if n, err = w.rootPath.Apply(c, template.AddAnnotation(n, template.BySimpleName)); err != nil {
				return n, err
			}
		}
	}
	media := []struct {
		name string
		t    *template.Template
	}{
		{"consumes", w.consumes},
		{"produces", w.produces},
	}
	for _, m := range media {
		if v, ok := cursor.Poll[*tree.Node](c, mediaKey(n, m.name)); ok {
			if n, err = m.t.Apply(c, template.AddAnnotation(n, template.BySimpleName), v); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// pathValue returns the first path of a mapping annotation, or nil when it
// maps the empty path.
func pathValue(ann *tree.Node) *tree.Node {
	v, ok := matcher.AnnotationArgument(ann, "value")
	if !ok {
		v, ok = matcher.AnnotationArgument(ann, "path")
	}
	if !ok {
		return nil
	}
	v = firstElement(v)
	if v == nil || v.Text() == `""` {
		return nil
	}
	return v
}

// firstElement unwraps an annotation array value to its first element.
func firstElement(v *tree.Node) *tree.Node {
	if v == nil || v.Syntax() != "element_value_array_initializer" {
		return v
	}
	for _, c := range v.Children() {
		if c.Kind() != tree.KindToken && c.Kind() != tree.KindComment {
			return c
		}
	}
	return nil
}

// constantName returns the simple name of an enum constant reference such
// as RequestMethod.POST.
func constantName(v *tree.Node) string {
	v = firstElement(v)
	if v == nil {
		return ""
	}
	s := strings.Join(strings.Fields(v.Source()), "")
	return s[strings.LastIndexByte(s, '.')+1:]
}

func hasAnnotation(decl *tree.Node, fqn string) bool {
	mods := decl.FirstChild(tree.KindModifiers)
	if mods == nil {
		return false
	}
	for _, a := range mods.ChildrenOf(tree.KindAnnotation) {
		if a.FQN() == fqn || a.Name() == fqn || a.Name() == matcher.SimpleName(fqn) {
			return true
		}
	}
	return false
}
