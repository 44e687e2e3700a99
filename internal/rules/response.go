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
	responseEntity = "org.springframework.http.ResponseEntity"
	jaxrsResponse  = "jakarta.ws.rs.core.Response"
)

// responseFactories maps the static ResponseEntity factories to the
// Response calls that start the same builder. An empty entry takes the
// status from the argument.
var responseFactories = map[string]string{
	"ok":                  "Response.ok",
	"created":             "Response.created",
	"accepted":            "Response.accepted",
	"noContent":           "Response.noContent",
	"badRequest":          "Response.status(Response.Status.BAD_REQUEST)",
	"notFound":            "Response.status(Response.Status.NOT_FOUND)",
	"internalServerError": "Response.serverError",
	"status":              "",
}

type responseRule struct {
	factory  *matcher.MethodMatcher
	statuses map[string]string
	jp       *java.Parser
}

// NewResponseEntityToJaxRsResponse rewrites ResponseEntity builder chains
// into JAX-RS Response builder chains that end in build(), and
// ResponseEntity types into Response. Chains holding a call without a
// Response counterpart are left as they are.
func NewResponseEntityToJaxRsResponse(cat *Catalog, jp *java.Parser) *recipe.Simple {
	r := &responseRule{
		factory:  matcher.MustMethod(responseEntity+" *(..)", false),
		statuses: table(cat.Responses.Statuses),
		jp:       jp,
	}
	return &recipe.Simple{
		ID:      "ResponseEntityToJaxRsResponse",
		Summary: "Convert Spring ResponseEntity to the JAX-RS Response API",
		When:    gate.UsesType(responseEntity, false),
		Visit: visitor.New("ResponseEntityToJaxRsResponse").
			On(r.call, tree.KindMethodCall).
			On(r.typeName, tree.KindIdentifier).
			On(r.genericType, tree.KindTypeRef),
	}
}

func (r *responseRule) typeName(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if n.Syntax() != "type_identifier" || n.FQN() != responseEntity {
		return n, nil
	}
	c.Imports().Remove(responseEntity)
	c.Imports().Add(jaxrsResponse)
	return n.WithText("Response").WithType(&tree.Type{FQN: jaxrsResponse}), nil
}

// genericType drops the type arguments a renamed ResponseEntity<T> kept.
func (r *responseRule) genericType(_ *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if n.Syntax() != "generic_type" || n.Len() == 0 || n.Child(0).FQN() != jaxrsResponse {
		return n, nil
	}
	return n.Child(0).WithPrefix(n.Prefix()), nil
}

func (r *responseRule) call(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if isChained(c, n) {
		return n, nil
	}
	calls := chainOf(n)
	root := calls[0]
	if !r.factory.Matches(root) {
		return n, nil
	}
	src, bindings, ok := r.rewrite(calls)
	if !ok {
		return n, nil
	}
	return r.jp.Template(src).Imports(jaxrsResponse).Apply(c, template.Replace(n), bindings...)
}

// rewrite renders the Response form of a ResponseEntity chain with one
// placeholder per carried argument.
func (r *responseRule) rewrite(calls []*tree.Node) (string, []any, bool) {
	var (
		b        strings.Builder
		bindings []any
		built    bool
	)
	root := calls[0]
	args := arguments(root)
	start, known := responseFactories[root.Name()]
	switch {
	case !known:
		return "", nil, false
	case root.Name() == "status" && len(args) == 1 && args[0].Kind() == tree.KindLiteral:
		b.WriteString("Response.status(#{})")
		bindings = append(bindings, args[0])
	case root.Name() == "status":
		to := ""
		if len(args) == 1 {
			to = r.statuses[constantName(args[0])]
		}
		if to == "" {
			return "", nil, false
		}
		b.WriteString("Response.status(Response.Status." + to + ")")
	case strings.HasSuffix(start, ")"):
		if len(args) != 0 {
			return "", nil, false
		}
		b.WriteString(start)
	default:
		b.WriteString(start + "(" + placeholders(len(args)) + ")")
		for _, a := range args {
			bindings = append(bindings, a)
		}
		// ok(body) is a finished response, not a builder.
		built = root.Name() == "ok" && len(args) == 1
	}

	for _, link := range calls[1:] {
		args := arguments(link)
		switch {
		case built:
			return "", nil, false
		case link.Name() == "body" && len(args) == 1:
			b.WriteString(".entity(#{}).build()")
			built = true
		case link.Name() == "build" && len(args) == 0:
			b.WriteString(".build()")
			built = true
		case link.Name() == "header" && len(args) >= 2:
			b.WriteString(".header(" + placeholders(len(args)) + ")")
		default:
			return "", nil, false
		}
		for _, a := range args {
			bindings = append(bindings, a)
		}
	}
	if !built && root.Name() == "ok" && len(args) == 1 {
		b.WriteString(".build()")
	}
	return b.String(), bindings, true
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("#{}, ", n), ", ")
}

// chainOf returns the calls of the fluent chain that ends in n, innermost
// first.
func chainOf(n *tree.Node) []*tree.Node {
	var calls []*tree.Node
	for cur := n; cur != nil && cur.Kind() == tree.KindMethodCall; cur = receiver(cur) {
		calls = append([]*tree.Node{cur}, calls...)
	}
	return calls
}

// receiver returns the expression a call is made on, or nil for an
// unqualified call.
func receiver(call *tree.Node) *tree.Node {
	if call.Len() < 4 {
		return nil
	}
	return call.Child(0)
}

// isChained reports whether another call is made on the result of n, so n
// is not the end of its chain.
func isChained(c *cursor.Cursor, n *tree.Node) bool {
	p := c.ParentNode()
	return p != nil && p.Kind() == tree.KindMethodCall && receiver(p) != nil && receiver(p).ID() == n.ID()
}
