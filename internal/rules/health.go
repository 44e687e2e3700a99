package rules

import (
	"slices"
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
	springHealth    = "org.springframework.boot.actuate.health.Health"
	healthIndicator = "org.springframework.boot.actuate.health.HealthIndicator"

	healthCheck         = "org.eclipse.microprofile.health.HealthCheck"
	healthCheckResponse = "org.eclipse.microprofile.health.HealthCheckResponse"
	readiness           = "org.eclipse.microprofile.health.Readiness"
)

// msgHealthCheck marks a class implementing HealthIndicator with its own ID.
const msgHealthCheck = "health.check"

// healthKinds are the MicroProfile annotations that already say which
// health endpoint reports a check.
var healthKinds = []string{
	readiness,
	"org.eclipse.microprofile.health.Liveness",
	"org.eclipse.microprofile.health.Startup",
}

type healthRule struct {
	status *matcher.MethodMatcher
	scoped *template.Template
	ready  *template.Template
	jp     *java.Parser
}

// NewSpringHealthIndicatorToQuarkus turns Spring Boot health indicators into
// MicroProfile readiness checks. health() becomes call(), and
// Health.up()/down() builder chains become named HealthCheckResponse
// chains. Chains the MicroProfile builder cannot express stay as they are.
func NewSpringHealthIndicatorToQuarkus(jp *java.Parser) *recipe.Simple {
	r := &healthRule{
		status: matcher.MustMethod(springHealth+" *()", false),
		scoped: annotation(jp, "@ApplicationScoped", cdiApplicationScoped),
		ready:  annotation(jp, "@Readiness", readiness),
		jp:     jp,
	}
	return &recipe.Simple{
		ID:      "SpringHealthIndicatorToQuarkus",
		Summary: "Convert Spring Boot health indicators to MicroProfile health checks",
		When:    gate.UsesType(healthIndicator, false),
		Visit: visitor.New("SpringHealthIndicatorToQuarkus").
			OnEnter(r.enterClass, tree.KindClassDecl).
			On(r.typeName, tree.KindIdentifier).
			On(r.call, tree.KindMethodCall).
			On(r.method, tree.KindMethodDecl).
			On(r.class, tree.KindClassDecl),
	}
}

func (r *healthRule) enterClass(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if implements(n, healthIndicator) {
		c.PutMessage(msgHealthCheck, n.ID())
	}
	return n, nil
}

// inCheck returns the health check class enclosing c, or nil.
func inCheck(c *cursor.Cursor) *tree.Node {
	cls := c.NearestAncestor(tree.KindClassDecl)
	if cls == nil {
		return nil
	}
	if id, ok := cursor.Get[tree.ID](cls, msgHealthCheck); !ok || id != cls.Node().ID() {
		return nil
	}
	return cls.Node()
}

func (r *healthRule) typeName(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if n.Syntax() != "type_identifier" {
		return n, nil
	}
	to := ""
	switch n.FQN() {
	case healthIndicator:
		to = healthCheck
	case springHealth:
		if inCheck(c) == nil {
			return n, nil
		}
		to = healthCheckResponse
	default:
		return n, nil
	}
	c.Imports().Remove(n.FQN())
	c.Imports().Add(to)
	return n.WithText(matcher.SimpleName(to)).WithType(&tree.Type{FQN: to}), nil
}

func (r *healthRule) call(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if isChained(c, n) {
		return n, nil
	}
	calls := chainOf(n)
	root := calls[0]
	if !r.status.Matches(root) || root.Name() != "up" && root.Name() != "down" {
		return n, nil
	}
	cls := inCheck(c)
	if cls == nil {
		return n, nil
	}

	var (
		b        strings.Builder
		bindings []any
		built    bool
	)
	b.WriteString(`HealthCheckResponse.named("` + cls.Name() + `").` + root.Name() + "()")
	for _, link := range calls[1:] {
		args := arguments(link)
		switch {
		case built:
			return n, nil
		case link.Name() == "withDetail" && len(args) == 2:
			b.WriteString(".withData(#{}, #{})")
		case link.Name() == "build" && len(args) == 0:
			b.WriteString(".build()")
			built = true
		default:
			return n, nil
		}
		for _, a := range args {
			bindings = append(bindings, a)
		}
	}
	if !built {
		return n, nil
	}
	return r.jp.Template(b.String()).Imports(healthCheckResponse).Apply(c, template.Replace(n), bindings...)
}

// method renames the indicator's health() to the check's call().
func (r *healthRule) method(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if !isAccessor(n, "health", 0) || inCheck(c) == nil {
		return n, nil
	}
	for i, child := range n.Children() {
		if child.Syntax() == "identifier" {
			return n.WithChild(i, child.WithText("call")).WithName("call"), nil
		}
	}
	return n, nil
}

func (r *healthRule) class(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
	if id, ok := cursor.Get[tree.ID](c, msgHealthCheck); !ok || id != n.ID() {
		return n, nil
	}
	var err error
	if !slices.ContainsFunc(cdiScopes, func(fqn string) bool { return hasAnnotation(n, fqn) }) {
		if n, err = r.scoped.Apply(c, template.AddAnnotation(n, nil)); err != nil {
			return n, err
		}
	}
	if hasAnyAnnotation(n, healthKinds) {
		return n, nil
	}
	return r.ready.Apply(c, template.AddAnnotation(n, nil))
}

// implements reports whether decl lists fqn in its implements clause.
func implements(decl *tree.Node, fqn string) bool {
	for _, clause := range decl.Children() {
		if clause.Syntax() != "super_interfaces" {
			continue
		}
		if tree.Any(clause, func(x *tree.Node) bool { return x.FQN() == fqn }) {
			return true
		}
	}
	return false
}
