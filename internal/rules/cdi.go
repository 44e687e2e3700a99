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

const eventListener = "org.springframework.context.event.EventListener"

const msgObserver = "cdi.observer"

// NewEventListenerToObserves moves a Spring @EventListener from the method
// to a CDI @Observes on its first parameter. Listeners without parameters
// are left alone.
func NewEventListenerToObserves(jp *java.Parser) *recipe.Simple {
	listener := matcher.MustAnnotation("@" + eventListener)
	observes := annotation(jp, "@Observes", "jakarta.enterprise.event.Observes")

	onAnnotation := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if !listener.Matches(n) {
			return n, nil
		}
		m := c.NearestAncestor(tree.KindMethodDecl, tree.KindClassDecl)
		if m == nil || m.Node().Kind() != tree.KindMethodDecl || firstParameter(m.Node()) < 0 {
			return n, nil
		}
		m.PutMessage(msgObserver, true)
		c.Imports().Remove(eventListener)
		return nil, nil
	}
	onMethod := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if ok, _ := cursor.Poll[bool](c, msgObserver); !ok {
			return n, nil
		}
		i := n.IndexOf(n.FirstChild(tree.KindParameters).ID())
		params := n.Child(i)
		j := firstParameter(n)
		p, err := observes.Apply(c, template.AddAnnotation(params.Child(j), nil))
		if err != nil {
			return n, err
		}
		return n.WithChild(i, params.WithChild(j, p)), nil
	}

	return &recipe.Simple{
		ID:      "EventListenerToObserves",
		Summary: "Convert Spring @EventListener methods to CDI @Observes observers",
		When:    gate.UsesType(eventListener, false),
		Visit: visitor.New("EventListenerToObserves").
			On(onAnnotation, tree.KindAnnotation).
			On(onMethod, tree.KindMethodDecl),
	}
}

// firstParameter returns the child index of the first parameter inside the
// parameter list of decl, or -1.
func firstParameter(decl *tree.Node) int {
	params := decl.FirstChild(tree.KindParameters)
	if params == nil {
		return -1
	}
	return slices.IndexFunc(params.Children(), func(n *tree.Node) bool {
		return n.Kind() == tree.KindParameter
	})
}

// NewStereotypesToCdi swaps Spring stereotypes and injection annotations
// for their CDI counterparts. A declaration that would end up with the
// same CDI annotation twice keeps only the first.
func NewStereotypesToCdi(cat *Catalog, jp *java.Parser) *recipe.Simple {
	to := table(cat.Stereotypes)
	markers := map[string]*template.Template{}
	from := make([]string, 0, len(cat.Stereotypes))
	for _, m := range cat.Stereotypes {
		from = append(from, m.From)
		if markers[m.To] == nil {
			markers[m.To] = annotation(jp, "@"+matcher.SimpleName(m.To), m.To)
		}
	}

	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		target := to[n.FQN()]
		if target == "" {
			return n, nil
		}
		if mods := c.ParentNode(); mods != nil && mods.Kind() == tree.KindModifiers {
			before := true
			for _, sib := range mods.ChildrenOf(tree.KindAnnotation) {
				if sib.ID() == n.ID() {
					before = false
					continue
				}
				if sib.FQN() == target || before && to[sib.FQN()] == target {
					c.Imports().Remove(n.FQN())
					return nil, nil
				}
			}
		}
		return markers[target].Apply(c, template.Replace(n))
	}

	return &recipe.Simple{
		ID:      "StereotypesToCdi",
		Summary: "Replace Spring stereotypes and @Autowired with CDI annotations",
		When:    gate.UsesAnyType(from...),
		Visit:   visitor.New("StereotypesToCdi").On(visit, tree.KindAnnotation),
	}
}

const (
	springBean  = "org.springframework.context.annotation.Bean"
	springScope = "org.springframework.context.annotation.Scope"
	beanFactory = "org.springframework.beans.factory.config.ConfigurableBeanFactory"

	cdiApplicationScoped = "jakarta.enterprise.context.ApplicationScoped"
	cdiDependent         = "jakarta.enterprise.context.Dependent"
)

// Cursor messages of the producer rule, all kept on the method.
const (
	msgProducer  = "bean.producer"
	msgBeanName  = "bean.name"
	msgBeanScope = "bean.scope"
)

// cdiScopes are the annotations that already give a producer its scope.
var cdiScopes = []string{
	cdiApplicationScoped,
	cdiDependent,
	"jakarta.enterprise.context.RequestScoped",
	"jakarta.enterprise.context.SessionScoped",
	"jakarta.inject.Singleton",
}

// NewSpringBeanToCdiProduces turns @Bean methods into CDI producers. The
// producer is @ApplicationScoped unless @Scope asks for prototype beans,
// which become @Dependent; a bean name becomes @Named.
func NewSpringBeanToCdiProduces(jp *java.Parser) *recipe.Simple {
	bean := matcher.MustAnnotation("@" + springBean)
	scope := matcher.MustAnnotation("@" + springScope)
	produces := annotation(jp, "@Produces", "jakarta.enterprise.inject.Produces")
	named := annotation(jp, "@Named(#{})", "jakarta.inject.Named")
	scoped := map[string]*template.Template{
		cdiApplicationScoped: annotation(jp, "@ApplicationScoped", cdiApplicationScoped),
		cdiDependent:         annotation(jp, "@Dependent", cdiDependent),
	}

	onAnnotation := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		isBean, isScope := bean.Matches(n), scope.Matches(n)
		if !isBean && !isScope {
			return n, nil
		}
		m := c.NearestAncestor(tree.KindMethodDecl, tree.KindClassDecl)
		if m == nil || m.Node().Kind() != tree.KindMethodDecl {
			return n, nil
		}
		if isScope {
			if !hasAnnotation(m.Node(), springBean) {
				return n, nil
			}
			m.PutMessage(msgBeanScope, beanScope(n))
			c.Imports().Remove(springScope)
			c.Imports().Remove(beanFactory)
			return nil, nil
		}
		m.PutMessage(msgProducer, true)
		if v := beanName(n); v != nil {
			m.PutMessage(msgBeanName, v)
		}
		return produces.Apply(c, template.Replace(n))
	}
	onMethod := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if ok, _ := cursor.Poll[bool](c, msgProducer); !ok {
			return n, nil
		}
		var err error
		if v, ok := cursor.Poll[*tree.Node](c, msgBeanName); ok {
			if n, err = named.Apply(c, template.AddAnnotation(n, nil), v); err != nil {
				return n, err
			}
		}
		target := cdiApplicationScoped
		if s, ok := cursor.Poll[string](c, msgBeanScope); ok {
			target = s
		}
		if slices.ContainsFunc(cdiScopes, func(fqn string) bool { return hasAnnotation(n, fqn) }) {
			return n, nil
		}
		return scoped[target].Apply(c, template.AddAnnotation(n, nil))
	}

	return &recipe.Simple{
		ID:      "SpringBeanToCdiProduces",
		Summary: "Replace Spring @Bean methods with scoped CDI @Produces methods",
		When:    gate.UsesType(springBean, false),
		Visit: visitor.New("SpringBeanToCdiProduces").
			On(onAnnotation, tree.KindAnnotation).
			On(onMethod, tree.KindMethodDecl),
	}
}

// beanName returns the string literal naming a bean, from @Bean("x") or
// @Bean(name = "x"), or nil.
func beanName(ann *tree.Node) *tree.Node {
	v, ok := matcher.AnnotationArgument(ann, "value")
	if !ok {
		v, ok = matcher.AnnotationArgument(ann, "name")
	}
	if !ok {
		return nil
	}
	if v = firstElement(v); v == nil || v.Syntax() != "string_literal" {
		return nil
	}
	return v
}

// beanScope maps a Spring @Scope to a CDI scope. Prototype beans, named by
// literal or by constant, are @Dependent; everything else is
// @ApplicationScoped.
func beanScope(ann *tree.Node) string {
	v, ok := matcher.AnnotationArgument(ann, "value")
	if !ok {
		v, ok = matcher.AnnotationArgument(ann, "scopeName")
	}
	if ok && strings.Contains(strings.ToLower(v.Source()), "prototype") {
		return cdiDependent
	}
	return cdiApplicationScoped
}
