package rules

import (
	"regexp"
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
	springApplication     = "org.springframework.boot.SpringApplication"
	springBootApplication = "org.springframework.boot.autoconfigure.SpringBootApplication"
	springApplicationRun  = springApplication + " run(..)"
)

// NewSpringApplicationRunToQuarkusRun replaces SpringApplication.run(App.class,
// args) with Quarkus.run(args).
func NewSpringApplicationRunToQuarkusRun(jp *java.Parser) *recipe.Simple {
	run := matcher.MustMethod(springApplicationRun, true)
	quarkusRun := jp.Template("Quarkus.run(#{})").Imports("io.quarkus.runtime.Quarkus")

	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if !run.Matches(n) {
			return n, nil
		}
		args := arguments(n)
		if len(args) > 0 {
			args = args[1:]
		}
		if len(args) == 1 {
			return quarkusRun.Apply(c, template.Replace(n), args[0])
		}
		src := make([]string, len(args))
		for i, a := range args {
			src[i] = a.Source()
		}
		return quarkusRun.Apply(c, template.Replace(n), strings.Join(src, ", "))
	}

	return &recipe.Simple{
		ID:      "SpringApplicationRunToQuarkusRun",
		Summary: "Replace SpringApplication.run() with Quarkus.run()",
		When:    gate.UsesMethod(springApplicationRun, true),
		Visit:   visitor.New("SpringApplicationRunToQuarkusRun").On(visit, tree.KindMethodCall),
	}
}

// arguments returns the argument expressions of a call.
func arguments(call *tree.Node) []*tree.Node {
	list := call.FirstChild(tree.KindArguments)
	if list == nil {
		return nil
	}
	var out []*tree.Node
	for _, a := range list.Children() {
		if a.Kind() != tree.KindToken && a.Kind() != tree.KindComment {
			out = append(out, a)
		}
	}
	return out
}

const msgRunRemoved = "boot.runRemoved"

// NewRemoveSpringBootApplication drops @SpringBootApplication and any
// remaining SpringApplication.run() statement. A main method that this
// leaves empty is removed after the pass; one that was empty already stays.
func NewRemoveSpringBootApplication() *recipe.Simple {
	bootApp := matcher.MustAnnotation("@" + springBootApplication)
	run := matcher.MustMethod(springApplicationRun, true)
	removeMain := func(id tree.ID) *visitor.Visitor {
		return visitor.New("RemoveEmptyMainMethod").On(func(_ *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
			if n.ID() == id && isEmptyBody(n) {
				return nil, nil
			}
			return n, nil
		}, tree.KindMethodDecl)
	}

	onAnnotation := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if !bootApp.Matches(n) {
			return n, nil
		}
		c.Imports().Remove(springBootApplication)
		return nil, nil
	}
	onStatement := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if n.Syntax() != "expression_statement" || !run.Matches(n.Child(0)) {
			return n, nil
		}
		c.Imports().Remove(springApplication)
		c.PutMessageOnNearest(msgRunRemoved, true, tree.KindMethodDecl)
		return nil, nil
	}
	onMethod := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		removed, _ := cursor.Poll[bool](c, msgRunRemoved)
		if removed && isMain(n) && isEmptyBody(n) {
			c.DoAfter(removeMain(n.ID()))
		}
		return n, nil
	}

	return &recipe.Simple{
		ID:      "RemoveSpringBootApplication",
		Summary: "Remove @SpringBootApplication and the Spring Boot main method",
		When:    gate.Or(gate.UsesType(springBootApplication, false), gate.UsesMethod(springApplicationRun, true)),
		Visit: visitor.New("RemoveSpringBootApplication").
			On(onAnnotation, tree.KindAnnotation).
			On(onStatement, tree.KindStatement).
			On(onMethod, tree.KindMethodDecl),
	}
}

var mainParam = regexp.MustCompile(`^(final)?(java\.lang\.)?String(\[\]\w+|\.\.\.\w+|\w+\[\])$`)

// isMain reports whether decl is public static void main(String[]).
func isMain(decl *tree.Node) bool {
	if decl.Kind() != tree.KindMethodDecl || decl.Name() != "main" {
		return false
	}
	mods := decl.FirstChild(tree.KindModifiers)
	if mods == nil {
		return false
	}
	var words []string
	for _, m := range mods.ChildrenOf(tree.KindModifier) {
		words = append(words, m.Text())
	}
	if !slices.Contains(words, "public") || !slices.Contains(words, "static") {
		return false
	}
	params := decl.FirstChild(tree.KindParameters)
	if params == nil {
		return false
	}
	ps := params.ChildrenOf(tree.KindParameter)
	if len(ps) != 1 {
		return false
	}
	return mainParam.MatchString(strings.Join(strings.Fields(ps[0].Source()), ""))
}

func isEmptyBody(decl *tree.Node) bool {
	body := decl.FirstChild(tree.KindBlock)
	if body == nil {
		return false
	}
	for _, c := range body.Children() {
		if c.Kind() != tree.KindToken {
			return false
		}
	}
	return true
}
