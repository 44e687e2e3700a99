package rules

import (
	"regexp"

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
	springValue    = "org.springframework.beans.factory.annotation.Value"
	configProperty = "org.eclipse.microprofile.config.inject.ConfigProperty"
)

// propertyRef matches ${key} and ${key:default}.
var propertyRef = regexp.MustCompile(`^[$][{]([^:}]+)(?::([^}]+))?[}]$`)

// NewSpringValueToConfigProperty replaces @Value("${key:default}") with
// MicroProfile @ConfigProperty. Values that are not a single property
// reference are left alone.
func NewSpringValueToConfigProperty(jp *java.Parser) *recipe.Simple {
	value := matcher.MustAnnotation("@" + springValue)
	named := annotation(jp, "@ConfigProperty(name = #{})", configProperty)
	defaulted := annotation(jp, "@ConfigProperty(name = #{}, defaultValue = #{})", configProperty)

	visit := func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if !value.Matches(n) {
			return n, nil
		}
		arg, ok := matcher.AnnotationArgument(n, "value")
		if !ok || arg.Kind() != tree.KindLiteral || arg.Syntax() != "string_literal" {
			return n, nil
		}
		text := arg.Text()
		m := propertyRef.FindStringSubmatch(text[1 : len(text)-1])
		if m == nil {
			return n, nil
		}
		if m[2] == "" {
			return named.Apply(c, template.Replace(n), quote(m[1]))
		}
		return defaulted.Apply(c, template.Replace(n), quote(m[1]), quote(m[2]))
	}

	return &recipe.Simple{
		ID:      "SpringValueToConfigProperty",
		Summary: "Replace Spring @Value property injection with MicroProfile @ConfigProperty",
		When:    gate.UsesType(springValue, false),
		Visit:   visitor.New("SpringValueToConfigProperty").On(visit, tree.KindAnnotation),
	}
}

// quote wraps text taken from inside a Java string literal, whose escapes
// are still in place, back into a literal.
func quote(s string) string { return `"` + s + `"` }
