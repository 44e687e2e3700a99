package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// MethodMatcher matches method calls and declarations by declaring type,
// name and parameter types. Nodes without resolved method metadata never
// match.
type MethodMatcher struct {
	sig            string
	owner          *TypePattern
	name           *regexp.Regexp
	params         []*TypePattern // nil entry stands for ".."
	matchOverrides bool
}

// Method compiles "owner.Type methodName(paramTypes)". ".." in the
// parameter list matches any remaining parameters. With matchOverrides a
// method declared by a subtype of owner also matches.
func Method(signature string, matchOverrides bool) (*MethodMatcher, error) {
	sig := strings.TrimSpace(signature)
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("%w: method signature %q needs a parameter list", ErrInvalidSignature, signature)
	}
	head := strings.Fields(sig[:open])
	if len(head) != 2 {
		return nil, fmt.Errorf("%w: method signature %q needs an owner and a name", ErrInvalidSignature, signature)
	}
	owner, err := CompileType(head[0])
	if err != nil {
		return nil, err
	}
	name, err := compileName(head[1])
	if err != nil {
		return nil, err
	}

	m := &MethodMatcher{sig: signature, owner: owner, name: name, matchOverrides: matchOverrides}
	inner := strings.TrimSpace(sig[open+1 : len(sig)-1])
	if inner == "" {
		return m, nil
	}
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		if p == ".." {
			m.params = append(m.params, nil)
			continue
		}
		tp, err := paramPattern(p)
		if err != nil {
			return nil, err
		}
		m.params = append(m.params, tp)
	}
	return m, nil
}

// MustMethod is Method for signatures known at build time.
func MustMethod(signature string, matchOverrides bool) *MethodMatcher {
	m, err := Method(signature, matchOverrides)
	if err != nil {
		panic(err)
	}
	return m
}

func compileName(s string) (*regexp.Regexp, error) {
	if s == "<constructor>" {
		return regexp.MustCompile(`^<constructor>$`), nil
	}
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '*':
			b.WriteString(".*")
		case isNameByte(s[i]):
			b.WriteByte(s[i])
		default:
			return nil, fmt.Errorf("%w: bad method name %q", ErrInvalidSignature, s)
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Matches reports whether n is a call or declaration of the method.
func (m *MethodMatcher) Matches(n *tree.Node) bool {
	if n == nil || n.Type() == nil || n.Type().Method == nil {
		return false
	}
	if n.Kind() != tree.KindMethodCall && n.Kind() != tree.KindMethodDecl {
		return false
	}
	return m.MatchesMethod(n.Type().Method)
}

// MatchesMethod applies the matcher to raw method metadata.
func (m *MethodMatcher) MatchesMethod(meth *tree.Method) bool {
	if meth.Declaring == "" || !m.name.MatchString(meth.Name) {
		return false
	}
	if !m.owner.Match(meth.Declaring) {
		if !m.matchOverrides {
			return false
		}
		found := false
		for _, st := range meth.DeclaringSupertypes {
			if m.owner.Match(st) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return matchParams(m.params, meth.Params)
}

func matchParams(patterns []*TypePattern, params []string) bool {
	if len(patterns) == 0 {
		return len(params) == 0
	}
	if patterns[0] == nil {
		// ".." absorbs zero or more parameters.
		for i := 0; i <= len(params); i++ {
			if matchParams(patterns[1:], params[i:]) {
				return true
			}
		}
		return false
	}
	if len(params) == 0 || !patterns[0].Match(params[0]) {
		return false
	}
	return matchParams(patterns[1:], params[1:])
}

func (m *MethodMatcher) String() string { return m.sig }
