package matcher

import (
	"fmt"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// AnnotationMatcher matches annotation applications by resolved type.
// Annotations are not inherited, so only the exact type (or a type the
// pattern's wildcards cover) matches.
type AnnotationMatcher struct {
	sig  string
	typ  *TypePattern
	args map[string]string
}

// Annotation compiles "@fully.qualified.Name". An optional argument list
// "(key=value, ...)" additionally requires those literal element values,
// with "value" naming the single unnamed argument.
func Annotation(signature string) (*AnnotationMatcher, error) {
	s := strings.TrimSpace(signature)
	if !strings.HasPrefix(s, "@") {
		return nil, fmt.Errorf("%w: annotation signature %q must start with @", ErrInvalidSignature, signature)
	}
	s = s[1:]
	var args map[string]string
	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidSignature, signature)
		}
		args = map[string]string{}
		for _, pair := range strings.Split(s[i+1:len(s)-1], ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				k, v = "value", pair
			}
			args[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		s = s[:i]
	}
	typ, err := CompileType(s)
	if err != nil {
		return nil, err
	}
	return &AnnotationMatcher{sig: signature, typ: typ, args: args}, nil
}

// MustAnnotation is Annotation for signatures known at build time.
func MustAnnotation(signature string) *AnnotationMatcher {
	m, err := Annotation(signature)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether n is an annotation of the matcher's type.
func (m *AnnotationMatcher) Matches(n *tree.Node) bool {
	if n == nil || n.Kind() != tree.KindAnnotation || !m.typ.Match(n.FQN()) {
		return false
	}
	for k, want := range m.args {
		got, ok := AnnotationArgument(n, k)
		if !ok || got.Source() != want {
			return false
		}
	}
	return true
}

func (m *AnnotationMatcher) String() string { return m.sig }

// AnnotationArgument returns the value node of the named element of an
// annotation. "value" also finds a single positional argument.
func AnnotationArgument(ann *tree.Node, name string) (*tree.Node, bool) {
	args := ann.FirstChild(tree.KindArguments)
	if args == nil {
		return nil, false
	}
	var positional []*tree.Node
	for _, c := range args.Children() {
		if c.Kind() == tree.KindToken {
			continue
		}
		if c.Kind() == tree.KindAssignment {
			if key := c.Child(0); key != nil && key.Source() == name {
				return AssignmentValue(c), true
			}
			continue
		}
		positional = append(positional, c)
	}
	if name == "value" && len(positional) == 1 {
		return positional[0], true
	}
	return nil, false
}

// AssignmentValue returns the right hand side of a key = value node.
func AssignmentValue(assign *tree.Node) *tree.Node {
	i, _ := assign.FirstToken("=")
	if i < 0 {
		return nil
	}
	return assign.Child(i + 1)
}
