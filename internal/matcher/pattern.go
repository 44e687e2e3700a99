package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// TypePattern matches fully qualified type names. "*" matches within one
// name segment, ".." matches any number of package segments, and "$" is
// accepted as the nested type separator.
type TypePattern struct {
	raw string
	re  *regexp.Regexp
}

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

// CompileType compiles a type pattern.
func CompileType(pattern string) (*TypePattern, error) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return nil, fmt.Errorf("%w: empty type pattern", ErrInvalidSignature)
	}
	p = strings.ReplaceAll(p, "$", ".")
	if strings.HasSuffix(p, "...") {
		p = strings.TrimSuffix(p, "...") + "[]"
	}

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(p); i++ {
		switch {
		case strings.HasPrefix(p[i:], ".."):
			b.WriteString(`\.(?:[^.]+\.)*`)
			i++
		case p[i] == '*':
			b.WriteString(`[^.]*`)
		case p[i] == '[' || p[i] == ']' || p[i] == '.':
			b.WriteString(regexp.QuoteMeta(p[i : i+1]))
		case isNameByte(p[i]):
			b.WriteByte(p[i])
		default:
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidSignature, p[i], pattern)
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &TypePattern{raw: pattern, re: re}, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// MustCompileType is CompileType for patterns known at build time.
func MustCompileType(pattern string) *TypePattern {
	p, err := CompileType(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether fqn matches the pattern.
func (p *TypePattern) Match(fqn string) bool {
	if fqn == "" {
		return false
	}
	return p.re.MatchString(strings.ReplaceAll(fqn, "$", "."))
}

// Exact reports whether the pattern has no wildcard.
func (p *TypePattern) Exact() bool {
	return !strings.Contains(p.raw, "*") && !strings.Contains(p.raw, "..")
}

func (p *TypePattern) String() string { return p.raw }

// paramPattern normalises a parameter type written in a method signature.
// Bare names other than primitives resolve against java.lang.
func paramPattern(s string) (*TypePattern, error) {
	s = strings.TrimSpace(s)
	base := strings.TrimSuffix(strings.TrimSuffix(s, "..."), "[]")
	if !strings.Contains(base, ".") && base != "*" && !primitives[base] {
		s = "java.lang." + s
	}
	return CompileType(s)
}
