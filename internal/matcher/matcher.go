// Package matcher compiles signature strings into predicates over tree
// nodes. Construction has no side effects and matching depends only on the
// node, so a matcher can be shared by any number of concurrent passes.
package matcher

import (
	"errors"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// ErrInvalidSignature is returned for signatures that do not parse.
var ErrInvalidSignature = errors.New("invalid signature")

// Matcher is a compiled node predicate.
type Matcher interface {
	Matches(n *tree.Node) bool
	String() string
}

// Func adapts a plain predicate to Matcher.
type Func struct {
	Name string
	Fn   func(*tree.Node) bool
}

func (f Func) Matches(n *tree.Node) bool { return n != nil && f.Fn(n) }
func (f Func) String() string            { return f.Name }

type anyOf []Matcher

// AnyOf matches when one of ms matches.
func AnyOf(ms ...Matcher) Matcher { return anyOf(ms) }

func (a anyOf) Matches(n *tree.Node) bool {
	for _, m := range a {
		if m.Matches(n) {
			return true
		}
	}
	return false
}

func (a anyOf) String() string {
	parts := make([]string, len(a))
	for i, m := range a {
		parts[i] = m.String()
	}
	return "any(" + strings.Join(parts, ", ") + ")"
}

// SimpleName returns the last segment of a dotted name.
func SimpleName(fqn string) string {
	return fqn[strings.LastIndexAny(fqn, ".$")+1:]
}

// PackageOf returns everything before the last dot of fqn.
func PackageOf(fqn string) string {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return ""
	}
	return fqn[:i]
}
