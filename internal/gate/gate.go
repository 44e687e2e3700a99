// Package gate holds the cheap whole-tree checks a recipe runs before its
// visitor, so files that never mention the relevant symbols are skipped.
package gate

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/matcher"
	"github.com/oxhq/quarkmig/internal/tree"
)

// Gate decides whether a file is worth visiting. Gates never modify the tree.
type Gate func(root *tree.Node) bool

// Always admits every tree.
func Always(*tree.Node) bool { return true }

// And admits a tree when every gate does. It short-circuits left to right.
func And(gs ...Gate) Gate {
	return func(root *tree.Node) bool {
		for _, g := range gs {
			if !g(root) {
				return false
			}
		}
		return true
	}
}

// Or admits a tree when any gate does.
func Or(gs ...Gate) Gate {
	return func(root *tree.Node) bool {
		for _, g := range gs {
			if g(root) {
				return true
			}
		}
		return false
	}
}

// Not inverts g.
func Not(g Gate) Gate {
	return func(root *tree.Node) bool { return !g(root) }
}

// Uses admits trees containing a node m matches.
func Uses(m matcher.Matcher) Gate {
	return func(root *tree.Node) bool {
		return tree.Any(root, m.Matches)
	}
}

// UsesType admits trees referencing the type pattern anywhere, imports
// included.
func UsesType(pattern string, includeSubtypes bool) Gate {
	return Uses(matcher.MustType(pattern, includeSubtypes))
}

// UsesAnyType is Or over UsesType for exact type names.
func UsesAnyType(fqns ...string) Gate {
	gs := make([]Gate, len(fqns))
	for i, fqn := range fqns {
		gs[i] = UsesType(fqn, false)
	}
	return Or(gs...)
}

// UsesMethod admits trees calling or declaring a method the signature
// matches.
func UsesMethod(signature string, matchOverrides bool) Gate {
	return Uses(matcher.MustMethod(signature, matchOverrides))
}

// HasTag admits XML trees containing a tag at the given path.
func HasTag(path string) Gate {
	m := matcher.Tag(path)
	return func(root *tree.Node) bool {
		var stack []*tree.Node
		return walkPath(root, &stack, m)
	}
}

func walkPath(n *tree.Node, stack *[]*tree.Node, m *matcher.TagMatcher) bool {
	*stack = append(*stack, n)
	defer func() { *stack = (*stack)[:len(*stack)-1] }()
	if n.Kind() == tree.KindTag && m.MatchesPath(*stack) {
		return true
	}
	for _, c := range n.Children() {
		if c.Kind() == tree.KindTag && walkPath(c, stack, m) {
			return true
		}
	}
	return false
}

// IsJava admits Java compilation units.
func IsJava(root *tree.Node) bool {
	return root != nil && root.Kind() == tree.KindCompilationUnit
}

// IsManifest admits XML documents whose root tag is <project>.
func IsManifest(root *tree.Node) bool {
	if root == nil || root.Kind() != tree.KindDocument {
		return false
	}
	p := root.FirstChild(tree.KindTag)
	return p != nil && strings.EqualFold(p.Name(), "project")
}
