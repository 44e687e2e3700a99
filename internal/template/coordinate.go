package template

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

type mode int

const (
	modeReplace mode = iota
	modeBefore
	modeAddAnnotation
	modeReplaceArguments
)

func (m mode) String() string {
	switch m {
	case modeReplace:
		return "replace"
	case modeBefore:
		return "before"
	case modeAddAnnotation:
		return "add-annotation"
	case modeReplaceArguments:
		return "replace-arguments"
	}
	return "unknown"
}

// Coordinate says where a fragment attaches. Apply returns the new form of
// the coordinate's target: the replaced node, the container or the
// declaration.
type Coordinate struct {
	mode   mode
	target *tree.Node
	child  *tree.Node
	cmp    func(added, existing *tree.Node) int
}

// Replace swaps n for the fragment. The fragment takes over n's prefix.
func Replace(n *tree.Node) Coordinate {
	return Coordinate{mode: modeReplace, target: n}
}

// Before inserts the fragment into container right before child.
func Before(container, child *tree.Node) Coordinate {
	return Coordinate{mode: modeBefore, target: container, child: child}
}

// AddAnnotation adds the annotation fragment to the modifiers of decl. It
// goes before the first existing annotation that cmp orders after it, or
// after the last annotation when there is none. A nil cmp always appends.
func AddAnnotation(decl *tree.Node, cmp func(added, existing *tree.Node) int) Coordinate {
	return Coordinate{mode: modeAddAnnotation, target: decl, cmp: cmp}
}

// ReplaceArguments swaps the argument list of an annotation or a call. A
// marker annotation gains one.
func ReplaceArguments(n *tree.Node) Coordinate {
	return Coordinate{mode: modeReplaceArguments, target: n}
}

// Target returns the node Apply rewrites.
func (c Coordinate) Target() *tree.Node { return c.target }

// BySimpleName orders annotations by the simple name of their type.
func BySimpleName(a, b *tree.Node) int {
	return strings.Compare(simpleName(a.Name()), simpleName(b.Name()))
}

func simpleName(name string) string {
	return name[strings.LastIndexByte(name, '.')+1:]
}
