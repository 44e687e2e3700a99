package xml

import (
	"encoding/xml"
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// DefaultIndent is used when a document shows no indentation to copy.
const DefaultIndent = "    "

// Element builds <name>value</name> with value escaped. An empty value
// gives <name></name>.
func Element(name, value string) *tree.Node {
	children := []*tree.Node{tree.Leaf(tree.KindToken, StartTag, "", "<"+name+">")}
	if value != "" {
		var b strings.Builder
		_ = xml.EscapeText(&b, []byte(value))
		children = append(children, tree.Leaf(tree.KindText, "text", "", b.String()))
	}
	children = append(children, tree.Leaf(tree.KindToken, EndTag, "", "</"+name+">"))
	return tree.New(tree.KindTag, "element", children...).WithName(name)
}

// Parent builds <name> holding children, one per line, indented by unit
// relative to the element itself.
func Parent(name, unit string, children ...*tree.Node) *tree.Node {
	out := []*tree.Node{tree.Leaf(tree.KindToken, StartTag, "", "<"+name+">")}
	for _, c := range children {
		out = append(out, Indent(c, unit).WithPrefix("\n"+unit))
	}
	out = append(out, tree.Leaf(tree.KindToken, EndTag, "\n", "</"+name+">"))
	return tree.New(tree.KindTag, "element", out...).WithName(name)
}

// Indent shifts every line break below n by indent. The prefix of n itself
// is left alone.
func Indent(n *tree.Node, indent string) *tree.Node {
	if indent == "" {
		return n
	}
	out := n
	for i, c := range n.Children() {
		nc := Indent(c, indent)
		if p := nc.Prefix(); strings.Contains(p, "\n") {
			nc = nc.WithPrefix(strings.ReplaceAll(p, "\n", "\n"+indent))
		}
		if nc != c {
			out = out.WithChild(i, nc)
		}
	}
	return out
}

// IndentUnit guesses the indentation step of doc from the first nested
// element that starts a line.
func IndentUnit(doc *tree.Node) string {
	root := Root(doc)
	if root == nil {
		return DefaultIndent
	}
	for _, c := range root.Children() {
		if c.Kind() != tree.KindTag || !strings.Contains(c.Prefix(), "\n") {
			continue
		}
		if unit, ok := strings.CutPrefix(c.Indent(), root.Indent()); ok && unit != "" {
			return unit
		}
	}
	return DefaultIndent
}

// Elements returns the child elements of tag.
func Elements(tag *tree.Node) []*tree.Node {
	if tag == nil {
		return nil
	}
	return tag.ChildrenOf(tree.KindTag)
}

// expand turns <name/> into <name></name>.
func expand(tag *tree.Node) *tree.Node {
	open := tag.Child(0)
	if open == nil || open.Syntax() != EmptyTag {
		return tag
	}
	text := strings.TrimRight(strings.TrimSuffix(open.Text(), "/>"), " \t\r\n") + ">"
	tag = tag.WithChild(0, tree.Leaf(tree.KindToken, StartTag, open.Prefix(), text))
	return tag.Append(tree.Leaf(tree.KindToken, EndTag, "", "</"+tag.Name()+">"))
}

// AppendChild adds child as the last element of tag, on its own line and
// indented like its siblings, or one unit deeper than tag when it has none.
func AppendChild(tag, child *tree.Node, unit string) *tree.Node {
	if tag == nil || tag.Kind() != tree.KindTag {
		return tag
	}
	tag = expand(tag)
	indent := tag.Indent() + unit
	elems := Elements(tag)
	if len(elems) > 0 {
		if last := elems[len(elems)-1]; strings.Contains(last.Prefix(), "\n") {
			indent = last.Indent()
		}
	}
	closeIdx := tag.Len() - 1
	end := tag.Child(closeIdx)
	if !strings.Contains(end.Prefix(), "\n") {
		tag = tag.WithChild(closeIdx, end.WithPrefix("\n"+tag.Indent()))
	}
	return tag.Insert(closeIdx, Indent(child, indent).WithPrefix("\n"+indent))
}

// InsertAfter adds child to parent right after anchor, copying the
// anchor's leading whitespace.
func InsertAfter(parent, anchor, child *tree.Node) *tree.Node {
	idx := parent.IndexOf(anchor.ID())
	if idx < 0 {
		return parent
	}
	return parent.Insert(idx+1, Indent(child, anchor.Indent()).WithPrefix(anchor.Prefix()))
}

// InsertBefore adds child to parent right before anchor, on its own line
// at the anchor's indentation.
func InsertBefore(parent, anchor, child *tree.Node) *tree.Node {
	idx := parent.IndexOf(anchor.ID())
	if idx < 0 {
		return parent
	}
	indent := anchor.Indent()
	parent = parent.WithChild(idx, anchor.WithPrefix("\n"+indent))
	return parent.Insert(idx, Indent(child, indent).WithPrefix(anchor.Prefix()))
}
