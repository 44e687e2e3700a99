// Package xml turns build manifests into tree.Node graphs. The tree keeps
// every byte of the source: start and end tags are raw token leaves, and
// whitespace between tags is the prefix of the node that follows it.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oxhq/quarkmig/internal/template"
	"github.com/oxhq/quarkmig/internal/tree"
)

// ErrMalformed marks documents encoding/xml rejects or whose tags do not
// nest.
var ErrMalformed = errors.New("malformed xml")

// Tag token syntaxes.
const (
	StartTag = "start_tag"
	EndTag   = "end_tag"
	EmptyTag = "empty_tag"
)

type frame struct {
	name     string
	prefix   string
	open     *tree.Node
	children []*tree.Node
}

// Parse converts src into a document node.
func Parse(src []byte) (*tree.Node, error) {
	d := xml.NewDecoder(bytes.NewReader(src))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var (
		top     []*tree.Node
		stack   []*frame
		pending string
	)
	add := func(n *tree.Node) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		f := stack[len(stack)-1]
		f.children = append(f.children, n)
	}

	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw := string(src[start:d.InputOffset()])

		switch t := tok.(type) {
		case xml.StartElement:
			syntax := StartTag
			if strings.HasSuffix(raw, "/>") {
				syntax = EmptyTag
			}
			stack = append(stack, &frame{
				name:   qualified(t.Name),
				prefix: pending,
				open:   tree.Leaf(tree.KindToken, syntax, "", raw),
			})
			pending = ""
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformed, qualified(t.Name))
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if name := qualified(t.Name); name != f.name {
				return nil, fmt.Errorf("%w: </%s> closes <%s>", ErrMalformed, name, f.name)
			}
			children := append([]*tree.Node{f.open}, f.children...)
			if raw != "" {
				children = append(children, tree.Leaf(tree.KindToken, EndTag, pending, raw))
				pending = ""
			}
			add(tree.New(tree.KindTag, "element", children...).WithPrefix(f.prefix).WithName(f.name))
		case xml.CharData:
			if strings.HasPrefix(raw, "<![CDATA[") {
				add(tree.Leaf(tree.KindCData, "cdata", pending, raw))
				pending = ""
				continue
			}
			text := strings.TrimLeft(raw, " \t\r\n")
			if text == "" {
				pending += raw
				continue
			}
			add(tree.Leaf(tree.KindText, "text", pending+raw[:len(raw)-len(text)], text))
			pending = ""
		case xml.Comment:
			add(tree.Leaf(tree.KindXMLComment, "comment", pending, raw))
			pending = ""
		case xml.ProcInst:
			add(tree.Leaf(tree.KindProcInst, "proc_inst", pending, raw))
			pending = ""
		case xml.Directive:
			add(tree.Leaf(tree.KindDirective, "directive", pending, raw))
			pending = ""
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: <%s> is never closed", ErrMalformed, stack[len(stack)-1].name)
	}
	if pending != "" {
		top = append(top, tree.Leaf(tree.KindEOF, "eof", pending, ""))
	}
	return tree.New(tree.KindDocument, "document", top...), nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Root returns the root element of doc.
func Root(doc *tree.Node) *tree.Node {
	if doc == nil {
		return nil
	}
	return doc.FirstChild(tree.KindTag)
}

// Attr returns the value of the attribute name on tag.
func Attr(tag *tree.Node, name string) (string, bool) {
	if tag == nil || tag.Kind() != tree.KindTag || tag.Len() == 0 {
		return "", false
	}
	d := xml.NewDecoder(strings.NewReader(tag.Child(0).Text()))
	d.Entity = xml.HTMLEntity
	tok, err := d.RawToken()
	if err != nil {
		return "", false
	}
	se, ok := tok.(xml.StartElement)
	if !ok {
		return "", false
	}
	for _, a := range se.Attr {
		if qualified(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

// Parser adapts Parse to the template synthesizer for Tag fragments.
type Parser struct{}

// ParseFragment parses a single element.
func (Parser) ParseFragment(req template.Request) (*tree.Node, error) {
	if req.Context != template.Tag {
		return nil, fmt.Errorf("xml fragments cannot be parsed as %s", req.Context)
	}
	doc, err := Parse([]byte(req.Source))
	if err != nil {
		return nil, err
	}
	root := Root(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: no element in %q", ErrMalformed, req.Source)
	}
	return root.WithPrefix(""), nil
}

// Template returns a Tag template parsed as XML.
func Template(source string) *template.Template {
	return template.New(source).Context(template.Tag).Parser(Parser{})
}
