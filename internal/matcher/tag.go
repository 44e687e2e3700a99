package matcher

import (
	"strings"

	"github.com/oxhq/quarkmig/internal/tree"
)

// TagMatcher matches XML tags by name path and child element values.
type TagMatcher struct {
	raw      string
	absolute bool
	path     []string
	children [][2]string
}

// Tag compiles a slash separated tag path such as
// "/project/dependencies/dependency". A leading slash anchors the path at
// the document root; "*" matches any single tag name.
func Tag(path string) *TagMatcher {
	p := strings.TrimSpace(path)
	m := &TagMatcher{raw: path, absolute: strings.HasPrefix(p, "/")}
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg != "" {
			m.path = append(m.path, seg)
		}
	}
	return m
}

// WithChild returns a copy of m that also requires a child tag name whose
// text value equals value.
func (m *TagMatcher) WithChild(name, value string) *TagMatcher {
	c := *m
	c.children = append(append([][2]string(nil), m.children...), [2]string{name, value})
	return &c
}

// Matches checks the last path segment and the child constraints of n.
func (m *TagMatcher) Matches(n *tree.Node) bool {
	if n == nil || n.Kind() != tree.KindTag || len(m.path) == 0 {
		return false
	}
	if !segmentMatch(m.path[len(m.path)-1], n.Name()) {
		return false
	}
	for _, kv := range m.children {
		child := ChildTag(n, kv[0])
		if child == nil || TagValue(child) != kv[1] {
			return false
		}
	}
	return true
}

// MatchesPath checks the whole root-to-node path, as produced by a cursor.
// Non-tag nodes on the path are ignored.
func (m *TagMatcher) MatchesPath(path []*tree.Node) bool {
	if len(path) == 0 || !m.Matches(path[len(path)-1]) {
		return false
	}
	var names []string
	for _, n := range path {
		if n.Kind() == tree.KindTag {
			names = append(names, n.Name())
		}
	}
	if len(names) < len(m.path) || m.absolute && len(names) != len(m.path) {
		return false
	}
	names = names[len(names)-len(m.path):]
	for i, seg := range m.path {
		if !segmentMatch(seg, names[i]) {
			return false
		}
	}
	return true
}

func (m *TagMatcher) String() string { return m.raw }

func segmentMatch(seg, name string) bool {
	return seg == "*" || seg == name
}

// ChildTag returns the first child tag of tag with the given name.
func ChildTag(tag *tree.Node, name string) *tree.Node {
	if tag == nil {
		return nil
	}
	for _, c := range tag.Children() {
		if c.Kind() == tree.KindTag && c.Name() == name {
			return c
		}
	}
	return nil
}

// ChildTags returns every child tag of tag with the given name.
func ChildTags(tag *tree.Node, name string) []*tree.Node {
	if tag == nil {
		return nil
	}
	var out []*tree.Node
	for _, c := range tag.Children() {
		if c.Kind() == tree.KindTag && c.Name() == name {
			out = append(out, c)
		}
	}
	return out
}

var entities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

// TagValue returns the trimmed, unescaped text content of tag, or "" for a
// missing tag.
func TagValue(tag *tree.Node) string {
	if tag == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range tag.Children() {
		switch c.Kind() {
		case tree.KindText:
			b.WriteString(entities.Replace(c.Text()))
		case tree.KindCData:
			b.WriteString(strings.TrimSuffix(strings.TrimPrefix(c.Text(), "<![CDATA["), "]]>"))
		}
	}
	return strings.TrimSpace(b.String())
}
