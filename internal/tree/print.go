package tree

import (
	"io"
	"strings"
)

// String prints n including its prefix.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.print(&b, true)
	return b.String()
}

// Source prints n without its own prefix.
func (n *Node) Source() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.print(&b, false)
	return b.String()
}

// WriteTo writes the printed form of n to w.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	k, err := io.WriteString(w, n.String())
	return int64(k), err
}

func (n *Node) print(b *strings.Builder, withPrefix bool) {
	if withPrefix {
		b.WriteString(n.prefix)
	}
	if len(n.children) == 0 {
		b.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		c.print(b, true)
	}
}

// Indent returns the indentation of n: the text after the last newline of
// its prefix, or "" when the prefix holds no newline.
func (n *Node) Indent() string {
	i := strings.LastIndexByte(n.prefix, '\n')
	if i < 0 {
		return ""
	}
	return n.prefix[i+1:]
}
