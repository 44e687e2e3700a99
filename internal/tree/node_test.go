package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModifiers() *Node {
	return New(KindModifiers, "modifiers",
		New(KindAnnotation, "marker_annotation", Token("", "@"), Leaf(KindIdentifier, "identifier", "", "A")),
		New(KindAnnotation, "marker_annotation", Token("", "@"), Leaf(KindIdentifier, "identifier", "", "B")).WithPrefix("\n    "),
		Leaf(KindModifier, "public", "\n    ", "public"),
	)
}

func TestKindTableHasNoGaps(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEmpty(t, k.String(), "kind %d has no name", k)
		assert.True(t, k.Valid())
	}
	assert.False(t, KindInvalid.Valid())
	assert.False(t, KindCount.Valid())
	assert.Equal(t, "unknown", KindCount.String())
}

func TestPrintRoundTrip(t *testing.T) {
	m := sampleModifiers()
	assert.Equal(t, "@A\n    @B\n    public", m.String())
	assert.Equal(t, "@A", m.Child(0).Source())
	assert.Equal(t, "    ", m.Child(2).Indent())
	assert.Equal(t, "", m.Child(0).Indent())
}

func TestRemoveCarriesPrefix(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		expected string
	}{
		{name: "first child hands prefix to next", index: 0, expected: "@B\n    public"},
		{name: "other kind keeps its own prefix", index: 1, expected: "@A\n    public"},
		{name: "last child", index: 2, expected: "@A\n    @B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleModifiers()
			out := m.Remove(tt.index)
			assert.Equal(t, tt.expected, out.String())
			assert.Equal(t, m.ID(), out.ID())
			assert.Equal(t, 3, m.Len(), "original must be untouched")
		})
	}
}

func TestRemoveFirstAnnotationBeforeKeyword(t *testing.T) {
	m := New(KindModifiers, "modifiers",
		New(KindAnnotation, "marker_annotation", Token("", "@"), Leaf(KindIdentifier, "identifier", "", "A")),
		Leaf(KindModifier, "public", "\n", "public"),
	)
	assert.Equal(t, "public", m.Remove(0).String())
}

func TestWithSharesUntouchedChildren(t *testing.T) {
	m := sampleModifiers()
	out := m.WithChild(2, m.Child(2).WithText("private"))
	assert.Same(t, m.Child(0), out.Child(0))
	assert.Same(t, m, m.WithChild(0, m.Child(0)))
	assert.Same(t, m, m.WithPrefix(""))
	assert.Equal(t, "@A\n    @B\n    private", out.String())
}

func TestEqual(t *testing.T) {
	a := sampleModifiers()
	b := sampleModifiers()
	assert.True(t, Equal(a, b))
	assert.Nil(t, FirstDifference(a, b))

	c := b.WithChild(1, b.Child(1).WithPrefix(" "))
	assert.False(t, Equal(a, c))
	assert.Equal(t, a.Child(1).ID(), FirstDifference(a, c).ID())

	typed := a.WithType(&Type{FQN: "x.Y"})
	assert.False(t, Equal(a, typed))
	assert.True(t, Equal(typed, a.WithType(&Type{FQN: "x.Y"})))
}

func TestReplaceAndCollect(t *testing.T) {
	m := sampleModifiers()
	target := m.Child(1)

	out := Replace(m, target.ID(), nil)
	assert.Equal(t, "@A\n    public", out.String())

	anns := Collect(m, OfKind(KindAnnotation))
	require.Len(t, anns, 2)
	assert.True(t, Any(m, func(n *Node) bool { return n.Text() == "B" }))
	assert.Nil(t, Find(m, func(n *Node) bool { return n.Text() == "C" }))

	renamed := Replace(m, m.Child(1).Child(1).ID(), m.Child(1).Child(1).WithText("C"))
	assert.Equal(t, "@A\n    @C\n    public", renamed.String())
}

func TestRenumber(t *testing.T) {
	m := sampleModifiers()
	r := Renumber(m)
	assert.True(t, Equal(m, r))
	assert.NotEqual(t, m.ID(), r.ID())
	assert.NotEqual(t, m.Child(0).ID(), r.Child(0).ID())
}

func TestTypeAssignable(t *testing.T) {
	typ := &Type{FQN: "a.B", Supertypes: []string{"a.Base", "java.lang.Object"}}
	assert.True(t, typ.IsAssignableTo("a.B"))
	assert.True(t, typ.IsAssignableTo("a.Base"))
	assert.False(t, typ.IsAssignableTo("a.Other"))
	var none *Type
	assert.False(t, none.IsAssignableTo("a.B"))
}
