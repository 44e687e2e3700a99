package recipe

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/quarkmig/internal/cursor"
	"github.com/oxhq/quarkmig/internal/fixpoint"
	"github.com/oxhq/quarkmig/internal/gate"
	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/scan"
	"github.com/oxhq/quarkmig/internal/tree"
	"github.com/oxhq/quarkmig/internal/visitor"
)

var errBoom = errors.New("boom")

func parseFiles(t *testing.T, srcs ...string) []*File {
	t.Helper()
	jp := java.NewParser(nil)
	var files []*File
	for i := 0; i < len(srcs); i += 2 {
		f, err := Parse(context.Background(), jp, srcs[i], []byte(srcs[i+1]))
		require.NoError(t, err)
		files = append(files, f)
	}
	return files
}

// bump raises every integer literal below limit by one.
func bump(name string, limit int) *visitor.Visitor {
	return visitor.New(name).On(func(_ *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		v, err := strconv.Atoi(n.Text())
		if err != nil || v >= limit {
			return n, nil
		}
		return n.WithText(strconv.Itoa(v + 1)), nil
	}, tree.KindLiteral)
}

// failOn fails on the class with the given name.
func failOn(class string) *visitor.Visitor {
	return visitor.New("fail").On(func(_ *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if n.Name() == class {
			return n, errBoom
		}
		return n, nil
	}, tree.KindClassDecl)
}

func byPath(outcomes []*Outcome) map[string]*Outcome {
	m := map[string]*Outcome{}
	for _, o := range outcomes {
		m[o.Path] = o
	}
	return m
}

func TestApplyPolicies(t *testing.T) {
	rules := []Rule{
		&Simple{ID: "fail", Visit: failOn("B")},
		&Simple{ID: "bump", Visit: bump("bump", 10)},
	}
	tests := []struct {
		name     string
		policy   Policy
		wantB    string
		aborted  bool
		appliedB []string
	}{
		{
			name:     "skip rule",
			policy:   SkipRule,
			wantB:    "class B { int x = 2; }\n",
			appliedB: []string{"bump"},
		},
		{
			name:    "abort file",
			policy:  AbortFile,
			wantB:   "class B { int x = 1; }\n",
			aborted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := parseFiles(t,
				"A.java", "class A { int x = 1; }\n",
				"B.java", "class B { int x = 1; }\n",
			)
			outcomes, err := Apply(context.Background(), rules, files, Options{Workers: 2, OnError: tt.policy})
			require.NoError(t, err)
			got := byPath(outcomes)

			a := got["A.java"]
			assert.Equal(t, "class A { int x = 2; }\n", a.Tree.String())
			assert.Equal(t, []string{"bump"}, a.Applied)
			assert.Empty(t, a.Errors)

			b := got["B.java"]
			assert.Equal(t, tt.wantB, b.Tree.String())
			assert.Equal(t, tt.aborted, b.Aborted)
			assert.Equal(t, tt.appliedB, b.Applied)
			require.Len(t, b.Errors, 1)
			assert.Equal(t, "fail", b.Errors[0].Rule)
			assert.ErrorIs(t, b.Errors[0], errBoom)
			var ve *visitor.Error
			assert.ErrorAs(t, b.Errors[0], &ve)
			assert.True(t, Failed(outcomes, errBoom))
		})
	}
}

func TestApplyKeepsInputs(t *testing.T) {
	files := parseFiles(t, "A.java", "class A { int x = 1; }\n")
	original := files[0].Tree
	outcomes, err := Apply(context.Background(), []Rule{&Simple{ID: "bump", Visit: bump("bump", 10)}}, files, Options{})
	require.NoError(t, err)
	assert.Same(t, original, files[0].Tree)
	assert.Same(t, original, outcomes[0].Original)
	assert.True(t, outcomes[0].Changed())
}

func TestApplyPrecondition(t *testing.T) {
	files := parseFiles(t,
		"A.java", "class A { int x = 1; }\n",
		"B.java", "class B { String s = \"x\"; int x = 1; }\n",
	)
	rule := &Simple{
		ID:    "bump",
		When:  gate.UsesType("java.lang.String", false),
		Visit: bump("bump", 10),
	}
	outcomes, err := Apply(context.Background(), []Rule{rule}, files, Options{})
	require.NoError(t, err)
	got := byPath(outcomes)
	assert.False(t, got["A.java"].Changed())
	assert.Same(t, got["A.java"].Original, got["A.java"].Tree)
	assert.Empty(t, got["A.java"].Applied)
	assert.True(t, got["B.java"].Changed())
}

func TestApplyIdentityWhenNothingMatches(t *testing.T) {
	src := "// header\nclass A {\n\n    void f() { }\n}\n"
	files := parseFiles(t, "A.java", src)
	outcomes, err := Apply(context.Background(), []Rule{&Simple{ID: "bump", Visit: bump("bump", 10)}}, files, Options{})
	require.NoError(t, err)
	assert.False(t, outcomes[0].Changed())
	assert.Equal(t, src, outcomes[0].Tree.String())
}

func TestApplyFixpoint(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  string
		osc   bool
	}{
		{name: "converges", limit: 3, want: "class A { int x = 3; }\n"},
		{name: "oscillates", limit: 10, want: "class A { int x = 1; }\n", osc: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := parseFiles(t, "A.java", "class A { int x = 1; }\n")
			rule := &Simple{ID: "bump", Visit: bump("bump", tt.limit), Fixpoint: true}
			outcomes, err := Apply(context.Background(), []Rule{rule}, files, Options{MaxIterations: 3})
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcomes[0].Tree.String())
			assert.Equal(t, tt.osc, Failed(outcomes, fixpoint.ErrOscillation))
		})
	}
}

// literalScanner records the files holding a literal and bumps only those.
type literalScanner struct {
	text string
	acc  *scan.Accumulator[string, bool]
	snap *scan.Snapshot[string, bool]
}

func (s *literalScanner) Scan(f *File) error {
	if tree.Any(f.Tree, func(n *tree.Node) bool { return n.Kind() == tree.KindLiteral && n.Text() == s.text }) {
		return s.acc.Put(f.Path, true)
	}
	return nil
}

func (s *literalScanner) Freeze() (err error) {
	s.snap, err = s.acc.Freeze()
	return err
}

func (s *literalScanner) Close() error { return s.acc.Close() }

func (s *literalScanner) Transformer(f *File) *visitor.Visitor {
	if !s.snap.Has(f.Path) {
		return nil
	}
	return bump("bump-scanned", 100)
}

type scanningRule struct {
	text string
	acc  *scan.Accumulator[string, bool]
}

func (r scanningRule) Name() string        { return "scanning" }
func (r scanningRule) Description() string { return "bumps files holding a literal" }
func (r scanningRule) Scanner() Scanner {
	acc := r.acc
	if acc == nil {
		acc = scan.New[string, bool]()
	}
	return &literalScanner{text: r.text, acc: acc}
}

func TestApplyScanning(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		changed []string
	}{
		{name: "two facts", text: "7", changed: []string{"A.java", "C.java"}},
		{name: "no facts", text: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := parseFiles(t,
				"A.java", "class A { int x = 7; }\n",
				"B.java", "class B { int x = 1; }\n",
				"C.java", "class C { int x = 7; int y = 1; }\n",
			)
			acc := scan.New[string, bool]()
			outcomes, err := Apply(context.Background(), []Rule{scanningRule{text: tt.text, acc: acc}}, files, Options{Workers: 3})
			require.NoError(t, err)
			assert.Equal(t, scan.Done, acc.State())
			var changed []string
			for _, o := range outcomes {
				if o.Changed() {
					changed = append(changed, o.Path)
					assert.Equal(t, []string{"scanning"}, o.Applied)
				}
			}
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestApplyExternalVisitors(t *testing.T) {
	files := parseFiles(t,
		"A.java", "class A { int x = 1; }\n",
		"B.java", "class B { int x = 5; }\n",
	)
	schedule := visitor.New("schedule").On(func(c *cursor.Cursor, n *tree.Node) (*tree.Node, error) {
		if n.Name() == "A" {
			c.DoAfter(bump("bump-b", 100).For("B.java"))
			c.DoAfter(bump("bump-missing", 100).For("Missing.java"))
		}
		return n, nil
	}, tree.KindClassDecl)

	outcomes, err := Apply(context.Background(), []Rule{&Simple{ID: "cross-file", Visit: schedule}}, files, Options{})
	require.NoError(t, err)
	got := byPath(outcomes)
	assert.False(t, got["A.java"].Changed())
	assert.Equal(t, "class B { int x = 6; }\n", got["B.java"].Tree.String())
	assert.Equal(t, []string{"cross-file"}, got["B.java"].Applied)
	assert.Empty(t, got["B.java"].Errors)
}

type bareRule struct{}

func (bareRule) Name() string        { return "bare" }
func (bareRule) Description() string { return "" }

func TestApplyErrors(t *testing.T) {
	files := parseFiles(t, "A.java", "class A {}\n")

	_, err := Apply(context.Background(), []Rule{bareRule{}}, files, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedRule)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := Apply(ctx, []Rule{&Simple{ID: "bump", Visit: bump("bump", 10)}}, files, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Changed())
}

func TestRuleError(t *testing.T) {
	err := &RuleError{Path: "A.java", Rule: "r", Err: errBoom}
	assert.Equal(t, "A.java: rule r: boom", err.Error())
	assert.ErrorIs(t, err, errBoom)
}
