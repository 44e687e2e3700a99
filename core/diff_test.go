package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedDiff(t *testing.T) {
	before := "package a;\n\nimport x.Autowired;\n\nclass A {}\n"
	after := "package a;\n\nimport jakarta.inject.Inject;\n\nclass A {}\n"

	diff, err := UnifiedDiff("src/A.java", before, after)
	require.NoError(t, err)
	assert.Equal(t, "--- a/src/A.java\n"+
		"+++ b/src/A.java\n"+
		"@@ -1,5 +1,5 @@\n"+
		" package a;\n"+
		" \n"+
		"-import x.Autowired;\n"+
		"+import jakarta.inject.Inject;\n"+
		" \n"+
		" class A {}\n", diff)

	same, err := UnifiedDiff("src/A.java", before, before)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestUnifiedDiffLineCounts(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		want   string
	}{
		{
			name:   "trailing newline",
			before: "a\nb\n",
			after:  "a\nc\n",
			want:   "@@ -1,2 +1,2 @@\n a\n-b\n+c\n",
		},
		{
			name:   "no trailing newline",
			before: "a\nb",
			after:  "a\nc",
			want:   "@@ -1,2 +1,2 @@\n a\n-b\n\\ No newline at end of file\n+c\n\\ No newline at end of file\n",
		},
		{
			name:   "newline added",
			before: "a",
			after:  "a\n",
			want:   "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, err := UnifiedDiff("f", tt.before, tt.after)
			require.NoError(t, err)
			assert.Equal(t, "--- a/f\n+++ b/f\n"+tt.want, diff)
		})
	}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	assert.NotEqual(t, Digest("a"), Digest("b"))
}
