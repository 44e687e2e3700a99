package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

func rels(results []WalkResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Rel
	}
	return out
}

func TestFileWalker_Discover(t *testing.T) {
	root := writeTree(t,
		"pom.xml",
		"README.md",
		"src/main/java/com/example/App.java",
		"src/main/java/com/example/web/UserController.java",
		"src/main/resources/application.properties",
		"target/classes/Generated.java",
		"module/pom.xml",
	)

	tests := []struct {
		name  string
		scope FileScope
		want  []string
	}{
		{
			name:  "defaults",
			scope: FileScope{Exclude: DefaultExclude},
			want: []string{
				"module/pom.xml",
				"pom.xml",
				"src/main/java/com/example/App.java",
				"src/main/java/com/example/web/UserController.java",
			},
		},
		{
			name:  "no exclude sees build output",
			scope: FileScope{Include: []string{"**/*.java"}},
			want: []string{
				"src/main/java/com/example/App.java",
				"src/main/java/com/example/web/UserController.java",
				"target/classes/Generated.java",
			},
		},
		{
			name:  "base name pattern",
			scope: FileScope{Include: []string{"pom.xml"}},
			want:  []string{"module/pom.xml", "pom.xml"},
		},
		{
			name:  "exclude a package",
			scope: FileScope{Include: []string{"**/*.java"}, Exclude: []string{"**/web/**", "target/**"}},
			want:  []string{"src/main/java/com/example/App.java"},
		},
		{
			name:  "max depth",
			scope: FileScope{MaxDepth: 1},
			want:  []string{"module/pom.xml", "pom.xml"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scope.Path = root
			files, err := NewFileWalker().Discover(context.Background(), tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rels(files))
		})
	}
}

func TestFileWalker_MaxFiles(t *testing.T) {
	root := writeTree(t, "a/A.java", "b/B.java", "c/C.java")
	files, err := NewFileWalker().Discover(context.Background(), FileScope{Path: root, MaxFiles: 2})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFileWalker_Languages(t *testing.T) {
	root := writeTree(t, "pom.xml", "src/A.java")
	files, err := NewFileWalker().Discover(context.Background(), FileScope{Path: root})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "manifest", files[0].Language)
	assert.Equal(t, "java", files[1].Language)
	assert.Equal(t, filepath.Join(root, "src", "A.java"), files[1].Path)
	assert.NotNil(t, files[1].Info)
}

func TestFileWalker_InvalidScope(t *testing.T) {
	fw := NewFileWalker()
	_, err := fw.Discover(context.Background(), FileScope{})
	assert.Error(t, err)

	file := filepath.Join(writeTree(t, "A.java"), "A.java")
	_, err = fw.Discover(context.Background(), FileScope{Path: file})
	assert.Error(t, err)
}

func TestFileWalker_Cancelled(t *testing.T) {
	root := writeTree(t, "A.java")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileWalker().Discover(ctx, FileScope{Path: root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "java", DetectLanguage("a/B.java"))
	assert.Equal(t, "manifest", DetectLanguage("a/pom.xml"))
	assert.Equal(t, "unknown", DetectLanguage("a/build.gradle"))
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns("**/*.java", "pom.xml"))
	assert.Error(t, ValidatePatterns("**/*.java", "src/[a"))
}
