package recipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/quarkmig/core"
	"github.com/oxhq/quarkmig/internal/lang/java"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func read(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestRunner(t *testing.T) {
	project := map[string]string{
		"pom.xml":                    "<project>\n</project>\n",
		"src/main/java/a/A.java":     "package a;\n\nclass A { int x = 1; }\n",
		"src/main/java/a/B.java":     "package a;\n\nclass B { }\n",
		"target/generated/Gen.java":  "class Gen { int x = 1; }\n",
		"src/main/resources/app.txt": "x = 1\n",
	}
	tests := []struct {
		name   string
		dryRun bool
		backup bool
	}{
		{name: "write"},
		{name: "write with backup", backup: true},
		{name: "dry run", dryRun: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeProject(t, project)
			write := core.DefaultAtomicConfig()
			write.BackupOriginal = tt.backup
			runner := NewRunner(java.NewParser(nil), []Rule{&Simple{ID: "bump", Visit: bump("bump", 10)}}, RunOptions{
				Scope:  core.FileScope{Path: root},
				DryRun: tt.dryRun,
				Write:  write,
			})

			report, err := runner.Run(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, report.RunID)
			assert.Equal(t, []string{"bump"}, report.Rules)
			assert.Equal(t, tt.dryRun, report.DryRun)
			assert.Equal(t, 3, report.FilesScanned)
			assert.Equal(t, 1, report.FilesModified)
			assert.Zero(t, report.FilesFailed)
			require.Len(t, report.Files, 3)

			var a core.FileReport
			for _, f := range report.Files {
				if f.Path == "src/main/java/a/A.java" {
					a = f
				} else {
					assert.False(t, f.Modified, f.Path)
					assert.Empty(t, f.Diff, f.Path)
				}
			}
			assert.True(t, a.Modified)
			assert.Equal(t, "java", a.Language)
			assert.Equal(t, []string{"bump"}, a.Rules)
			assert.Contains(t, a.Diff, "-class A { int x = 1; }\n+class A { int x = 2; }\n")
			assert.Equal(t, core.Digest(project["src/main/java/a/A.java"]), a.OriginalHash)
			assert.Equal(t, core.Digest("package a;\n\nclass A { int x = 2; }\n"), a.ModifiedHash)

			got := read(t, root, "src/main/java/a/A.java")
			if tt.dryRun {
				assert.Equal(t, project["src/main/java/a/A.java"], got)
			} else {
				assert.Equal(t, "package a;\n\nclass A { int x = 2; }\n", got)
			}
			if tt.backup {
				require.NotEmpty(t, a.BackupPath)
				assert.Equal(t, project["src/main/java/a/A.java"], read(t, root, mustRel(t, root, a.BackupPath)))
			} else {
				assert.Empty(t, a.BackupPath)
			}
			assert.Equal(t, project["target/generated/Gen.java"], read(t, root, "target/generated/Gen.java"))
		})
	}
}

func mustRel(t *testing.T, root, path string) string {
	t.Helper()
	rel, err := filepath.Rel(root, path)
	require.NoError(t, err)
	return filepath.ToSlash(rel)
}

func TestRunnerReportsFileFailures(t *testing.T) {
	root := writeProject(t, map[string]string{
		"A.java":   "class A { int x = 1; }\n",
		"Bad.java": "class Bad {\n",
		"C.java":   "class C { int x = 1; }\n",
	})
	rules := []Rule{
		&Simple{ID: "fail", Visit: failOn("C")},
		&Simple{ID: "bump", Visit: bump("bump", 10)},
	}
	runner := NewRunner(java.NewParser(nil), rules, RunOptions{
		Scope: core.FileScope{Path: root},
		Apply: Options{OnError: AbortFile},
	})

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesFailed)
	assert.ErrorIs(t, err, java.ErrSyntax)
	assert.ErrorIs(t, err, errBoom)
	var fe *FilesError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Failed)

	require.NotNil(t, report)
	assert.Equal(t, 3, report.FilesScanned)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, 2, report.FilesFailed)
	assert.Equal(t, "class A { int x = 2; }\n", read(t, root, "A.java"))
	assert.Equal(t, "class C { int x = 1; }\n", read(t, root, "C.java"))
	for _, f := range report.Files {
		assert.Equal(t, f.Path != "A.java", f.Failed(), f.Path)
	}
}

func TestRunnerMissingRoot(t *testing.T) {
	runner := NewRunner(java.NewParser(nil), nil, RunOptions{
		Scope: core.FileScope{Path: filepath.Join(t.TempDir(), "missing")},
	})
	report, err := runner.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
}
