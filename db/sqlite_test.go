package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oxhq/quarkmig/core"
	"github.com/oxhq/quarkmig/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "history", "runs.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	return db
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name          string
		dsn           func(t *testing.T) string
		debug         bool
		expectedError bool
		errorContains string
	}{
		{
			name: "file database in nested directory",
			dsn:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "a", "b", "history.db") },
		},
		{
			name:  "debug logging",
			dsn:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "history.db") },
			debug: true,
		},
		{
			name:          "unreachable libsql server",
			dsn:           func(*testing.T) string { return "libsql://127.0.0.1:19999" },
			expectedError: true,
			errorContains: "failed to",
		},
		{
			name:          "unreachable http server",
			dsn:           func(*testing.T) string { return "http://127.0.0.1:19999/db" },
			expectedError: true,
			errorContains: "failed to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(tt.dsn(t), tt.debug)
			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			defer Close(db)
			assert.True(t, db.Migrator().HasTable(&models.Run{}))
			assert.True(t, db.Migrator().HasTable(&models.FileResult{}))
		})
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"libsql://db.turso.io", true},
		{"https://db.turso.io", true},
		{"http://localhost:8080", true},
		{"history.db", false},
		{"/var/lib/quarkmig/history.db", false},
		{":memory:", false},
		{"libsql", false},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, isURL(tt.dsn))
		})
	}
}

func report(id string, files ...core.FileReport) *core.RunReport {
	r := &core.RunReport{
		RunID:        id,
		Root:         "/work/demo",
		Rules:        []string{"SpringWebToJaxRs", "StereotypesToCdi"},
		FilesScanned: len(files) + 1,
		Files:        files,
	}
	for _, f := range files {
		if f.Modified {
			r.FilesModified++
		}
		if f.Failed() {
			r.FilesFailed++
		}
	}
	return r
}

func TestRecordAndLoad(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rep := report("run-1",
		core.FileReport{
			Path:         "src/main/java/com/example/Api.java",
			Language:     "java",
			Modified:     true,
			Rules:        []string{"SpringWebToJaxRs"},
			Diff:         "--- a/Api.java\n+++ b/Api.java\n",
			OriginalHash: "aaa",
			ModifiedHash: "bbb",
		},
		core.FileReport{Path: "src/main/java/com/example/Same.java", Language: "java"},
		core.FileReport{Path: "pom.xml", Language: "manifest", Errors: []string{"synthesis failed"}},
	)
	started := time.Now().Add(-2 * time.Second)
	run, err := Record(ctx, db, rep, started, started.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, run.Files, 2, "untouched files are not recorded")

	got, err := Run(ctx, db, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/work/demo", got.Root)
	assert.Equal(t, []string{"SpringWebToJaxRs", "StereotypesToCdi"}, DecodeList(got.Rules))
	assert.Equal(t, 1, got.FilesModified)
	assert.Equal(t, 1, got.FilesFailed)
	require.Len(t, got.Files, 2)

	pom, api := got.Files[0], got.Files[1]
	assert.Equal(t, "pom.xml", pom.Path)
	assert.True(t, pom.Failed())
	assert.Equal(t, []string{"synthesis failed"}, DecodeList(pom.Errors))
	assert.Equal(t, "src/main/java/com/example/Api.java", api.Path)
	assert.False(t, api.Failed())
	assert.Equal(t, []string{"SpringWebToJaxRs"}, DecodeList(api.Rules))
	assert.Equal(t, "bbb", api.AfterDigest)
}

func TestRunNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := Run(context.Background(), db, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"first", "second", "third"} {
		started := base.Add(time.Duration(i) * time.Minute)
		_, err := Record(ctx, db, report(id), started, started.Add(time.Second))
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "default limit", limit: 0, want: []string{"third", "second", "first"}},
		{name: "limited", limit: 2, want: []string{"third", "second"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := History(ctx, db, tt.limit)
			require.NoError(t, err)
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
				assert.Empty(t, r.Files)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRecordDuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := Record(ctx, db, report("dup"), time.Now(), time.Now())
	require.NoError(t, err)
	_, err = Record(ctx, db, report("dup"), time.Now(), time.Now())
	assert.Error(t, err)
}
