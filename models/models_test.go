package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "models.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Run{}, &FileResult{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "runs", Run{}.TableName())
	assert.Equal(t, "file_results", FileResult{}.TableName())
}

func TestRunWithFiles(t *testing.T) {
	db := setupTestDB(t)

	started := time.Now().Add(-time.Second).UTC().Truncate(time.Millisecond)
	run := Run{
		ID:            "6f1c2a4e-0000-4000-8000-000000000001",
		Root:          "/work/demo",
		Rules:         datatypes.JSON(`["SpringWebToJaxRs","StereotypesToCdi"]`),
		FilesScanned:  3,
		FilesModified: 1,
		StartedAt:     started,
		FinishedAt:    started.Add(time.Second),
		Files: []FileResult{
			{
				Path:        "src/main/java/com/example/Api.java",
				Language:    "java",
				Modified:    true,
				Rules:       datatypes.JSON(`["SpringWebToJaxRs"]`),
				Diff:        "--- a/Api.java\n+++ b/Api.java\n",
				BaseDigest:  "abc",
				AfterDigest: "def",
			},
			{
				Path:     "pom.xml",
				Language: "manifest",
				Errors:   datatypes.JSON(`["synthesis failed"]`),
			},
		},
	}
	require.NoError(t, db.Create(&run).Error)

	var got Run
	require.NoError(t, db.Preload("Files").First(&got, "id = ?", run.ID).Error)
	assert.Equal(t, "/work/demo", got.Root)
	assert.JSONEq(t, `["SpringWebToJaxRs","StereotypesToCdi"]`, string(got.Rules))
	assert.False(t, got.CreatedAt.IsZero())
	require.Len(t, got.Files, 2)
	for _, f := range got.Files {
		assert.Equal(t, run.ID, f.RunID)
		assert.NotZero(t, f.ID)
	}
}

func TestFileResultFailed(t *testing.T) {
	tests := []struct {
		name   string
		errors datatypes.JSON
		want   bool
	}{
		{name: "none", errors: nil, want: false},
		{name: "json null", errors: datatypes.JSON("null"), want: false},
		{name: "empty list", errors: datatypes.JSON("[]"), want: false},
		{name: "one error", errors: datatypes.JSON(`["boom"]`), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileResult{Errors: tt.errors}.Failed())
		})
	}
}
