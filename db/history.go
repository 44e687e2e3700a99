package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oxhq/quarkmig/core"
	"github.com/oxhq/quarkmig/models"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// DefaultLimit is the number of runs History returns when no limit is given
const DefaultLimit = 20

// Record stores the report of a finished run with one row per file.
func Record(ctx context.Context, db *gorm.DB, report *core.RunReport, started, finished time.Time) (*models.Run, error) {
	rules, err := jsonList(report.Rules)
	if err != nil {
		return nil, err
	}
	run := &models.Run{
		ID:            report.RunID,
		Root:          report.Root,
		DryRun:        report.DryRun,
		Rules:         rules,
		FilesScanned:  report.FilesScanned,
		FilesModified: report.FilesModified,
		FilesFailed:   report.FilesFailed,
		ParseMillis:   report.ParseDuration,
		RulesMillis:   report.RulesDuration,
		WriteMillis:   report.WriteDuration,
		StartedAt:     started,
		FinishedAt:    finished,
	}
	for _, f := range report.Files {
		if !f.Modified && !f.Failed() {
			continue
		}
		fr := models.FileResult{
			Path:        f.Path,
			Language:    f.Language,
			Modified:    f.Modified,
			Diff:        f.Diff,
			BackupPath:  f.BackupPath,
			BaseDigest:  f.OriginalHash,
			AfterDigest: f.ModifiedHash,
			BaseSize:    f.OriginalSize,
			AfterSize:   f.ModifiedSize,
		}
		if fr.Rules, err = jsonList(f.Rules); err != nil {
			return nil, err
		}
		if fr.Errors, err = jsonList(f.Errors); err != nil {
			return nil, err
		}
		run.Files = append(run.Files, fr)
	}

	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return run, nil
}

func jsonList(items []string) (datatypes.JSON, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", items, err)
	}
	return datatypes.JSON(data), nil
}

// History returns the most recent runs, newest first, without their files.
func History(ctx context.Context, db *gorm.DB, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var runs []models.Run
	err := db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Run loads one run with its files.
func Run(ctx context.Context, db *gorm.DB, id string) (*models.Run, error) {
	var run models.Run
	err := db.WithContext(ctx).
		Preload("Files", func(tx *gorm.DB) *gorm.DB { return tx.Order("path") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return &run, nil
}

// DecodeList decodes a JSON string list such as the rules of a run.
func DecodeList(data datatypes.JSON) []string {
	var out []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out
}
