package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run is one recorded migration of a project
type Run struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	Root   string `gorm:"type:text;not null"`
	DryRun bool   `gorm:"default:false"`

	// Rule names in the order they ran
	Rules datatypes.JSON `gorm:"type:jsonb"`

	// Statistics
	FilesScanned  int `gorm:"default:0"`
	FilesModified int `gorm:"default:0"`
	FilesFailed   int `gorm:"default:0"`

	// Phase timings in milliseconds
	ParseMillis int64
	RulesMillis int64
	WriteMillis int64

	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	// Relationships
	Files []FileResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// FileResult is what a run did to one file
type FileResult struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"type:varchar(36);index;not null"`

	Path     string `gorm:"type:text;not null"`
	Language string `gorm:"type:varchar(20)"`
	Modified bool   `gorm:"default:false"`

	// Rules that changed the file and the errors it hit
	Rules  datatypes.JSON `gorm:"type:jsonb"`
	Errors datatypes.JSON `gorm:"type:jsonb"`

	Diff       string `gorm:"type:text"`
	BackupPath string `gorm:"type:text"`

	// Checksums for recognising the file in later runs
	BaseDigest  string `gorm:"type:varchar(64)"` // SHA256 of original
	AfterDigest string `gorm:"type:varchar(64)"` // SHA256 of modified
	BaseSize    int64
	AfterSize   int64
}

// TableName customizations for cleaner names
func (Run) TableName() string        { return "runs" }
func (FileResult) TableName() string { return "file_results" }

// Failed reports whether the file recorded any error
func (f FileResult) Failed() bool {
	return len(f.Errors) > 0 && string(f.Errors) != "null" && string(f.Errors) != "[]"
}
