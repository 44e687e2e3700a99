package core

// FileScope defines which files of a project a run visits
type FileScope struct {
	Path           string   `json:"path"`                // Project root
	Include        []string `json:"include,omitempty"`   // Patterns to include (**/*.java, **/pom.xml)
	Exclude        []string `json:"exclude,omitempty"`   // Patterns to exclude
	MaxDepth       int      `json:"max_depth,omitempty"` // Max directory depth (0 = unlimited)
	MaxFiles       int      `json:"max_files,omitempty"` // Max files to process (0 = unlimited)
	FollowSymlinks bool     `json:"follow_symlinks"`     // Follow symbolic links
}

// DefaultInclude are the patterns a run uses when none are configured
var DefaultInclude = []string{"**/*.java", "**/pom.xml"}

// DefaultExclude keeps build output and VCS metadata out of a run
var DefaultExclude = []string{"**/target/**", "**/.git/**", "**/node_modules/**", "**/build/**"}

// RunReport summarises one migration run over a project
type RunReport struct {
	RunID  string   `json:"run_id"`
	Root   string   `json:"root"`
	Rules  []string `json:"rules"`
	DryRun bool     `json:"dry_run"`
	// Files parsed and handed to the rules
	FilesScanned  int   `json:"files_scanned"`
	FilesModified int   `json:"files_modified"`
	FilesFailed   int   `json:"files_failed"`
	ParseDuration int64 `json:"parse_duration_ms"`
	RulesDuration int64 `json:"rules_duration_ms"`
	WriteDuration int64 `json:"write_duration_ms"`

	Files []FileReport `json:"files"`
}

// FileReport is the result of a run for a single file
type FileReport struct {
	// Path is relative to the run root and slash separated
	Path     string `json:"path"`
	Language string `json:"language"`
	Modified bool   `json:"modified"`
	// Rules that changed the file, in the order they ran
	Rules        []string `json:"rules,omitempty"`
	Diff         string   `json:"diff,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	BackupPath   string   `json:"backup_path,omitempty"`
	OriginalHash string   `json:"original_hash"`
	ModifiedHash string   `json:"modified_hash,omitempty"`
	OriginalSize int64    `json:"original_size"`
	ModifiedSize int64    `json:"modified_size"`
}

// Failed reports whether the file carries any error
func (f FileReport) Failed() bool { return len(f.Errors) > 0 }
