// Package config loads quarkmig settings from quarkmig.yaml, QUARKMIG_*
// environment variables and a .env file, in that order of precedence
// below command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "quarkmig"
	configType = "yaml"
	envPrefix  = "QUARKMIG"
	envFile    = ".env"
)

// Defaults.
const (
	DefaultMaxIterations       = 3
	DefaultStarImportThreshold = 5
	DefaultTemplateCacheSize   = 256
	DefaultOnSynthesisError    = "skip-rule"
	DefaultHistoryDSN          = ".quarkmig/history.db"
)

// ErrInvalidConfig marks settings that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings of a run. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Workers             int      `mapstructure:"workers"`
	MaxIterations       int      `mapstructure:"max_iterations"`
	StarImportThreshold int      `mapstructure:"star_import_threshold"`
	TemplateCacheSize   int      `mapstructure:"template_cache_size"`
	Include             []string `mapstructure:"include"`
	Exclude             []string `mapstructure:"exclude"`
	MaxFiles            int      `mapstructure:"max_files"`
	FollowSymlinks      bool     `mapstructure:"follow_symlinks"`
	DryRun              bool     `mapstructure:"dry_run"`
	Backup              bool     `mapstructure:"backup"`
	Fsync               bool     `mapstructure:"fsync"`
	// OnSynthesisError is skip-rule or abort-file.
	OnSynthesisError string `mapstructure:"on_synthesis_error"`
	// Rules enabled for a run; empty enables the whole catalogue.
	Rules   []string      `mapstructure:"rules"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DSN is a sqlite file path, or a libsql:// or https:// URL.
	DSN   string `mapstructure:"dsn"`
	Debug bool   `mapstructure:"debug"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads the configuration. configPath names an explicit file;
// otherwise quarkmig.yaml is looked up in the working directory. A missing
// file or .env is not an error.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	applyDefaults(v)
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("max_iterations", DefaultMaxIterations)
	v.SetDefault("star_import_threshold", DefaultStarImportThreshold)
	v.SetDefault("template_cache_size", DefaultTemplateCacheSize)
	v.SetDefault("include", []string{"**/*.java", "**/pom.xml"})
	v.SetDefault("exclude", []string{"**/target/**", "**/.git/**", "**/node_modules/**", "**/build/**"})
	v.SetDefault("max_files", 0)
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("backup", false)
	v.SetDefault("fsync", false)
	v.SetDefault("on_synthesis_error", DefaultOnSynthesisError)
	v.SetDefault("rules", []string{})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", DefaultHistoryDSN)
	v.SetDefault("history.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	policies   = []string{"skip-rule", "abort-file"}
)

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.StarImportThreshold < 0:
		return fmt.Errorf("%w: star_import_threshold must be non-negative", ErrInvalidConfig)
	case c.TemplateCacheSize < 1:
		return fmt.Errorf("%w: template_cache_size must be positive", ErrInvalidConfig)
	case c.MaxFiles < 0:
		return fmt.Errorf("%w: max_files must be non-negative", ErrInvalidConfig)
	case len(c.Include) == 0:
		return fmt.Errorf("%w: include needs at least one pattern", ErrInvalidConfig)
	case !slices.Contains(policies, c.OnSynthesisError):
		return fmt.Errorf("%w: on_synthesis_error must be one of %s, got %q",
			ErrInvalidConfig, strings.Join(policies, ", "), c.OnSynthesisError)
	case !slices.Contains(logLevels, strings.ToLower(c.Log.Level)):
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	case !slices.Contains(logFormats, strings.ToLower(c.Log.Format)):
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	case c.History.Enabled && c.History.DSN == "":
		return fmt.Errorf("%w: history.dsn is required when history is enabled", ErrInvalidConfig)
	}
	return nil
}

// NewLogger builds the slog logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
