package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
)

// ProjectConfigName is the per-directory configuration file.
const ProjectConfigName = ".shopsearch.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHOPSEARCH_"

// Config represents the complete shopsearch configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// StorageConfig configures the relational shop store.
type StorageConfig struct {
	// Driver is the database/sql driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `yaml:"driver" json:"driver"`
	// Path is the database file. Empty means in-memory.
	Path string `yaml:"path" json:"path"`
}

// IndexConfig configures the full-text index.
type IndexConfig struct {
	// Enabled turns the full-text path on. When off, text queries use the
	// relational fallback.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path is the index directory. Empty means in-memory.
	Path string `yaml:"path" json:"path"`
	// ReindexOnStartup populates an empty index before the first query.
	ReindexOnStartup bool `yaml:"reindex_on_startup" json:"reindex_on_startup"`
	BatchSize        int  `yaml:"batch_size" json:"batch_size"`
	Workers          int  `yaml:"workers" json:"workers"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`
	// Timeout bounds one query, e.g. "5s". Empty or "0" disables it.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// TelemetryConfig configures local query metrics.
type TelemetryConfig struct {
	Enabled             bool `yaml:"enabled" json:"enabled"`
	TopTermsCapacity    int  `yaml:"top_terms_capacity" json:"top_terms_capacity"`
	ZeroResultsCapacity int  `yaml:"zero_results_capacity" json:"zero_results_capacity"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dataDir, "shops.db"),
		},
		Index: IndexConfig{
			Enabled:          true,
			Path:             filepath.Join(dataDir, "shops.bleve"),
			ReindexOnStartup: true,
			BatchSize:        25,
			Workers:          2,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
			Timeout:      "5s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      "", // Empty uses ~/.shopsearch/logs/shopsearch.log
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			Enabled:             true,
			TopTermsCapacity:    100,
			ZeroResultsCapacity: 100,
		},
	}
}

// DefaultDataDir returns ~/.shopsearch, or a temp-dir fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".shopsearch")
	}
	return filepath.Join(home, ".shopsearch")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/shopsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/shopsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shopsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "shopsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "shopsearch", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	_, err := os.Stat(GetUserConfigPath())
	return err == nil
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/shopsearch/config.yaml)
//  3. Project config (.shopsearch.yaml in dir)
//  4. Environment variables (SHOPSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if UserConfigExists() {
		if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
			return nil, err
		}
	}

	projectPath := filepath.Join(dir, ProjectConfigName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the keys present in a YAML file onto c. Keys absent
// from the file keep their current value; explicit zero values apply.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return shoperrors.New(shoperrors.ErrCodeConfigPermission, "failed to read config file", err).
			WithDetail("path", path)
	}

	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return shoperrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax of " + path)
	}
	*c = next
	return nil
}

func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"STORAGE_DRIVER": &c.Storage.Driver,
		"STORAGE_PATH":   &c.Storage.Path,
		"INDEX_PATH":     &c.Index.Path,
		"SEARCH_TIMEOUT": &c.Search.Timeout,
		"LOG_LEVEL":      &c.Logging.Level,
		"LOG_FILE":       &c.Logging.File,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	flags := map[string]*bool{
		"INDEX_ENABLED":      &c.Index.Enabled,
		"REINDEX_ON_STARTUP": &c.Index.ReindexOnStartup,
		"TELEMETRY_ENABLED":  &c.Telemetry.Enabled,
	}
	for key, dst := range flags {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return shoperrors.ConfigError(fmt.Sprintf("%s%s must be a boolean, got %q", EnvPrefix, key, v), err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"SEARCH_DEFAULT_LIMIT": &c.Search.DefaultLimit,
		"SEARCH_MAX_LIMIT":     &c.Search.MaxLimit,
		"INDEX_BATCH_SIZE":     &c.Index.BatchSize,
		"INDEX_WORKERS":        &c.Index.Workers,
	}
	for key, dst := range ints {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return shoperrors.ConfigError(fmt.Sprintf("%s%s must be an integer, got %q", EnvPrefix, key, v), err)
			}
			*dst = n
		}
	}
	return nil
}

// QueryTimeout returns the parsed per-query timeout; zero disables it.
func (c *Config) QueryTimeout() time.Duration {
	if c.Search.Timeout == "" || c.Search.Timeout == "0" {
		return 0
	}
	d, _ := time.ParseDuration(c.Search.Timeout)
	return d
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return shoperrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	switch c.Storage.Driver {
	case "sqlite", "sqlite3":
	default:
		return invalid("storage.driver must be 'sqlite' or 'sqlite3', got %q", c.Storage.Driver)
	}

	if c.Index.BatchSize <= 0 {
		return invalid("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.Workers <= 0 {
		return invalid("index.workers must be positive, got %d", c.Index.Workers)
	}

	if c.Search.DefaultLimit <= 0 {
		return invalid("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return invalid("search.max_limit (%d) must be at least search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.Timeout != "" && c.Search.Timeout != "0" {
		if d, err := time.ParseDuration(c.Search.Timeout); err != nil || d < 0 {
			return invalid("search.timeout must be a non-negative duration, got %q", c.Search.Timeout)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging.max_size_mb and logging.max_files must be non-negative")
	}

	if c.Telemetry.TopTermsCapacity < 0 || c.Telemetry.ZeroResultsCapacity < 0 {
		return invalid("telemetry capacities must be non-negative")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
