package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the queue engine.
type Paths struct {
	RemoteDir  string `toml:"remote_dir"`
	InboundDir string `toml:"inbound_dir"`
	ArchiveDir string `toml:"archive_dir"`
	FailedDir  string `toml:"failed_dir"`
	LogDir     string `toml:"log_dir"`
}

// Worker contains configuration for the external worker process.
type Worker struct {
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Notifications contains configuration for the HTTP status endpoints.
type Notifications struct {
	Enabled        bool   `toml:"enabled"`
	StartURL       string `toml:"start_url"`
	CompletionURL  string `toml:"completion_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Retention contains configuration for the aged-file sweeper.
type Retention struct {
	MaxAgeDays      int    `toml:"max_age_days"`
	MinIntervalDays int    `toml:"min_interval_days"`
	StampFile       string `toml:"stamp_file"`
}

// Queue contains configuration for the drain loop.
type Queue struct {
	ItemDelayMS   int    `toml:"item_delay_ms"`
	MaxPasses     int    `toml:"max_passes"`
	PayloadPrefix string `toml:"payload_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for fmqueue.
//
// Configuration sections by subsystem:
//   - Paths: remote drop, inbound queue, and terminal directories
//   - Worker: external worker binary and invocation settings
//   - Notifications: start/completion webhook endpoints
//   - Retention: aged-file sweep thresholds and stamp location
//   - Queue: drain pacing, pass ceiling, payload name prefix
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Worker        Worker        `toml:"worker"`
	Notifications Notifications `toml:"notifications"`
	Retention     Retention     `toml:"retention"`
	Queue         Queue         `toml:"queue"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/fmqueue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fmqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the engine depends on.
// RemoteDir is deliberately excluded: it belongs to an external sync client
// and its absence is a transient condition handled at fetch time.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InboundDir, c.Paths.ArchiveDir, c.Paths.FailedDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StampPath returns the absolute path of the retention stamp file.
func (c *Config) StampPath() string {
	stamp := strings.TrimSpace(c.Retention.StampFile)
	if stamp == "" {
		stamp = defaultStampFile
	}
	if filepath.IsAbs(stamp) {
		return stamp
	}
	return filepath.Join(c.Paths.LogDir, stamp)
}

// JournalPath returns the absolute path of the run journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.LogDir, "journal.db")
}

// CreateSample writes the embedded sample configuration to the target path.
func CreateSample(target string) error {
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
