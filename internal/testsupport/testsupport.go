package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fmqueue/internal/config"
)

// Option mutates the test configuration before directories are created.
type Option func(*config.Config)

// WithWorkerBinary points the configuration at a specific worker executable.
func WithWorkerBinary(path string) Option {
	return func(cfg *config.Config) {
		cfg.Worker.Binary = path
	}
}

// WithoutRemote disables the remote fetch stage.
func WithoutRemote() Option {
	return func(cfg *config.Config) {
		cfg.Paths.RemoteDir = ""
	}
}

// NewConfig returns a validated configuration rooted in a fresh temp
// directory, with pacing disabled so tests run at full speed.
func NewConfig(t testing.TB, opts ...Option) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RemoteDir = filepath.Join(root, "remote")
	cfg.Paths.InboundDir = filepath.Join(root, "inbound")
	cfg.Paths.ArchiveDir = filepath.Join(root, "archive")
	cfg.Paths.FailedDir = filepath.Join(root, "failed")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Worker.Binary = SucceedingWorker(t)
	cfg.Queue.ItemDelayMS = 0
	cfg.Logging.Format = "json"

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Paths.RemoteDir != "" {
		if err := os.MkdirAll(cfg.Paths.RemoteDir, 0o755); err != nil {
			t.Fatalf("mkdir remote dir: %v", err)
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// StubWorker writes an executable shell script and returns its path.
func StubWorker(t testing.TB, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write worker script: %v", err)
	}
	return path
}

// SucceedingWorker returns a worker script that reports completion for any
// payload.
func SucceedingWorker(t testing.TB) string {
	return StubWorker(t, "#!/bin/sh\nprintf '{\"completed\": true}'\n")
}

// FailingWorker returns a worker script that exits with the given code.
func FailingWorker(t testing.TB, exitCode int) string {
	return StubWorker(t, "#!/bin/sh\nexit "+strconv.Itoa(exitCode)+"\n")
}

// WriteConfigFile renders cfg as TOML at path, creating parent directories.
func WriteConfigFile(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}
