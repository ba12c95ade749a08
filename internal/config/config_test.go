package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fmqueue/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected validation error without worker.binary")
	}

	configPath := filepath.Join(tempHome, "config.toml")
	writeConfig(t, configPath, `
[worker]
binary = "/usr/bin/true"
`)

	loaded, resolvedPath, found, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !found {
		t.Fatal("expected config file to be found")
	}
	if resolvedPath != configPath {
		t.Fatalf("unexpected resolved path: %q", resolvedPath)
	}

	wantInbound := filepath.Join(tempHome, "fmqueue", "inbound")
	if loaded.Paths.InboundDir != wantInbound {
		t.Fatalf("unexpected inbound dir: got %q want %q", loaded.Paths.InboundDir, wantInbound)
	}
	if loaded.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "fmqueue", "logs") {
		t.Fatalf("unexpected log dir: %q", loaded.Paths.LogDir)
	}
	if loaded.Retention.MaxAgeDays != 14 {
		t.Fatalf("unexpected retention max age: %d", loaded.Retention.MaxAgeDays)
	}
	if loaded.Retention.MinIntervalDays != 7 {
		t.Fatalf("unexpected retention interval: %d", loaded.Retention.MinIntervalDays)
	}
	if loaded.Queue.PayloadPrefix != "fm_payload" {
		t.Fatalf("unexpected payload prefix: %q", loaded.Queue.PayloadPrefix)
	}
	if loaded.Queue.MaxPasses != 0 {
		t.Fatalf("expected unbounded drain by default, got %d", loaded.Queue.MaxPasses)
	}
	if loaded.Notifications.Enabled {
		t.Fatal("expected notifications disabled by default")
	}

	if err := loaded.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{loaded.Paths.InboundDir, loaded.Paths.ArchiveDir, loaded.Paths.FailedDir, loaded.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be a directory", dir)
		}
	}
}

func TestLoadRejectsNotificationsWithoutURLs(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	writeConfig(t, configPath, `
[worker]
binary = "/usr/bin/true"

[notifications]
enabled = true
start_url = "https://example.com/start"
`)

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for missing completion_url")
	}
	if !strings.Contains(err.Error(), "completion_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsRelativeNotificationURL(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	writeConfig(t, configPath, `
[worker]
binary = "/usr/bin/true"

[notifications]
enabled = true
start_url = "not-a-url"
completion_url = "https://example.com/done"
`)

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for relative start_url")
	}
	if !strings.Contains(err.Error(), "absolute URL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsSharedInboundArchiveDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	writeConfig(t, configPath, `
[paths]
inbound_dir = "~/queue"
archive_dir = "~/queue"

[worker]
binary = "/usr/bin/true"

[notifications]
enabled = false
`)

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for shared inbound/archive dir")
	}
}

func TestStampPathResolvesRelativeToLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/fmqueue"
	cfg.Retention.StampFile = ".last_sweep"
	if got := cfg.StampPath(); got != "/var/log/fmqueue/.last_sweep" {
		t.Fatalf("unexpected stamp path: %q", got)
	}

	cfg.Retention.StampFile = "/tmp/custom_stamp"
	if got := cfg.StampPath(); got != "/tmp/custom_stamp" {
		t.Fatalf("expected absolute stamp path preserved, got %q", got)
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
