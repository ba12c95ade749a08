package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"fmqueue/internal/runner"
	"fmqueue/internal/testsupport"
)

func writePayload(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(`{"op":"test"}`), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func TestRunFetchesAndDrains(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writePayload(t, cfg.Paths.RemoteDir, "fm_payload_20240101120000_ACME_2024-01-01.json")

	summary, err := runner.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Fetched != 1 {
		t.Errorf("fetched = %d, want 1", summary.Fetched)
	}
	if summary.Drain.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", summary.Drain.Succeeded)
	}

	entries, err := os.ReadDir(cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var sawProcessed, sawResult bool
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "processed_") {
			sawProcessed = true
		}
		if strings.HasPrefix(entry.Name(), "result_") {
			sawResult = true
		}
	}
	if !sawProcessed || !sawResult {
		t.Errorf("archive missing terminal files, got %v", entries)
	}

	if _, err := os.Stat(summary.LogPath); err != nil {
		t.Errorf("run log not written: %v", err)
	}
	if summary.RunID == "" {
		t.Error("run id empty")
	}
}

func TestRunArchivesDuplicatesBeforeDraining(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writePayload(t, cfg.Paths.InboundDir, "fm_payload_20240101110000_ACME_2024-01-01.json")
	writePayload(t, cfg.Paths.InboundDir, "fm_payload_20240101120000_ACME_2024-01-01.json")

	summary, err := runner.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", summary.Duplicates)
	}
	if summary.Drain.Processed != 1 {
		t.Errorf("processed = %d, want only the kept payload", summary.Drain.Processed)
	}
	duplicate := filepath.Join(cfg.Paths.ArchiveDir, "duplicate_fm_payload_20240101120000_ACME_2024-01-01.json")
	if _, err := os.Stat(duplicate); err != nil {
		t.Errorf("duplicate not archived: %v", err)
	}
}

func TestRunRoutesWorkerFailureToFailedDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.Binary = testsupport.FailingWorker(t, 3)
	writePayload(t, cfg.Paths.InboundDir, "fm_payload_20240101120000_ACME_2024-01-01.json")

	summary, err := runner.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Drain.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Drain.Failed)
	}
	entries, err := os.ReadDir(cfg.Paths.FailedDir)
	if err != nil {
		t.Fatalf("read failed dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "failed_") {
		t.Errorf("failed dir = %v, want one failed_ file", entries)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "fmqueue.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, err = runner.New(cfg).Run(context.Background())
	if !errors.Is(err, runner.ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestRunPrunesAgedLogsButKeepsOwn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 7

	aged := filepath.Join(cfg.Paths.LogDir, "fmqueue-00000000-old.log")
	if err := os.WriteFile(aged, []byte("old run"), 0o644); err != nil {
		t.Fatalf("write aged log: %v", err)
	}
	old := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(aged, old, old); err != nil {
		t.Fatalf("age log: %v", err)
	}

	summary, err := runner.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(aged); !os.IsNotExist(err) {
		t.Errorf("aged log still present: %v", err)
	}
	if _, err := os.Stat(summary.LogPath); err != nil {
		t.Errorf("current run log missing: %v", err)
	}
}

func TestRunWithEmptyQueueCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	summary, err := runner.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Drain.Processed != 0 {
		t.Errorf("processed = %d, want 0", summary.Drain.Processed)
	}
}
