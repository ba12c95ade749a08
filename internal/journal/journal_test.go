package journal_test

import (
	"context"
	"path/filepath"
	"testing"

	"fmqueue/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginAndFinishLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	id, err := store.Begin(ctx, "run-1", "payload.json", "ACME")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	if entries[0].Status != journal.StatusRunning {
		t.Fatalf("unexpected status: %s", entries[0].Status)
	}
	if entries[0].FinishedAt != nil {
		t.Fatal("running entry should have no finished time")
	}

	if err := store.Finish(ctx, id, journal.StatusSucceeded, "", "/logs/run.log"); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	entries, err = store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries[0].Status != journal.StatusSucceeded {
		t.Fatalf("unexpected status: %s", entries[0].Status)
	}
	if entries[0].LogPath != "/logs/run.log" {
		t.Fatalf("unexpected log path: %q", entries[0].LogPath)
	}
	if entries[0].FinishedAt == nil {
		t.Fatal("finished entry should carry a finished time")
	}
}

func TestFinishRejectsNonTerminalStatus(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	id, err := store.Begin(ctx, "run-1", "payload.json", "ACME")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Finish(ctx, id, journal.StatusRunning, "", ""); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestInterruptedFindsStaleRunningRows(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	if _, err := store.Begin(ctx, "old-run", "stuck.json", "ACME"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	doneID, err := store.Begin(ctx, "old-run", "done.json", "BETA")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Finish(ctx, doneID, journal.StatusFailed, "exit code 1", ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := store.Begin(ctx, "current-run", "active.json", "GAMMA"); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	interrupted, err := store.Interrupted(ctx, "current-run")
	if err != nil {
		t.Fatalf("Interrupted: %v", err)
	}
	if len(interrupted) != 1 {
		t.Fatalf("unexpected interrupted count: %d", len(interrupted))
	}
	if interrupted[0].Item != "stuck.json" {
		t.Fatalf("unexpected item: %q", interrupted[0].Item)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for _, item := range []string{"a.json", "b.json", "c.json"} {
		if _, err := store.Begin(ctx, "run-1", item, "OP"); err != nil {
			t.Fatalf("Begin %s: %v", item, err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected count: %d", len(entries))
	}
	if entries[0].Item != "c.json" || entries[1].Item != "b.json" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Item, entries[1].Item)
	}
}
