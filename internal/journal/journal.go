package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of one journal entry.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry records one payload processed (or being processed) by a run. A row
// in StatusRunning whose run has exited marks an interrupted item: the
// process was killed mid-worker and the payload needs manual review.
type Entry struct {
	ID         int64
	RunID      string
	Item       string
	OpCode     string
	Status     Status
	Message    string
	LogPath    string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store manages run journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	item TEXT NOT NULL,
	op_code TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	log_path TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
`

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Begin inserts a running entry for the item and returns its id. The row is
// written before the worker is invoked so an interrupted run leaves a
// durable marker for the in-flight payload.
func (s *Store) Begin(ctx context.Context, runID, item, opCode string) (int64, error) {
	var id int64
	err := s.retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO entries (run_id, item, op_code, status, started_at) VALUES (?, ?, ?, ?, ?)`,
			runID, item, opCode, string(StatusRunning), time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("journal begin: %w", err)
	}
	return id, nil
}

// Finish resolves a running entry to its terminal status.
func (s *Store) Finish(ctx context.Context, id int64, status Status, message, logPath string) error {
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("journal finish: invalid terminal status %q", status)
	}
	err := s.retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE entries SET status = ?, message = ?, log_path = ?, finished_at = ? WHERE id = ?`,
			string(status), message, logPath, time.Now().UTC().Format(time.RFC3339), id,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	return nil
}

// Recent returns the newest entries first, up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, item, op_code, status, message, log_path, started_at, finished_at
		 FROM entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Interrupted returns entries still marked running from runs other than
// currentRunID. These identify payloads a killed process left in flight.
func (s *Store) Interrupted(ctx context.Context, currentRunID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, item, op_code, status, message, log_path, started_at, finished_at
		 FROM entries WHERE status = ? AND run_id != ? ORDER BY id`,
		string(StatusRunning), currentRunID)
	if err != nil {
		return nil, fmt.Errorf("journal interrupted: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Item, &e.OpCode, &status, &e.Message, &e.LogPath, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Status = Status(status)
		if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
			e.StartedAt = ts
		}
		if finishedAt.Valid {
			if ts, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
				e.FinishedAt = &ts
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
