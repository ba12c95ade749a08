package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"fmqueue/internal/config"
	"fmqueue/internal/dedup"
	"fmqueue/internal/driver"
	"fmqueue/internal/ingest"
	"fmqueue/internal/journal"
	"fmqueue/internal/logging"
	"fmqueue/internal/notifications"
	"fmqueue/internal/payload"
	"fmqueue/internal/retention"
	"fmqueue/internal/worker"
)

// ErrAlreadyRunning is returned when another run holds the instance lock.
var ErrAlreadyRunning = errors.New("another fmqueue run is already in progress")

// Summary reports what one run did across all stages.
type Summary struct {
	RunID      string
	LogPath    string
	Fetched    int
	Duplicates int
	Drain      driver.Stats
	SweepRan   bool
	SweptFiles int
	Elapsed    time.Duration
}

// Runner executes one complete run: fetch, dedup, drain, sweep. An instance
// lock in the log directory keeps concurrent runs from racing over the same
// inbound directory.
type Runner struct {
	cfg      *config.Config
	lockPath string
	lock     *flock.Flock
}

func New(cfg *config.Config) *Runner {
	lockPath := filepath.Join(cfg.Paths.LogDir, "fmqueue.lock")
	return &Runner{
		cfg:      cfg,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
}

// Run drives a full pass over the queue. It returns a summary even on a
// partial failure, so callers can report how far the run got.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	summary := Summary{RunID: runID}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return summary, fmt.Errorf("prepare directories: %w", err)
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return summary, ErrAlreadyRunning
	}
	defer func() {
		_ = r.lock.Unlock()
	}()

	summary.LogPath = filepath.Join(r.cfg.Paths.LogDir, "fmqueue-"+runID+".log")
	logger, err := logging.New(logging.Options{
		Level:       r.cfg.Logging.Level,
		Format:      r.cfg.Logging.Format,
		OutputPaths: []string{"stdout", summary.LogPath},
	})
	if err != nil {
		return summary, fmt.Errorf("initialize logging: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("lock", r.lockPath),
	)

	logging.CleanupOldLogs(logger, r.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     r.cfg.Paths.LogDir,
		Pattern: "fmqueue-*.log",
		Exclude: []string{summary.LogPath},
	})

	store := r.openJournal(ctx, logger, runID)
	if store != nil {
		defer store.Close()
	}

	parser := payload.NewParser(r.cfg.Queue.PayloadPrefix)

	if r.cfg.Paths.RemoteDir != "" {
		fetch := ingest.NewGateway(parser, logger).FetchNewPayloads(r.cfg.Paths.RemoteDir, r.cfg.Paths.InboundDir)
		summary.Fetched = fetch.Fetched
	}

	duplicates, err := dedup.New(parser, logger).Deduplicate(r.cfg.Paths.InboundDir, r.cfg.Paths.ArchiveDir)
	if err != nil {
		return summary, fmt.Errorf("deduplicate inbound: %w", err)
	}
	summary.Duplicates = duplicates

	notifier := notifications.NewService(r.cfg)
	r.notifyStart(ctx, logger, parser, notifier, runID)

	client, err := worker.New(r.cfg.Worker.Binary, r.cfg.Worker.Args, r.cfg.Worker.TimeoutSeconds)
	if err != nil {
		return summary, fmt.Errorf("configure worker: %w", err)
	}

	stats, drainErr := driver.New(r.cfg, parser, client, notifier, store, logger, runID).Drain(ctx)
	summary.Drain = stats
	if drainErr != nil {
		return summary, fmt.Errorf("drain queue: %w", drainErr)
	}

	sweep := retention.NewSweeper(logger).Sweep(
		[]string{r.cfg.Paths.ArchiveDir, r.cfg.Paths.FailedDir},
		r.cfg.Retention.MaxAgeDays,
		r.cfg.StampPath(),
		r.cfg.Retention.MinIntervalDays,
	)
	summary.SweepRan = sweep.Ran
	summary.SweptFiles = sweep.Deleted

	summary.Elapsed = time.Since(started)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("fetched", summary.Fetched),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("processed", stats.Processed),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// openJournal opens the run journal and reports payloads left marked running
// by an interrupted run. A journal failure degrades the run instead of
// aborting it.
func (r *Runner) openJournal(ctx context.Context, logger *slog.Logger, runID string) *journal.Store {
	store, err := journal.Open(r.cfg.JournalPath())
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run proceeds without history or interruption detection"),
		)
		return nil
	}

	interrupted, err := store.Interrupted(ctx, runID)
	if err != nil {
		logging.WarnWithContext(logger, "interrupted-run check failed", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "payloads cut off by a crash go unreported"),
		)
		return store
	}
	for _, entry := range interrupted {
		logging.WarnWithContext(logger, "payload was interrupted by an earlier run", "interrupted_item",
			logging.String(logging.FieldItem, entry.Item),
			logging.String(logging.FieldOpCode, entry.OpCode),
			logging.String("interrupted_run", entry.RunID),
			logging.String(logging.FieldErrorHint, "check whether the worker applied its effects before re-submitting"),
		)
	}
	return store
}

// notifyStart announces the queue only when it has work; an empty queue run
// stays silent.
func (r *Runner) notifyStart(ctx context.Context, logger *slog.Logger, parser *payload.Parser, notifier notifications.Service, runID string) {
	snap, err := payload.TakeSnapshot(r.cfg.Paths.InboundDir, parser)
	if err != nil {
		logging.WarnWithContext(logger, "queue snapshot failed", "snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "start notification skipped"),
		)
		return
	}
	if snap.Empty() {
		return
	}

	event := notifications.StartEvent{
		RunID:         runID,
		Queue:         snap.OperationCodes(),
		NextOperation: snap.NextOperation(),
		Count:         snap.Count(),
	}
	if err := notifier.NotifyStart(ctx, event); err != nil {
		logging.WarnWithContext(logger, "start notification not delivered", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "observer misses the run start"),
		)
	}
}
