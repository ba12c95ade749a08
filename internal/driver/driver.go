package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fmqueue/internal/config"
	"fmqueue/internal/fileutil"
	"fmqueue/internal/journal"
	"fmqueue/internal/logging"
	"fmqueue/internal/notifications"
	"fmqueue/internal/payload"
	"fmqueue/internal/worker"
)

// Processor is the worker invocation contract the driver depends on.
type Processor interface {
	Process(ctx context.Context, payloadPath string) (worker.Invocation, error)
}

// Stats summarizes one drain run.
type Stats struct {
	Passes    int
	Processed int
	Succeeded int
	Failed    int
}

// Driver is the queue state machine: it repeatedly scans the inbound
// directory and routes every payload to archive or failed through the
// external worker, firing a completion notification per item. No failure
// ever crosses an item boundary.
type Driver struct {
	cfg       *config.Config
	parser    *payload.Parser
	processor Processor
	notifier  notifications.Service
	journal   *journal.Store
	logger    *slog.Logger

	runID    string
	runStamp string
	delay    time.Duration
	sleep    func(time.Duration)
}

// New constructs a queue driver. The journal store may be nil; journaling is
// then skipped entirely.
func New(cfg *config.Config, parser *payload.Parser, processor Processor, notifier notifications.Service, journalStore *journal.Store, logger *slog.Logger, runID string) *Driver {
	return &Driver{
		cfg:       cfg,
		parser:    parser,
		processor: processor,
		notifier:  notifier,
		journal:   journalStore,
		logger:    logging.NewComponentLogger(logger, "driver"),
		runID:     runID,
		runStamp:  time.Now().UTC().Format("20060102150405"),
		delay:     time.Duration(cfg.Queue.ItemDelayMS) * time.Millisecond,
		sleep:     time.Sleep,
	}
}

// Drain processes the inbound queue until a full pass observes it empty.
// Each pass takes a fresh directory listing, so payloads arriving mid-pass
// are picked up on the next pass. When queue.max_passes is positive it caps
// the number of passes, bounding a run against a producer that never stops
// injecting work.
func (d *Driver) Drain(ctx context.Context) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		snap, err := payload.TakeSnapshot(d.cfg.Paths.InboundDir, d.parser)
		if err != nil {
			return stats, fmt.Errorf("scan inbound: %w", err)
		}
		if snap.Empty() {
			return stats, nil
		}

		stats.Passes++
		for _, item := range snap.Items() {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			outcome := d.processItem(ctx, item)
			stats.Processed++
			if outcome == notifications.StatusSuccess {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
			if d.delay > 0 {
				d.sleep(d.delay)
			}
		}

		if d.cfg.Queue.MaxPasses > 0 && stats.Passes >= d.cfg.Queue.MaxPasses {
			d.logger.Warn("drain pass ceiling reached; remaining payloads wait for the next run",
				logging.String(logging.FieldEventType, "drain_pass_ceiling"),
				logging.Int("passes", stats.Passes),
			)
			return stats, nil
		}
	}
}

// itemResolution captures where one payload ended up and why.
type itemResolution struct {
	status  string
	message string
	// logPath is the worker's own log when it reported one, otherwise the
	// captured stderr stream. Only valid until the invocation is cleaned up.
	logPath string
	// workerLog is the durable log path from the result record. The journal
	// stores this one; the stderr capture is deleted after notification and
	// must never be persisted.
	workerLog string
	// record is the raw result to archive alongside a succeeded payload.
	record []byte
}

func (d *Driver) processItem(ctx context.Context, item payload.Item) string {
	opCode := d.parser.OperationCode(item.Name)
	itemLogger := d.logger.With(
		logging.String(logging.FieldItem, item.Name),
		logging.String(logging.FieldOpCode, opCode),
	)
	itemLogger.Info("processing payload", logging.String(logging.FieldEventType, "item_started"))

	journalID := d.journalBegin(ctx, itemLogger, item.Name, opCode)

	inv, invokeErr := d.processor.Process(ctx, item.Path)
	res := d.classify(inv, invokeErr)

	if res.status == notifications.StatusSuccess {
		d.archiveSuccess(itemLogger, item, &res)
	} else {
		d.moveToFailed(itemLogger, item, &res)
	}

	d.journalFinish(ctx, itemLogger, journalID, res)
	d.notifyCompletion(ctx, itemLogger, opCode, res)
	inv.Cleanup()

	return res.status
}

// classify applies the outcome precedence: invocation failure, then exit
// code, then output shape, then the record's own completion flag.
func (d *Driver) classify(inv worker.Invocation, invokeErr error) itemResolution {
	if invokeErr != nil {
		return itemResolution{
			status:  notifications.StatusFailure,
			message: invokeErr.Error(),
			logPath: inv.StderrPath,
		}
	}
	if inv.ExitCode != 0 {
		return itemResolution{
			status:  notifications.StatusFailure,
			message: fmt.Sprintf("exit code %d", inv.ExitCode),
			logPath: inv.StderrPath,
		}
	}

	res, err := worker.ParseResult(inv.Stdout)
	if err != nil {
		return itemResolution{
			status:  notifications.StatusFailure,
			message: "invalid output",
			logPath: inv.StderrPath,
		}
	}

	logPath := res.LogPath
	if logPath == "" {
		logPath = inv.StderrPath
	}
	if !res.Completed {
		return itemResolution{
			status:    notifications.StatusFailure,
			message:   res.ExceptionMessage,
			logPath:   logPath,
			workerLog: res.LogPath,
		}
	}
	return itemResolution{
		status:    notifications.StatusSuccess,
		logPath:   logPath,
		workerLog: res.LogPath,
		record:    res.Raw,
	}
}

// archiveSuccess writes the result record into archive, then moves the
// payload beside it. True cross-file atomicity is not achievable on a plain
// filesystem; the result is written first, and a move failure is logged
// without reversing it so nothing the worker produced is lost.
func (d *Driver) archiveSuccess(itemLogger *slog.Logger, item payload.Item, res *itemResolution) {
	resultPath := filepath.Join(d.cfg.Paths.ArchiveDir, fmt.Sprintf("result_%s_%s", d.runStamp, item.Name))
	if err := os.WriteFile(resultPath, res.record, 0o644); err != nil {
		res.status = notifications.StatusFailure
		res.message = fmt.Sprintf("archive result record: %v", err)
		d.moveToFailed(itemLogger, item, res)
		return
	}

	processedPath := filepath.Join(d.cfg.Paths.ArchiveDir, fmt.Sprintf("processed_%s_%s", d.runStamp, item.Name))
	if err := fileutil.MoveFile(item.Path, processedPath); err != nil {
		itemLogger.Error("processed payload not moved to archive; payload remains in inbound",
			logging.String(logging.FieldEventType, "archive_move_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move or remove the payload manually"),
		)
		return
	}

	itemLogger.Info("payload archived",
		logging.String(logging.FieldEventType, "item_succeeded"),
		logging.String("result_file", resultPath),
	)
}

// moveToFailed routes a payload to the failed directory. Failed payloads are
// never re-queued by any code path here; retries require explicit external
// re-submission.
func (d *Driver) moveToFailed(itemLogger *slog.Logger, item payload.Item, res *itemResolution) {
	failedPath := filepath.Join(d.cfg.Paths.FailedDir, fmt.Sprintf("failed_%s_%s", d.runStamp, item.Name))
	if err := fileutil.MoveFile(item.Path, failedPath); err != nil {
		itemLogger.Error("failed payload not moved; payload remains in inbound",
			logging.String(logging.FieldEventType, "failed_move_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move or remove the payload manually"),
		)
		return
	}
	itemLogger.Info("payload routed to failed",
		logging.String(logging.FieldEventType, "item_failed"),
		logging.String("reason", res.message),
	)
}

func (d *Driver) notifyCompletion(ctx context.Context, itemLogger *slog.Logger, opCode string, res itemResolution) {
	remaining, err := payload.TakeSnapshot(d.cfg.Paths.InboundDir, d.parser)
	if err != nil {
		logging.WarnWithContext(itemLogger, "remaining queue snapshot failed", "snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "completion event sent without queue state"),
		)
	}

	event := notifications.CompletionEvent{
		RunID:          d.runID,
		Operation:      opCode,
		Status:         res.status,
		Message:        res.message,
		LogPath:        res.logPath,
		RemainingQueue: remaining.OperationCodes(),
		NextOperation:  remaining.NextOperation(),
		RemainingCount: remaining.Count(),
	}
	if err := d.notifier.NotifyCompletion(ctx, event); err != nil {
		logging.WarnWithContext(itemLogger, "completion notification not delivered", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "observer misses this completion event"),
		)
	}
}

func (d *Driver) journalBegin(ctx context.Context, itemLogger *slog.Logger, name, opCode string) int64 {
	if d.journal == nil {
		return 0
	}
	id, err := d.journal.Begin(ctx, d.runID, name, opCode)
	if err != nil {
		logging.WarnWithContext(itemLogger, "journal entry not recorded", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history misses this payload"),
		)
		return 0
	}
	return id
}

func (d *Driver) journalFinish(ctx context.Context, itemLogger *slog.Logger, id int64, res itemResolution) {
	if d.journal == nil || id == 0 {
		return
	}
	status := journal.StatusSucceeded
	if res.status != notifications.StatusSuccess {
		status = journal.StatusFailed
	}
	if err := d.journal.Finish(ctx, id, status, res.message, res.workerLog); err != nil {
		logging.WarnWithContext(itemLogger, "journal entry not finalized", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "payload stays marked running in run history"),
		)
	}
}
