package retention

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fmqueue/internal/logging"
)

// Sweeper purges aged files from terminal directories, throttled by a stamp
// file so at most one sweep runs per interval.
type Sweeper struct {
	logger *slog.Logger
	now    func() time.Time
}

// Result reports what a sweep invocation did.
type Result struct {
	// Ran is false when the stamp was fresh and the sweep was skipped.
	Ran bool
	// Deleted counts removed files. Deletion is best-effort; files that
	// could not be removed are logged and skipped.
	Deleted int
}

// NewSweeper constructs a retention sweeper.
func NewSweeper(logger *slog.Logger) *Sweeper {
	return &Sweeper{
		logger: logging.NewComponentLogger(logger, "retention"),
		now:    time.Now,
	}
}

// Sweep removes files older than maxAgeDays under each of dirs (recursively)
// if the stamp at stampPath is absent or older than minIntervalDays. The
// stamp is refreshed after any sweep that runs, whether or not it deleted
// anything. The item age threshold and the sweep interval are independent
// knobs.
func (s *Sweeper) Sweep(dirs []string, maxAgeDays int, stampPath string, minIntervalDays int) Result {
	if !s.due(stampPath, minIntervalDays) {
		return Result{}
	}
	deleted := s.sweepDirs(dirs, maxAgeDays)
	s.touchStamp(stampPath)
	return Result{Ran: true, Deleted: deleted}
}

// Force sweeps regardless of the stamp state, then refreshes the stamp.
func (s *Sweeper) Force(dirs []string, maxAgeDays int, stampPath string) Result {
	deleted := s.sweepDirs(dirs, maxAgeDays)
	s.touchStamp(stampPath)
	return Result{Ran: true, Deleted: deleted}
}

func (s *Sweeper) due(stampPath string, minIntervalDays int) bool {
	info, err := os.Stat(stampPath)
	if err != nil {
		return true
	}
	return s.now().Sub(info.ModTime()) >= time.Duration(minIntervalDays)*24*time.Hour
}

func (s *Sweeper) sweepDirs(dirs []string, maxAgeDays int) int {
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	var deleted int
	for _, dir := range dirs {
		deleted += s.sweepDir(dir, cutoff)
	}
	if deleted > 0 {
		s.logger.Info("retention sweep removed aged files",
			logging.String(logging.FieldEventType, "retention_swept"),
			logging.Int("deleted", deleted),
		)
	}
	return deleted
}

func (s *Sweeper) sweepDir(dir string, cutoff time.Time) int {
	var deleted int
	// Walk errors are suppressed: a locked or already-deleted file must not
	// abort the sweep.
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(s.logger, "stale file not removed", "retention_remove_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "aged file remains until the next sweep"),
			)
			return nil
		}
		deleted++
		return nil
	})
	return deleted
}

func (s *Sweeper) touchStamp(stampPath string) {
	now := s.now()
	if err := os.Chtimes(stampPath, now, now); err == nil {
		return
	}
	if err := os.WriteFile(stampPath, nil, 0o644); err != nil {
		logging.WarnWithContext(s.logger, "retention stamp not updated", "retention_stamp_failed",
			logging.String("path", stampPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next run may sweep earlier than intended"),
		)
	}
}
