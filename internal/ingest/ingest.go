package ingest

import (
	"log/slog"
	"os"
	"path/filepath"

	"fmqueue/internal/fileutil"
	"fmqueue/internal/logging"
	"fmqueue/internal/payload"
)

// Result reports the outcome of a best-effort fetch. Fetch failures never
// propagate as errors: the remote drop belongs to an external sync client and
// its unavailability must not block the rest of the run.
type Result struct {
	// Fetched counts payloads copied into the inbound directory.
	Fetched int
	// Skipped is true when the remote directory was unreachable and the
	// whole fetch step was abandoned.
	Skipped bool
}

// Gateway transfers new payloads from the remote drop location into the local
// inbound directory.
type Gateway struct {
	parser *payload.Parser
	logger *slog.Logger
}

// NewGateway constructs a filesystem gateway.
func NewGateway(parser *payload.Parser, logger *slog.Logger) *Gateway {
	return &Gateway{
		parser: parser,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// FetchNewPayloads copies every payload-named file from remoteDir into
// inboundDir, verifying each copy before deleting the remote original.
// Deletion is best-effort: a lock on the source must not block ingestion once
// the copy has landed.
func (g *Gateway) FetchNewPayloads(remoteDir, inboundDir string) Result {
	entries, err := os.ReadDir(remoteDir)
	if err != nil {
		logging.WarnWithContext(g.logger, "remote drop unreachable; fetch skipped", "fetch_skipped",
			logging.String("remote_dir", remoteDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the sync client and paths.remote_dir"),
			logging.String(logging.FieldImpact, "no new payloads ingested this run"),
		)
		return Result{Skipped: true}
	}

	var fetched int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := g.parser.Parse(name); !ok {
			continue
		}

		src := filepath.Join(remoteDir, name)
		dst := filepath.Join(inboundDir, name)

		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			logging.WarnWithContext(g.logger, "payload copy failed; remote original kept", "fetch_copy_failed",
				logging.String(logging.FieldItem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "payload stays in the remote drop until the next run"),
			)
			continue
		}
		if _, err := os.Stat(dst); err != nil {
			logging.WarnWithContext(g.logger, "copied payload missing on verify; remote original kept", "fetch_verify_failed",
				logging.String(logging.FieldItem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "payload stays in the remote drop until the next run"),
			)
			continue
		}

		if err := os.Remove(src); err != nil {
			// The copy already succeeded; a locked source must not block ingestion.
			logging.WarnWithContext(g.logger, "remote original not deleted after copy", "fetch_delete_failed",
				logging.String(logging.FieldItem, name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "payload may be fetched again and archived as a duplicate"),
			)
		}

		fetched++
		g.logger.Info("payload fetched",
			logging.String(logging.FieldEventType, "payload_fetched"),
			logging.String(logging.FieldItem, name),
			logging.String(logging.FieldOpCode, g.parser.OperationCode(name)),
		)
	}

	return Result{Fetched: fetched}
}
