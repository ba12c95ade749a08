package dedup

import (
	"log/slog"
	"path/filepath"
	"sort"

	"fmqueue/internal/fileutil"
	"fmqueue/internal/logging"
	"fmqueue/internal/payload"
)

// Deduplicator archives redundant payloads that share an operation code and
// processing week, keeping only the earliest submission of each group.
type Deduplicator struct {
	parser *payload.Parser
	logger *slog.Logger
}

// New constructs a deduplicator.
func New(parser *payload.Parser, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		parser: parser,
		logger: logging.NewComponentLogger(logger, "dedup"),
	}
}

type member struct {
	item   payload.Item
	parsed payload.Parsed
}

// Deduplicate scans inboundDir once, groups parseable payloads by
// (operation code, week key), and moves every group member except the
// earliest into archiveDir with a duplicate_ prefix. Unparseable names pass
// through untouched. Running it again on the resulting state moves nothing.
//
// This runs once per scheduler tick, before the drain loop. A payload
// arriving mid-run with a duplicate key is only caught on the next tick;
// that window is an accepted boundary of the design, not a defect.
func (d *Deduplicator) Deduplicate(inboundDir, archiveDir string) (int, error) {
	snap, err := payload.TakeSnapshot(inboundDir, d.parser)
	if err != nil {
		return 0, err
	}

	groups := make(map[payload.DedupKey][]member)
	var keys []payload.DedupKey
	for _, item := range snap.Items() {
		parsed, ok := d.parser.Parse(item.Name)
		if !ok {
			continue
		}
		key := parsed.Key()
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], member{item: item, parsed: parsed})
	}

	var moved int
	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		// Stable sort: listing order breaks timestamp ties.
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].parsed.Timestamp < members[j].parsed.Timestamp
		})
		for _, dup := range members[1:] {
			target := filepath.Join(archiveDir, "duplicate_"+dup.item.Name)
			if err := fileutil.MoveFile(dup.item.Path, target); err != nil {
				return moved, err
			}
			moved++
			d.logger.Info("duplicate payload archived",
				logging.String(logging.FieldEventType, "duplicate_archived"),
				logging.String(logging.FieldItem, dup.item.Name),
				logging.String(logging.FieldOpCode, key.OperationCode),
				logging.String("week", key.WeekKey),
				logging.String("kept", members[0].item.Name),
			)
		}
	}

	return moved, nil
}
