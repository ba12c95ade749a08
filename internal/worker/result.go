package worker

import (
	"encoding/json"
	"errors"
	"strings"
)

// Result is the structured record a worker emits on stdout for one payload.
type Result struct {
	Completed        bool   `json:"completed"`
	LogPath          string `json:"logPath,omitempty"`
	ExceptionMessage string `json:"exceptionMessage,omitempty"`

	// Raw is the record exactly as the worker emitted it, including any
	// worker-specific fields. The archive result file is written from Raw so
	// nothing the worker reported is lost.
	Raw []byte `json:"-"`
}

// ErrInvalidOutput reports stdout that contained no parseable result record.
var ErrInvalidOutput = errors.New("worker output is not a result record")

// ParseResult extracts the result record from captured worker stdout. The
// whole output is tried first; if that is not a single JSON object, lines are
// scanned last-to-first so workers may print diagnostics before the record.
// An object without a boolean "completed" field does not qualify.
func ParseResult(stdout string) (Result, error) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return Result{}, ErrInvalidOutput
	}

	if res, ok := decodeRecord(trimmed); ok {
		return res, nil
	}

	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if res, ok := decodeRecord(line); ok {
			return res, nil
		}
	}

	return Result{}, ErrInvalidOutput
}

func decodeRecord(candidate string) (Result, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return Result{}, false
	}
	rawCompleted, ok := fields["completed"]
	if !ok {
		return Result{}, false
	}

	var res Result
	if err := json.Unmarshal(rawCompleted, &res.Completed); err != nil {
		return Result{}, false
	}
	if raw, ok := fields["logPath"]; ok {
		_ = json.Unmarshal(raw, &res.LogPath)
	}
	if raw, ok := fields["exceptionMessage"]; ok {
		_ = json.Unmarshal(raw, &res.ExceptionMessage)
	}
	res.Raw = []byte(candidate)
	return res, true
}
