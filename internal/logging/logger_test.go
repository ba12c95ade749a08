package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	handler := newPrettyHandler(&buf, levelVar)

	logger := slog.New(handler).With(String(FieldComponent, "driver"))
	logger.Info("item processed", String(FieldItem, "payload.json"), Int("pass", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO driver: item processed") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "item=payload.json") {
		t.Fatalf("expected item attr in %q", line)
	}
	if !strings.Contains(line, "pass=2") {
		t.Fatalf("expected pass attr in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be inlined, got %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	handler := newPrettyHandler(&buf, levelVar)

	slog.New(handler).Warn("fetch skipped", String("reason", "remote dir unreachable"))

	if !strings.Contains(buf.String(), `reason="remote dir unreachable"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newPrettyHandler(&buf, levelVar)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	slog.New(handler).Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFormatValueTime(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := formatValue(slog.TimeValue(ts)); got != "2024-01-01T12:00:00Z" {
		t.Fatalf("unexpected time format: %q", got)
	}
}
