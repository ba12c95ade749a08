package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"fmqueue/internal/config"
)

const userAgent = "fmqueue/0.1.0"

// Status values reported in completion events.
const (
	StatusSuccess = "Success"
	StatusFailure = "Failure"
)

// StartEvent announces a run that found work queued.
type StartEvent struct {
	RunID         string   `json:"runId"`
	Timestamp     string   `json:"timestamp"`
	Queue         []string `json:"queue"`
	NextOperation string   `json:"nextOperation"`
	Count         int      `json:"count"`
}

// CompletionEvent reports the outcome of one processed payload together with
// a freshly recomputed view of what remains queued.
type CompletionEvent struct {
	RunID          string   `json:"runId"`
	Timestamp      string   `json:"timestamp"`
	Operation      string   `json:"operation"`
	Status         string   `json:"status"`
	Message        string   `json:"message,omitempty"`
	LogContent     string   `json:"logContent,omitempty"`
	RemainingQueue []string `json:"remainingQueue"`
	NextOperation  string   `json:"nextOperation"`
	RemainingCount int      `json:"remainingCount"`

	// LogPath points at the worker's log file; when the file exists its
	// content is base64-encoded into LogContent before sending.
	LogPath string `json:"-"`
}

// Service defines the notification surface exposed to the run pipeline. Both
// calls are fire-and-forget at the call site: a returned error is logged by
// the caller and never aborts processing.
type Service interface {
	NotifyStart(ctx context.Context, event StartEvent) error
	NotifyCompletion(ctx context.Context, event CompletionEvent) error
}

// NewService builds a notification service backed by the configured webhook
// endpoints. When notifications are disabled, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		startURL:      strings.TrimSpace(cfg.Notifications.StartURL),
		completionURL: strings.TrimSpace(cfg.Notifications.CompletionURL),
		client:        &http.Client{Timeout: timeout},
	}
}

type webhookService struct {
	startURL      string
	completionURL string
	client        *http.Client
}

func (s *webhookService) NotifyStart(ctx context.Context, event StartEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if event.Queue == nil {
		event.Queue = []string{}
	}
	return s.send(ctx, s.startURL, event)
}

func (s *webhookService) NotifyCompletion(ctx context.Context, event CompletionEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if event.RemainingQueue == nil {
		event.RemainingQueue = []string{}
	}
	if event.LogContent == "" && event.LogPath != "" {
		if data, err := os.ReadFile(event.LogPath); err == nil {
			event.LogContent = base64.StdEncoding.EncodeToString(data)
		}
	}
	return s.send(ctx, s.completionURL, event)
}

func (s *webhookService) send(ctx context.Context, url string, body any) error {
	if s == nil || s.client == nil || url == "" {
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notification endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStart(context.Context, StartEvent) error           { return nil }
func (noopService) NotifyCompletion(context.Context, CompletionEvent) error { return nil }
