package notifications_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fmqueue/internal/config"
	"fmqueue/internal/notifications"
)

func newTestService(t *testing.T, startURL, completionURL string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.Enabled = true
	cfg.Notifications.StartURL = startURL
	cfg.Notifications.CompletionURL = completionURL
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Enabled = false
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStart(context.Background(), notifications.StartEvent{RunID: "r1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyStartPostsQueueSnapshot(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, server.URL)
	err := svc.NotifyStart(context.Background(), notifications.StartEvent{
		RunID:         "run-1",
		Queue:         []string{"ACME", "BETA"},
		NextOperation: "ACME",
		Count:         2,
	})
	if err != nil {
		t.Fatalf("NotifyStart: %v", err)
	}

	if got["runId"] != "run-1" {
		t.Fatalf("unexpected runId: %v", got["runId"])
	}
	if got["nextOperation"] != "ACME" {
		t.Fatalf("unexpected nextOperation: %v", got["nextOperation"])
	}
	if got["count"] != float64(2) {
		t.Fatalf("unexpected count: %v", got["count"])
	}
	if got["timestamp"] == "" || got["timestamp"] == nil {
		t.Fatal("expected timestamp to be filled in")
	}
	queue, ok := got["queue"].([]any)
	if !ok || len(queue) != 2 {
		t.Fatalf("unexpected queue: %v", got["queue"])
	}
}

func TestNotifyCompletionEncodesExistingLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(logPath, []byte("worker log line"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, server.URL)
	err := svc.NotifyCompletion(context.Background(), notifications.CompletionEvent{
		RunID:          "run-1",
		Operation:      "ACME",
		Status:         notifications.StatusSuccess,
		LogPath:        logPath,
		RemainingQueue: []string{"BETA"},
		NextOperation:  "BETA",
		RemainingCount: 1,
	})
	if err != nil {
		t.Fatalf("NotifyCompletion: %v", err)
	}

	encoded, ok := got["logContent"].(string)
	if !ok {
		t.Fatalf("expected logContent, got %v", got["logContent"])
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode logContent: %v", err)
	}
	if string(decoded) != "worker log line" {
		t.Fatalf("unexpected log content: %q", decoded)
	}
	if got["status"] != notifications.StatusSuccess {
		t.Fatalf("unexpected status: %v", got["status"])
	}
	if got["remainingCount"] != float64(1) {
		t.Fatalf("unexpected remainingCount: %v", got["remainingCount"])
	}
}

func TestNotifyCompletionOmitsMissingLog(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, server.URL)
	err := svc.NotifyCompletion(context.Background(), notifications.CompletionEvent{
		RunID:     "run-1",
		Operation: "ACME",
		Status:    notifications.StatusFailure,
		Message:   "exit code 1",
		LogPath:   filepath.Join(t.TempDir(), "absent.log"),
	})
	if err != nil {
		t.Fatalf("NotifyCompletion: %v", err)
	}

	if _, present := got["logContent"]; present {
		t.Fatalf("logContent should be omitted, got %v", got["logContent"])
	}
	if got["message"] != "exit code 1" {
		t.Fatalf("unexpected message: %v", got["message"])
	}
	if _, present := got["remainingQueue"]; !present {
		t.Fatal("remainingQueue should always be present")
	}
}

func TestSendReportsEndpointErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, server.URL)
	if err := svc.NotifyStart(context.Background(), notifications.StartEvent{RunID: "r"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
