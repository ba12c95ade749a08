package testsupport_test

import (
	"os"
	"testing"

	"fmqueue/internal/testsupport"
)

func TestNewConfigAppliesOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerBinary("/opt/custom-worker"))
	if cfg.Worker.Binary != "/opt/custom-worker" {
		t.Fatalf("worker binary = %q, want the option value", cfg.Worker.Binary)
	}
	if _, err := os.Stat(cfg.Paths.InboundDir); err != nil {
		t.Fatalf("inbound dir not created: %v", err)
	}
}

func TestNewConfigWithoutRemote(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutRemote())
	if cfg.Paths.RemoteDir != "" {
		t.Fatalf("remote dir = %q, want empty", cfg.Paths.RemoteDir)
	}
}
