package diagnostics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rjsadow/aurora/internal/mediafleet"
	"github.com/rjsadow/aurora/internal/rpc"
)

func TestCollect(t *testing.T) {
	registry := rpc.NewRegistry()
	directory := mediafleet.NewDirectory(nil, nil)
	started := time.Now().Add(-1 * time.Hour)

	collector := &Collector{registry: registry, directory: directory, started: started}
	bundle := collector.Collect(context.Background())

	if bundle.System.GoVersion == "" {
		t.Error("expected non-empty GoVersion")
	}
	if bundle.System.GOOS == "" {
		t.Error("expected non-empty GOOS")
	}
	if bundle.System.NumCPU <= 0 {
		t.Error("expected positive NumCPU")
	}
	if bundle.System.UptimeSeconds <= 0 {
		t.Error("expected positive uptime")
	}
	if bundle.Sessions.ConnectedSessions != 0 {
		t.Errorf("expected zero connected sessions, got %d", bundle.Sessions.ConnectedSessions)
	}
	if bundle.MediaFleet.LiveNodes != 0 {
		t.Errorf("expected zero live media nodes, got %d", bundle.MediaFleet.LiveNodes)
	}
	if bundle.Runtime.NumGoroutine <= 0 {
		t.Error("expected positive goroutine count")
	}
	if time.Since(bundle.GeneratedAt) > 5*time.Second {
		t.Error("expected generated_at to be recent")
	}
}

func TestCollectJSON(t *testing.T) {
	registry := rpc.NewRegistry()
	directory := mediafleet.NewDirectory(nil, nil)
	collector := &Collector{registry: registry, directory: directory, started: time.Now()}

	bundle := collector.Collect(context.Background())

	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("failed to marshal bundle: %v", err)
	}

	var decoded Bundle
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal bundle: %v", err)
	}
	if decoded.System.GoVersion != bundle.System.GoVersion {
		t.Error("decoded GoVersion mismatch")
	}
}

func TestSessionStatsReflectRegistry(t *testing.T) {
	registry := rpc.NewRegistry()
	registry.Insert(rpc.NewSession("conn-1", 8, time.Second, nil))
	registry.Insert(rpc.NewSession("conn-2", 8, time.Second, nil))
	directory := mediafleet.NewDirectory(nil, nil)

	collector := &Collector{registry: registry, directory: directory, started: time.Now()}
	bundle := collector.Collect(context.Background())

	if bundle.Sessions.ConnectedSessions != 2 {
		t.Errorf("expected 2 connected sessions, got %d", bundle.Sessions.ConnectedSessions)
	}
}
