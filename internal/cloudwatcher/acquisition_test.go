package cloudwatcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panoptes/aag-weather/internal/config"
)

func newTestLoop(cfg config.Config, ft *fakeTransport) *Loop {
	return &Loop{
		cfg:     cfg,
		session: newSessionWithTransport(cfg, ft),
		ring:    NewRing(cfg.NumReadings),
		runID:   "test-run",
	}
}

func TestTickConnectsWhenNotConnected(t *testing.T) {
	cfg := config.Default()
	ft := newFakeTransport()
	scriptIdentity(ft)

	l := newTestLoop(cfg, ft)
	l.tick(context.Background())

	if l.Session().Status() != Connected {
		t.Fatalf("status = %v, want Connected after tick dials a fresh session", l.Session().Status())
	}
	if l.Ring().Len() != 0 {
		t.Errorf("tick should only connect, not also take a reading, len = %d", l.Ring().Len())
	}
}

func TestTickConnectFailureLeavesRingEmpty(t *testing.T) {
	cfg := config.Default()
	ft := newFakeTransport() // nothing scripted: getInternalName will fail

	l := newTestLoop(cfg, ft)
	l.tick(context.Background())

	if l.Session().Status() != Error {
		t.Fatalf("status = %v, want Error", l.Session().Status())
	}
	if l.Ring().Len() != 0 {
		t.Errorf("expected empty ring after a failed connect, got %d", l.Ring().Len())
	}
}

func TestTickPushesReadingAndInvokesCallback(t *testing.T) {
	cfg := config.Default()
	ft := newFakeTransport()
	scriptIdentity(ft)
	scriptFullReadingCycle(ft)

	l := newTestLoop(cfg, ft)
	// First tick only connects (mirrors Run's per-tick state machine).
	l.tick(context.Background())
	if l.Session().Status() != Connected {
		t.Fatalf("expected Connected after first tick, got %v", l.Session().Status())
	}

	var got *Reading
	l.OnReading(func(r Reading) { got = &r })

	l.tick(context.Background())

	if l.Ring().Len() != 1 {
		t.Fatalf("ring len = %d, want 1 after a successful reading", l.Ring().Len())
	}
	if got == nil {
		t.Fatalf("expected OnReading callback to fire")
	}
	latest, ok := l.Ring().Latest()
	if !ok || latest.Timestamp != got.Timestamp {
		t.Errorf("ring's latest reading does not match the callback's reading")
	}
}

func TestTickFailedReadingLeavesRingUntouched(t *testing.T) {
	cfg := config.Default()
	ft := newFakeTransport()
	scriptIdentity(ft)
	scriptFullReadingCycle(ft)
	ft.failWith("p!", errReadFailed) // pressure read fails

	l := newTestLoop(cfg, ft)
	l.tick(context.Background())
	if l.Session().Status() != Connected {
		t.Fatalf("expected Connected after first tick")
	}

	l.tick(context.Background())

	if l.Ring().Len() != 0 {
		t.Errorf("ring len = %d, want 0 after a failed reading", l.Ring().Len())
	}
	if l.Session().Status() != Error {
		t.Errorf("status = %v, want Error after a failed reading", l.Session().Status())
	}
}

func TestTickWritesSoloSnapshotAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solo.json")

	cfg := config.Default()
	cfg.SoloSnapshotPath = path
	ft := newFakeTransport()
	scriptIdentity(ft)
	scriptFullReadingCycle(ft)

	l := newTestLoop(cfg, ft)
	l.tick(context.Background())
	l.tick(context.Background())

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected solo snapshot file to exist: %v", err)
	}
	var doc SoloDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("solo snapshot is not valid JSON: %v", err)
	}
	if doc.Clouds == 0 && doc.Temp == 0 {
		t.Errorf("unexpected zeroed solo document: %+v", doc)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "solo.json" {
			t.Errorf("leftover temp file not cleaned up: %s", e.Name())
		}
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	cfg := config.Default()
	cfg.CaptureDelay = 5 * time.Millisecond
	ft := newFakeTransport()
	scriptIdentity(ft)
	scriptFullReadingCycle(ft)

	l := newTestLoop(cfg, ft)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
