package bench

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/framelab/framebench-web/internal/frame"
)

type scriptedClock struct {
	mu     sync.Mutex
	deltas []float64
	index  int
}

func (c *scriptedClock) DeltaSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= len(c.deltas) {
		return c.deltas[len(c.deltas)-1]
	}
	delta := c.deltas[c.index]
	c.index++
	return delta
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestObserveFoldsWindow(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(time.Second, nil, nil, false, discardLogger())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	for _, ft := range []float32{10, 20, 15} {
		manager.Observe(frame.FromRaw(nil, ft, 0, false))
	}

	snap, ok := manager.Latest()
	if !ok {
		t.Fatal("Latest should report a snapshot after Observe")
	}
	if snap.Frames != 3 {
		t.Fatalf("frames = %d, want 3", snap.Frames)
	}
	if snap.Last.FrameTime != 15 {
		t.Fatalf("last frame time = %v, want 15", snap.Last.FrameTime)
	}
	if snap.Min.FrameTime != 10 {
		t.Fatalf("min frame time = %v, want 10", snap.Min.FrameTime)
	}
	if snap.Max.FrameTime != 20 {
		t.Fatalf("max frame time = %v, want 20", snap.Max.FrameTime)
	}
	if math.Abs(float64(snap.Avg.FrameTime)-15) > 1e-3 {
		t.Fatalf("avg frame time = %v, want 15", snap.Avg.FrameTime)
	}

	// Min/Max fold with FPS overriding, so they track worst and best rate.
	if math.Abs(float64(snap.Min.FPS())-50) > 1e-3 {
		t.Fatalf("min fps = %v, want 50", snap.Min.FPS())
	}
	if math.Abs(float64(snap.Max.FPS())-100) > 1e-3 {
		t.Fatalf("max fps = %v, want 100", snap.Max.FPS())
	}
}

func TestResetClearsWindow(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(time.Second, nil, nil, false, discardLogger())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	manager.Observe(frame.FromRaw(nil, 10, 0, false))
	manager.Reset()

	if manager.Ready() {
		t.Fatal("manager should not be ready after reset")
	}

	manager.Observe(frame.FromRaw(nil, 30, 0, false))
	snap, ok := manager.Latest()
	if !ok || snap.Frames != 1 {
		t.Fatalf("snapshot after reset = %+v (ok=%t), want a fresh single-frame window", snap, ok)
	}
	if snap.Min.FrameTime != 30 || snap.Max.FrameTime != 30 {
		t.Fatalf("window not reseeded: min=%v max=%v", snap.Min.FrameTime, snap.Max.FrameTime)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(time.Second, nil, nil, false, discardLogger())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	manager.Observe(frame.FromRaw(nil, 10, 0, false))

	ch, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	first := awaitSnapshot(t, ch)
	if first.Frames != 1 {
		t.Fatalf("initial snapshot frames = %d, want 1", first.Frames)
	}

	manager.Observe(frame.FromRaw(nil, 20, 0, false))
	next := awaitSnapshot(t, ch)
	if next.Frames != 2 {
		t.Fatalf("snapshot frames = %d, want 2", next.Frames)
	}
}

func TestSubscriberDropsOldestOnBackpressure(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(time.Second, nil, nil, false, discardLogger())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	ch, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	// Leave the channel unconsumed while publishing several snapshots.
	for _, ft := range []float32{10, 12, 14, 16} {
		manager.Observe(frame.FromRaw(nil, ft, 0, false))
	}

	snap := awaitSnapshot(t, ch)
	if snap.Last.FrameTime != 16 {
		t.Fatalf("backpressured subscriber got frame time %v, want the newest (16)", snap.Last.FrameTime)
	}
}

func TestRunSamplesClock(t *testing.T) {
	t.Parallel()

	clock := &scriptedClock{deltas: []float64{0.010, 0.020, 0.015}}
	manager, err := NewManager(10*time.Millisecond, nil, clock, false, discardLogger())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = manager.Run(ctx)
	}()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if snap, ok := manager.Latest(); ok && snap.Frames >= 3 {
			if snap.Min.FrameTime != 10 {
				t.Fatalf("min frame time = %v, want 10", snap.Min.FrameTime)
			}
			if snap.Max.FrameTime != 20 {
				t.Fatalf("max frame time = %v, want 20", snap.Max.FrameTime)
			}
			if snap.Last.TimelineTime < 0 {
				t.Fatalf("timeline time = %v, want >= 0", snap.Last.TimelineTime)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("manager did not fold three frames in time")
}

func awaitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snap
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}
