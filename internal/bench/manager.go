// Package bench maintains a running benchmark window over frame samples and
// fans out snapshots to subscribers.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/framelab/framebench-web/internal/frame"
)

// Snapshot is the aggregated state of the current benchmark window.
type Snapshot struct {
	Timestamp time.Time    `json:"ts"`
	Frames    int          `json:"frames"`
	Last      frame.Sample `json:"last"`
	Min       frame.Sample `json:"min"`
	Max       frame.Sample `json:"max"`
	Avg       frame.Sample `json:"avg"`
}

// Manager samples the engine on a fixed interval, folds each frame into the
// window aggregates, caches the latest snapshot, and fan-outs updates to
// subscribers. Samples can also be pushed directly via Observe.
type Manager struct {
	interval        time.Duration
	source          frame.TimingSource
	clock           frame.Clock
	captureAdvanced bool
	logger          *slog.Logger

	mu          sync.RWMutex
	latest      Snapshot
	primed      bool
	windowStart time.Time
	subscribers map[*subscriber]struct{}
	closeOnce   sync.Once
}

// NewManager builds a Manager over the given timing source and frame clock.
func NewManager(interval time.Duration, source frame.TimingSource, clock frame.Clock, captureAdvanced bool, logger *slog.Logger) (*Manager, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		interval:        interval,
		source:          source,
		clock:           clock,
		captureAdvanced: captureAdvanced,
		logger:          logger.With("component", "bench_manager"),
		subscribers:     make(map[*subscriber]struct{}),
	}, nil
}

// Run starts the sampling loop until the context is canceled.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.windowStart.IsZero() {
		m.windowStart = time.Now().UTC()
	}
	m.mu.Unlock()

	m.logger.Info("benchmark window started", "interval", m.interval)

	// Initial sample to prime the cache.
	m.collect()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("benchmark window stopping", "reason", ctx.Err())
			return m.Close()
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Manager) collect() {
	m.mu.RLock()
	start := m.windowStart
	m.mu.RUnlock()

	timeline := 0.0
	if !start.IsZero() {
		timeline = time.Since(start).Seconds()
	}

	m.Observe(frame.CurrentFrame(m.source, m.clock, timeline, m.captureAdvanced))
}

// Observe folds one sample into the window and publishes the new snapshot.
func (m *Manager) Observe(sample frame.Sample) {
	now := time.Now().UTC()

	m.mu.Lock()
	snap := m.latest
	snap.Timestamp = now
	snap.Frames++
	snap.Last = sample
	if snap.Frames == 1 {
		snap.Min = sample
		snap.Max = sample
		snap.Avg = sample
	} else {
		snap.Min.MinWith(sample, true)
		snap.Max.MaxWith(sample, true)
		snap.Avg.AverageWith(sample, snap.Frames, true)
	}
	m.latest = snap
	m.primed = true

	targetSubs := make([]*subscriber, 0, len(m.subscribers))
	for sub := range m.subscribers {
		targetSubs = append(targetSubs, sub)
	}
	m.mu.Unlock()

	for _, sub := range targetSubs {
		sub.send(snap)
	}
}

// Latest returns the most recent window snapshot.
func (m *Manager) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.primed
}

// Reset discards the current window so aggregation starts over with the
// next sample.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = Snapshot{}
	m.primed = false
	m.windowStart = time.Now().UTC()
	m.logger.Info("benchmark window reset")
}

// Ready reports whether at least one sample has been folded into the window.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primed
}

// Subscribe registers a listener for window snapshots. The current snapshot,
// if any, is delivered immediately.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	sub := newSubscriber()

	m.mu.Lock()
	m.subscribers[sub] = struct{}{}
	snap, primed := m.latest, m.primed
	m.mu.Unlock()

	if primed {
		sub.send(snap)
	}

	unsubscribe := func() {
		m.removeSubscriber(sub)
	}
	return sub.channel(), unsubscribe
}

func (m *Manager) removeSubscriber(sub *subscriber) {
	m.mu.Lock()
	delete(m.subscribers, sub)
	m.mu.Unlock()
	sub.close()
}

// Close shuts down all subscriptions. Safe for repeated use.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		subs := make([]*subscriber, 0, len(m.subscribers))
		for sub := range m.subscribers {
			subs = append(subs, sub)
		}
		m.subscribers = make(map[*subscriber]struct{})
		m.mu.Unlock()

		for _, sub := range subs {
			sub.close()
		}
	})
	return nil
}

type subscriber struct {
	ch     chan Snapshot
	mu     sync.Mutex
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		ch: make(chan Snapshot, 1),
	}
}

func (s *subscriber) channel() <-chan Snapshot {
	return s.ch
}

func (s *subscriber) send(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
		return
	default:
		// Drop oldest to make room for the new snapshot.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- snap:
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.ch)
	s.closed = true
}
