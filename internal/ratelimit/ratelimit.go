// Package ratelimit bounds how often an origin may perform an action
// inside a fixed window. It replaces the ambient global counter map of
// the old implementation with an injectable service.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is consulted before anonymous comment creation. Allow reports
// whether the action identified by key may proceed now; when it may
// not, retryAfter is the time remaining in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

type window struct {
	count int
	reset time.Time
}

// Memory is an in-process Limiter keyed by origin identifier. Safe for
// concurrent use; the check-and-increment is a single critical section.
type Memory struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*window
}

// NewMemory returns a Limiter allowing max actions per window duration.
func NewMemory(max int, windowDur time.Duration) *Memory {
	return &Memory{
		max:     max,
		window:  windowDur,
		now:     time.Now,
		entries: make(map[string]*window),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.entries[key]
	if !ok || !now.Before(w.reset) {
		m.entries[key] = &window{count: 1, reset: now.Add(m.window)}
		return true, 0, nil
	}
	if w.count >= m.max {
		return false, w.reset.Sub(now), nil
	}
	w.count++
	return true, 0, nil
}

// Cleanup drops expired windows. Callers may run it periodically; the
// limiter is correct without it, it only bounds memory.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.entries {
		if !now.Before(w.reset) {
			delete(m.entries, key)
		}
	}
}
