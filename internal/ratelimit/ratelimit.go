// Package ratelimit implements a fixed-window counter keyed by an arbitrary
// string (typically client IP). It is constructed once at startup and passed
// explicitly to the handlers that need it.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	windowStart time.Time
	count       int
}

// Limiter allows at most max calls per key per window. Stale entries are
// swept periodically so the map stays bounded by the active key set.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	max     int
	window  time.Duration
	done    chan struct{}
	now     func() time.Time // overridable in tests
}

func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		max:     max,
		window:  window,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go l.sweep()
	return l
}

// Check records a hit for key and reports whether it is within the limit.
func (l *Limiter) Check(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &entry{windowStart: now, count: 1}
		return true
	}
	e.count++
	return e.count <= l.max
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for k, e := range l.entries {
				if now.Sub(e.windowStart) >= l.window {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop terminates the sweep goroutine.
func (l *Limiter) Stop() {
	close(l.done)
}
