// Package ratelimit provides client-side request admission control.
//
// The limiter keeps an exact log of admission timestamps inside a trailing
// window. This is deliberately a sliding log rather than a token bucket:
// the count of admitted requests in any trailing window never exceeds the
// configured maximum, at O(n) cost per call in the number of requests
// inside the window. State is in-memory only and does not survive restarts.
package ratelimit

import (
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	// MaxRequests is the maximum number of admissions inside Window.
	MaxRequests int
	// Window is the width of the trailing admission window.
	Window time.Duration
}

// DefaultConfig returns the limiter defaults used by the API client.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 60,
		Window:      time.Minute,
	}
}

// Limiter is a sliding-log request admission gate.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	max        int
	window     time.Duration
	now        func() time.Time
}

// New creates a limiter. Zero or negative config fields fall back to
// defaults.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Limiter{
		timestamps: make([]time.Time, 0, cfg.MaxRequests),
		max:        cfg.MaxRequests,
		window:     cfg.Window,
		now:        time.Now,
	}
}

// Allow reports whether a request may be dispatched now, recording the
// admission timestamp on success. Refused calls are not recorded.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	if len(l.timestamps) >= l.max {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// Pending returns the number of admissions currently inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.timestamps)
}

// evict drops timestamps older than the window. Caller holds the lock.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
