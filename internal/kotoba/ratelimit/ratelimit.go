// Package ratelimit caps how many commands one chat sender may issue in a
// sliding time window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of commands a sender may issue per window
	// when no explicit limit is configured.
	DefaultLimit = 30

	// DefaultWindow is the sliding window duration.
	DefaultWindow = time.Minute
)

// Limiter enforces a per-sender sliding-window limit.
//
// It keeps the timestamps of each sender's commands within the window and
// prunes stale entries on every Allow call, so memory stays bounded to
// O(limit) entries per active sender.
//
// Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	counters map[string][]time.Time
}

// New returns a Limiter that allows at most limit commands per sender within
// window. Non-positive values fall back to DefaultLimit and DefaultWindow.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string][]time.Time),
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow reports whether sender may issue another command and, if so, records
// it.
func (l *Limiter) Allow(sender string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := l.prune(sender, now)
	if len(valid) >= l.limit {
		l.counters[sender] = valid
		return false
	}
	l.counters[sender] = append(valid, now)
	return true
}

// Remaining returns how many commands sender can still issue in the current
// window.
func (l *Limiter) Remaining(sender string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.prune(sender, l.now())
	l.counters[sender] = valid
	if rem := l.limit - len(valid); rem > 0 {
		return rem
	}
	return 0
}

// Forget drops every sender whose window is empty. Long-running bots call it
// periodically so departed senders do not pin memory.
func (l *Limiter) Forget() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for sender := range l.counters {
		if len(l.prune(sender, now)) == 0 {
			delete(l.counters, sender)
		}
	}
}

// Senders returns the number of senders currently tracked.
func (l *Limiter) Senders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// prune must be called with mu held.
func (l *Limiter) prune(sender string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	existing := l.counters[sender]
	valid := existing[:0]
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
