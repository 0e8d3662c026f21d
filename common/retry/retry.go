// Package retry re-runs an operation that failed with a transient error,
// doubling the wait between attempts.
//
//	err := retry.Do(ctx, retry.Policy{Attempts: 4, Delay: 50 * time.Millisecond, Retryable: store.IsBusy}, write)
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy controls how often and how patiently Do retries.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 mean a single call.
	Attempts int
	// Delay is the wait before the second call; each later wait doubles up
	// to MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default suits short local operations.
var Default = Policy{
	Attempts: 3,
	Delay:    50 * time.Millisecond,
	MaxDelay: time.Second,
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.Delay
	if d <= 0 {
		d = Default.Delay
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = Default.MaxDelay
	}
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The last error from fn is returned, joined with
// the context error when cancellation cut the retries short.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		wait := p.Backoff(attempt)
		slog.Debug("retrying after transient error", "attempt", attempt, "of", attempts, "wait", wait, "err", lastErr)
		if err := sleep(ctx, wait); err != nil {
			return errors.Join(lastErr, err)
		}
	}
	return lastErr
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
