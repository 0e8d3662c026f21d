package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(limit int, window time.Duration) (*ratelimit.Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)}
	return ratelimit.New(limit, window).WithClock(clock.Now), clock
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	const limit = 5
	rl, _ := newLimiter(limit, time.Minute)

	for i := 0; i < limit; i++ {
		if !rl.Allow("@alice:example.org") {
			t.Fatalf("Allow returned false on call %d/%d", i+1, limit)
		}
	}
	if rl.Allow("@alice:example.org") {
		t.Error("Allow returned true after the limit was exhausted")
	}
}

func TestLimiter_IndependentPerSender(t *testing.T) {
	rl, _ := newLimiter(2, time.Minute)

	rl.Allow("@alice:example.org")
	rl.Allow("@alice:example.org")
	if rl.Allow("@alice:example.org") {
		t.Error("alice should be rate-limited")
	}
	if !rl.Allow("@bob:example.org") {
		t.Error("bob has his own quota")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	rl, clock := newLimiter(2, time.Minute)

	rl.Allow("@carol:example.org")
	clock.Advance(30 * time.Second)
	rl.Allow("@carol:example.org")
	if rl.Allow("@carol:example.org") {
		t.Fatal("third call inside the window should be rejected")
	}

	// The first call leaves the window; one slot frees up.
	clock.Advance(31 * time.Second)
	if got := rl.Remaining("@carol:example.org"); got != 1 {
		t.Fatalf("Remaining = %d, want 1", got)
	}
	if !rl.Allow("@carol:example.org") {
		t.Error("call after the oldest entry expired should be allowed")
	}
}

func TestLimiter_Defaults(t *testing.T) {
	rl, _ := newLimiter(0, 0)
	for i := 0; i < ratelimit.DefaultLimit; i++ {
		if !rl.Allow("@dave:example.org") {
			t.Fatalf("Allow returned false on call %d (default limit %d)", i+1, ratelimit.DefaultLimit)
		}
	}
	if rl.Allow("@dave:example.org") {
		t.Error("expected the default limit to apply")
	}
}

func TestLimiter_RemainingUnknownSender(t *testing.T) {
	rl, _ := newLimiter(3, time.Minute)
	if got := rl.Remaining("@nobody:example.org"); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}
}

func TestLimiter_Forget(t *testing.T) {
	rl, clock := newLimiter(3, time.Minute)
	rl.Allow("@erin:example.org")
	rl.Allow("@frank:example.org")
	clock.Advance(45 * time.Second)
	rl.Allow("@frank:example.org")
	clock.Advance(30 * time.Second)

	rl.Forget()
	if got := rl.Senders(); got != 1 {
		t.Errorf("Senders after Forget = %d, want 1 (frank still active)", got)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	const limit = 50
	rl, _ := newLimiter(limit, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("@grace:example.org") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != limit {
		t.Errorf("allowed %d concurrent calls, want exactly %d", allowed, limit)
	}
}
