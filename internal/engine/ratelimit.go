package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimiter enforces a minimum spacing between successive dispatch
// starts, globally across all workers. The downstream annotation provider
// meters requests per account, not per connection, so the gate is a single
// shared timestamp rather than a per-worker token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	clock    clockwork.Clock
}

// NewRateLimiter creates a limiter granting at most one slot per interval.
// An interval of zero disables pacing entirely.
func NewRateLimiter(interval time.Duration, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{interval: interval, clock: clock}
}

// Wait blocks the calling worker until at least one interval has elapsed
// since the last granted slot. Grant times are reserved under the lock, so
// concurrent callers queue up with monotonically spaced grants; the sleep
// itself happens outside the critical section.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.clock.Now()
	grant := l.last.Add(l.interval)
	if grant.Before(now) {
		grant = now
	}
	l.last = grant
	l.mu.Unlock()

	wait := grant.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}

	select {
	case <-l.clock.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
