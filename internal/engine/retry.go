package engine

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether a failed attempt is retried and how long to
// back off before the next one. The zero value never retries.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// Multiplier scales the delay for each successive retry.
	Multiplier float64

	// JitterRatio bounds the random perturbation applied to each delay,
	// as a fraction of the computed base value. Must be within [0, 1].
	JitterRatio float64

	// Retryable reports whether an error is worth retrying. When nil,
	// every failure is treated as transient. Callers whose work function
	// surfaces permanent errors (malformed payloads, auth rejections)
	// should install a classifier here instead of burning the retry
	// budget on them.
	Retryable func(error) bool
}

// ShouldRetry reports whether a task that has already used retriesUsed
// retries gets another attempt for the given error.
func (p RetryPolicy) ShouldRetry(retriesUsed int, err error) bool {
	if retriesUsed >= p.MaxRetries {
		return false
	}
	if p.Retryable != nil && !p.Retryable(err) {
		return false
	}
	return true
}

// NextDelay computes the backoff before retry number retriesUsed (0-based).
// The delay grows as BaseDelay * Multiplier^retriesUsed and is perturbed by
// a bounded symmetric jitter. The result is never negative.
func (p RetryPolicy) NextDelay(retriesUsed int) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(multiplier, float64(retriesUsed))

	if p.JitterRatio > 0 {
		// Uniform in [-JitterRatio, +JitterRatio] of the base value.
		jitter := (rand.Float64()*2 - 1) * p.JitterRatio * delay
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
