package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3}
	err := errors.New("boom")

	assert.True(t, p.ShouldRetry(0, err))
	assert.True(t, p.ShouldRetry(2, err))
	assert.False(t, p.ShouldRetry(3, err))
	assert.False(t, p.ShouldRetry(7, err))
}

func TestRetryPolicy_ZeroValueNeverRetries(t *testing.T) {
	var p RetryPolicy
	assert.False(t, p.ShouldRetry(0, errors.New("boom")))
}

func TestRetryPolicy_RetryableClassifier(t *testing.T) {
	permanent := errors.New("permanent")
	p := RetryPolicy{
		MaxRetries: 5,
		Retryable: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	}

	assert.True(t, p.ShouldRetry(0, errors.New("transient")))
	assert.False(t, p.ShouldRetry(0, permanent))
}

func TestRetryPolicy_NextDelayGrowsExponentially(t *testing.T) {
	p := RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2,
	}

	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 400*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 800*time.Millisecond, p.NextDelay(3))
}

func TestRetryPolicy_MultiplierBelowOneIsClamped(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, Multiplier: 0}

	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, time.Second, p.NextDelay(3))
}

func TestRetryPolicy_JitterStaysBounded(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:   time.Second,
		Multiplier:  2,
		JitterRatio: 0.25,
	}

	for retries := 0; retries < 4; retries++ {
		base := time.Duration(float64(time.Second) * float64(int(1)<<retries))
		low := time.Duration(float64(base) * 0.75)
		high := time.Duration(float64(base) * 1.25)

		for rr := 0; rr < 200; rr++ {
			d := p.NextDelay(retries)
			assert.GreaterOrEqual(t, d, low)
			assert.LessOrEqual(t, d, high)
			assert.GreaterOrEqual(t, d, time.Duration(0))
		}
	}
}

func TestRetryPolicy_NoJitterIsDeterministic(t *testing.T) {
	p := RetryPolicy{BaseDelay: 50 * time.Millisecond, Multiplier: 3}

	first := p.NextDelay(2)
	for rr := 0; rr < 10; rr++ {
		assert.Equal(t, first, p.NextDelay(2))
	}
}
