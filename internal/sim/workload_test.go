package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annobatch/annobatch/internal/engine"
)

func TestWorkload_Succeeds(t *testing.T) {
	w := New(Config{
		BaseLatency: time.Millisecond,
		InputUnits:  1000,
		OutputUnits: 200,
		Seed:        1,
	})

	out, err := w.Work(context.Background(), engine.Task{ID: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "annotation for t-1", out.Value)
	assert.Positive(t, out.Usage.InputUnits)
	assert.Positive(t, out.Usage.OutputUnits)
}

func TestWorkload_AlwaysFails(t *testing.T) {
	w := New(Config{FailureRate: 1, Seed: 1})

	out, err := w.Work(context.Background(), engine.Task{ID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t-1")
	assert.Zero(t, out.Usage.OutputUnits, "failed attempts produce no output units")
}

func TestWorkload_SeedIsReproducible(t *testing.T) {
	roll := func() (time.Duration, bool, int64) {
		w := New(Config{
			BaseLatency:   10 * time.Millisecond,
			LatencyJitter: 5 * time.Millisecond,
			FailureRate:   0.5,
			InputUnits:    1000,
			Seed:          42,
		})
		latency, fail, usage := w.roll()
		return latency, fail, usage.InputUnits
	}

	l1, f1, u1 := roll()
	l2, f2, u2 := roll()
	assert.Equal(t, l1, l2)
	assert.Equal(t, f1, f2)
	assert.Equal(t, u1, u2)
}

func TestWorkload_HonorsContextCancellation(t *testing.T) {
	w := New(Config{BaseLatency: 10 * time.Second, Seed: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.Work(ctx, engine.Task{ID: "t-1"})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("workload did not observe cancellation")
	}
}
