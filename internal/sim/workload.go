// Package sim provides a synthetic annotation workload for exercising the
// engine from the CLI without a live provider: configurable latency,
// failure and timeout injection, and per-task unit consumption.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annobatch/annobatch/internal/cost"
	"github.com/annobatch/annobatch/internal/engine"
)

// Config shapes the simulated workload.
type Config struct {
	// BaseLatency is the mean simulated call latency.
	BaseLatency time.Duration

	// LatencyJitter is the maximum absolute deviation from BaseLatency.
	LatencyJitter time.Duration

	// FailureRate is the probability an attempt returns a transient error.
	FailureRate float64

	// InputUnits and OutputUnits are mean unit consumptions per task.
	InputUnits  int64
	OutputUnits int64

	// Seed makes runs reproducible. Zero seeds from the current time.
	Seed int64
}

// Workload generates simulated annotation results.
type Workload struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a workload from cfg.
func New(cfg Config) *Workload {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Workload{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // simulation, not crypto
	}
}

// Work is the engine.WorkFunc for the simulated provider. It sleeps for a
// jittered latency, honoring ctx so attempt timeouts abandon it promptly,
// then either fails (per FailureRate) or returns an annotation string with
// jittered unit usage.
func (w *Workload) Work(ctx context.Context, task engine.Task) (engine.WorkOutput, error) {
	latency, fail, usage := w.roll()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return engine.WorkOutput{}, ctx.Err()
	}

	if fail {
		// The request side was still consumed; report it with the error so
		// retried attempts are accounted for.
		return engine.WorkOutput{Usage: usage}, fmt.Errorf("simulated provider error for task %s", task.ID)
	}

	return engine.WorkOutput{
		Value: fmt.Sprintf("annotation for %s", task.ID),
		Usage: usage,
	}, nil
}

// roll draws the randomized parameters for one attempt under the lock; the
// sleep itself happens outside so concurrent attempts do not serialize.
func (w *Workload) roll() (time.Duration, bool, cost.Usage) {
	w.mu.Lock()
	defer w.mu.Unlock()

	latency := w.cfg.BaseLatency
	if w.cfg.LatencyJitter > 0 {
		latency += time.Duration((w.rng.Float64()*2 - 1) * float64(w.cfg.LatencyJitter))
	}
	if latency < 0 {
		latency = 0
	}

	fail := w.rng.Float64() < w.cfg.FailureRate

	jitterUnits := func(mean int64) int64 {
		if mean <= 0 {
			return 0
		}
		// +/-25% around the mean.
		return mean + int64((w.rng.Float64()*0.5-0.25)*float64(mean))
	}

	usage := cost.Usage{
		InputUnits:  jitterUnits(w.cfg.InputUnits),
		OutputUnits: jitterUnits(w.cfg.OutputUnits),
	}
	if fail {
		// Failed attempts still consume the request side.
		usage.OutputUnits = 0
	}

	return latency, fail, usage
}
