// Package metrics records per-task timing and outcome samples and computes
// aggregate statistics on demand. The tracker is append-only: reads sort a
// copy of the samples and never mutate recorded data, so metrics can be
// recomputed any number of times with identical results.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sample is one recorded task completion.
type Sample struct {
	Duration    time.Duration
	RetriesUsed int
	Failed      bool
}

// Metrics is the aggregate view over all recorded samples.
type Metrics struct {
	Completed        int
	TotalExpected    int
	Concurrency      int
	ThroughputPerSec float64
	SuccessRate      float64
	RetryRate        float64
	ErrorRate        float64
	AverageDuration  time.Duration
	P50              time.Duration
	P95              time.Duration
	P99              time.Duration
}

// Tracker accumulates task samples for one or more batch runs. All writes
// are synchronized; a fresh Tracker per batch is cheapest, but callers may
// reuse one across batches to aggregate a longer window.
type Tracker struct {
	mu      sync.Mutex
	samples []Sample
	started time.Time
	clock   clockwork.Clock
}

// NewTracker creates a tracker whose elapsed-time base starts now.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock, started: clock.Now()}
}

// Record appends one completed-task sample.
func (t *Tracker) Record(duration time.Duration, retriesUsed int, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, Sample{
		Duration:    duration,
		RetriesUsed: retriesUsed,
		Failed:      failed,
	})
}

// Elapsed returns the wall time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return t.clock.Since(t.started)
}

// Count returns the number of recorded samples.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Metrics computes aggregate statistics over all recorded samples.
// totalExpected and concurrency are echoed into the result for reporting;
// they do not affect the computed rates.
func (t *Tracker) Metrics(totalExpected, concurrency int) Metrics {
	t.mu.Lock()
	samples := make([]Sample, len(t.samples))
	copy(samples, t.samples)
	t.mu.Unlock()

	m := Metrics{
		Completed:     len(samples),
		TotalExpected: totalExpected,
		Concurrency:   concurrency,
	}
	if len(samples) == 0 {
		return m
	}

	var totalDuration time.Duration
	var failed, retried int
	durations := make([]time.Duration, len(samples))
	for i, s := range samples {
		durations[i] = s.Duration
		totalDuration += s.Duration
		if s.Failed {
			failed++
		}
		if s.RetriesUsed > 0 {
			retried++
		}
	}

	n := float64(len(samples))
	m.AverageDuration = totalDuration / time.Duration(len(samples))
	m.SuccessRate = (n - float64(failed)) / n
	m.ErrorRate = float64(failed) / n
	m.RetryRate = float64(retried) / n

	if elapsed := t.Elapsed().Seconds(); elapsed > 0 {
		m.ThroughputPerSec = n / elapsed
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	m.P50 = percentile(durations, 50)
	m.P95 = percentile(durations, 95)
	m.P99 = percentile(durations, 99)

	return m
}

// percentile computes the nearest-rank percentile over a sorted duration
// slice. For any non-empty input, percentile(s, a) <= percentile(s, b)
// whenever a <= b.
func percentile(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (pct*len(sorted) + 99) / 100 // ceil(pct/100 * n)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
