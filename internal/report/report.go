// Package report assembles the final aggregated view of a batch run and
// writes the optional JSON snapshot. Field names are the on-disk contract:
// given the same recorded samples, output is byte-for-byte reproducible.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/annobatch/annobatch/internal/metrics"
)

// Report is the final aggregate over one batch run.
type Report struct {
	RunID            string  `json:"runId"`
	TotalTasks       int     `json:"totalTasks"`
	Succeeded        int     `json:"succeeded"`
	Failed           int     `json:"failed"`
	TotalDurationMs  int64   `json:"totalDurationMs"`
	ThroughputPerSec float64 `json:"throughputPerSec"`
	SuccessRate      float64 `json:"successRate"`
	RetryRate        float64 `json:"retryRate"`
	P50              int64   `json:"p50"`
	P95              int64   `json:"p95"`
	P99              int64   `json:"p99"`
	CumulativeCost   float64 `json:"cumulativeCost"`
}

// Build assembles a report from tracker metrics, the total wall time of the
// batch, and the ledger's cumulative cost.
func Build(runID string, m metrics.Metrics, totalDuration time.Duration, cumulativeCost float64) Report {
	succeeded := int(float64(m.Completed)*m.SuccessRate + 0.5)
	return Report{
		RunID:            runID,
		TotalTasks:       m.TotalExpected,
		Succeeded:        succeeded,
		Failed:           m.Completed - succeeded,
		TotalDurationMs:  totalDuration.Milliseconds(),
		ThroughputPerSec: m.ThroughputPerSec,
		SuccessRate:      m.SuccessRate,
		RetryRate:        m.RetryRate,
		P50:              m.P50.Milliseconds(),
		P95:              m.P95.Milliseconds(),
		P99:              m.P99.Milliseconds(),
		CumulativeCost:   cumulativeCost,
	}
}

// WriteJSON writes the report as indented JSON with stable field order.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteFile writes the JSON snapshot to path, creating or truncating it.
func (r Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file %s: %w", path, err)
	}
	defer f.Close()

	if err := r.WriteJSON(f); err != nil {
		return err
	}
	return f.Sync()
}
