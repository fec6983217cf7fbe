// Package cost accumulates per-task resource usage into a running cost
// estimate. Usage is counted in abstract units (input, output, auxiliary)
// priced through a pluggable per-1K-unit table, so the ledger works the
// same whether the provider bills tokens, characters, or requests.
package cost

import (
	"fmt"
	"sync"
)

// Epsilon is the tolerated rounding drift between the ledger's cumulative
// cost and the sum of its entries. Costs are float64; additivity holds to
// within this bound.
const Epsilon = 1e-9

// unitsPerPrice is the unit block size the price table is quoted in.
const unitsPerPrice = 1000.0

// Usage counts the resource units one task consumed.
type Usage struct {
	InputUnits     int64
	OutputUnits    int64
	AuxiliaryUnits int64
}

// Add returns the element-wise sum of two usage counts.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputUnits:     u.InputUnits + other.InputUnits,
		OutputUnits:    u.OutputUnits + other.OutputUnits,
		AuxiliaryUnits: u.AuxiliaryUnits + other.AuxiliaryUnits,
	}
}

// PriceTable holds per-1000-unit prices.
type PriceTable struct {
	InputPer1K     float64
	OutputPer1K    float64
	AuxiliaryPer1K float64
}

// Cost prices a usage count against the table.
func (t PriceTable) Cost(u Usage) float64 {
	return float64(u.InputUnits)/unitsPerPrice*t.InputPer1K +
		float64(u.OutputUnits)/unitsPerPrice*t.OutputPer1K +
		float64(u.AuxiliaryUnits)/unitsPerPrice*t.AuxiliaryPer1K
}

// Entry is one appended ledger record. Entries are created once per
// completed task, success or terminal failure alike.
type Entry struct {
	TaskID        string
	Usage         Usage
	EstimatedCost float64
}

// Ledger is an append-only record of per-task costs. Writes are
// synchronized; the cumulative cost always equals the sum of all entries.
type Ledger struct {
	mu         sync.Mutex
	table      PriceTable
	entries    []Entry
	totals     Usage
	cumulative float64
}

// NewLedger creates a ledger priced by the given table.
func NewLedger(table PriceTable) *Ledger {
	return &Ledger{table: table}
}

// Track appends a usage record and returns the priced entry.
func (l *Ledger) Track(taskID string, usage Usage) Entry {
	entry := Entry{
		TaskID:        taskID,
		Usage:         usage,
		EstimatedCost: l.table.Cost(usage),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.totals = l.totals.Add(usage)
	l.cumulative += entry.EstimatedCost
	l.mu.Unlock()

	return entry
}

// Cumulative returns the running total cost across all tracked entries.
func (l *Ledger) Cumulative() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cumulative
}

// Totals returns the summed unit counts across all tracked entries.
func (l *Ledger) Totals() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

// Entries returns a copy of all tracked entries in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EstimateBatch projects the cost of running count tasks with the given
// average unit consumption. This is a pre-run estimate; actual cost comes
// from Cumulative after the batch completes.
func (l *Ledger) EstimateBatch(count int, avgInputUnits, avgOutputUnits float64) float64 {
	if count <= 0 {
		return 0
	}
	perTask := avgInputUnits/unitsPerPrice*l.table.InputPer1K +
		avgOutputUnits/unitsPerPrice*l.table.OutputPer1K
	return perTask * float64(count)
}

// OptimizationTips returns heuristic suggestions based on the usage mix
// tracked so far.
func (l *Ledger) OptimizationTips() []string {
	l.mu.Lock()
	entries := len(l.entries)
	totals := l.totals
	l.mu.Unlock()

	if entries == 0 {
		return []string{"no usage tracked yet; run a batch before asking for tips"}
	}

	var tips []string

	inputCost := l.table.Cost(Usage{InputUnits: totals.InputUnits})
	outputCost := l.table.Cost(Usage{OutputUnits: totals.OutputUnits})
	auxCost := l.table.Cost(Usage{AuxiliaryUnits: totals.AuxiliaryUnits})

	if outputCost > inputCost*2 {
		tips = append(tips, fmt.Sprintf(
			"output units dominate cost (%.4f vs %.4f input); consider tightening response length limits",
			outputCost, inputCost))
	}
	if totals.InputUnits > 0 {
		avgInput := totals.InputUnits / int64(entries)
		if avgInput > 4000 {
			tips = append(tips, fmt.Sprintf(
				"average input is %d units per task; trimming prompt boilerplate reduces spend linearly", avgInput))
		}
	}
	if auxCost > inputCost+outputCost {
		tips = append(tips, "auxiliary units exceed combined input/output cost; audit side-channel requests")
	}
	if len(tips) == 0 {
		tips = append(tips, "usage mix looks balanced; batch more tasks per run to amortize pacing overhead")
	}

	return tips
}
