package cost

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() PriceTable {
	return PriceTable{InputPer1K: 0.003, OutputPer1K: 0.015, AuxiliaryPer1K: 0.001}
}

func TestPriceTable_Cost(t *testing.T) {
	table := testTable()

	cost := table.Cost(Usage{InputUnits: 2000, OutputUnits: 1000, AuxiliaryUnits: 500})
	assert.InDelta(t, 2*0.003+1*0.015+0.5*0.001, cost, Epsilon)

	assert.Zero(t, table.Cost(Usage{}))
}

func TestLedger_CumulativeEqualsSumOfEntries(t *testing.T) {
	ledger := NewLedger(testTable())
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data

	var expected float64
	for i := 0; i < 500; i++ {
		u := Usage{
			InputUnits:     rng.Int63n(5000),
			OutputUnits:    rng.Int63n(2000),
			AuxiliaryUnits: rng.Int63n(300),
		}
		entry := ledger.Track(fmt.Sprintf("task-%d", i), u)
		expected += entry.EstimatedCost
	}

	assert.InDelta(t, expected, ledger.Cumulative(), Epsilon)

	var resummed float64
	for _, e := range ledger.Entries() {
		resummed += e.EstimatedCost
	}
	assert.InDelta(t, resummed, ledger.Cumulative(), Epsilon)
}

func TestLedger_AdditivityIsOrderIndependent(t *testing.T) {
	usages := []Usage{
		{InputUnits: 1200, OutputUnits: 300},
		{InputUnits: 90, OutputUnits: 4000, AuxiliaryUnits: 11},
		{AuxiliaryUnits: 999},
		{InputUnits: 1, OutputUnits: 1, AuxiliaryUnits: 1},
	}

	forward := NewLedger(testTable())
	for i, u := range usages {
		forward.Track(fmt.Sprintf("f-%d", i), u)
	}

	reverse := NewLedger(testTable())
	for i := len(usages) - 1; i >= 0; i-- {
		reverse.Track(fmt.Sprintf("r-%d", i), usages[i])
	}

	assert.InDelta(t, forward.Cumulative(), reverse.Cumulative(), Epsilon)
}

func TestLedger_Totals(t *testing.T) {
	ledger := NewLedger(testTable())
	ledger.Track("a", Usage{InputUnits: 100, OutputUnits: 10})
	ledger.Track("b", Usage{InputUnits: 50, AuxiliaryUnits: 5})

	totals := ledger.Totals()
	assert.Equal(t, int64(150), totals.InputUnits)
	assert.Equal(t, int64(10), totals.OutputUnits)
	assert.Equal(t, int64(5), totals.AuxiliaryUnits)
}

func TestLedger_EstimateBatch(t *testing.T) {
	ledger := NewLedger(testTable())

	estimate := ledger.EstimateBatch(100, 1000, 250)
	perTask := 1.0*0.003 + 0.25*0.015
	assert.InDelta(t, 100*perTask, estimate, Epsilon)

	assert.Zero(t, ledger.EstimateBatch(0, 1000, 250))
	assert.Zero(t, ledger.EstimateBatch(-5, 1000, 250))
}

func TestLedger_OptimizationTips(t *testing.T) {
	t.Run("NoUsage", func(t *testing.T) {
		ledger := NewLedger(testTable())
		tips := ledger.OptimizationTips()
		require.Len(t, tips, 1)
		assert.Contains(t, tips[0], "no usage tracked")
	})

	t.Run("OutputDominant", func(t *testing.T) {
		ledger := NewLedger(testTable())
		ledger.Track("a", Usage{InputUnits: 100, OutputUnits: 10000})

		tips := ledger.OptimizationTips()
		assert.Contains(t, tips[0], "output units dominate")
	})

	t.Run("BalancedMix", func(t *testing.T) {
		ledger := NewLedger(testTable())
		ledger.Track("a", Usage{InputUnits: 1000, OutputUnits: 150})

		tips := ledger.OptimizationTips()
		require.NotEmpty(t, tips)
		assert.Contains(t, tips[0], "balanced")
	})
}

func TestLedger_ConcurrentTrack(t *testing.T) {
	ledger := NewLedger(testTable())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ledger.Track(fmt.Sprintf("w%d-t%d", w, i), Usage{InputUnits: 1000})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ledger.Entries(), 800)
	assert.InDelta(t, 800*0.003, ledger.Cumulative(), Epsilon)
}
