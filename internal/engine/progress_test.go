package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressFunc_Adapts(t *testing.T) {
	var got Snapshot
	var obs ProgressObserver = ProgressFunc(func(s Snapshot) { got = s })

	obs.OnProgress(Snapshot{Completed: 3, Total: 10})
	assert.Equal(t, 3, got.Completed)
	assert.Equal(t, 10, got.Total)
}

func TestChannelObserver_DeliversLatest(t *testing.T) {
	obs := NewChannelObserver()

	obs.OnProgress(Snapshot{Completed: 1})
	snap := <-obs.C
	assert.Equal(t, 1, snap.Completed)
}

func TestChannelObserver_DropsStaleWhenReceiverLags(t *testing.T) {
	obs := NewChannelObserver()

	// No receiver: the second snapshot replaces the first.
	obs.OnProgress(Snapshot{Completed: 1})
	obs.OnProgress(Snapshot{Completed: 2})

	snap := <-obs.C
	assert.Equal(t, 2, snap.Completed)

	select {
	case extra := <-obs.C:
		t.Fatalf("unexpected extra snapshot: %+v", extra)
	default:
	}
}

func TestChannelObserver_CloseAfterBatch(t *testing.T) {
	obs := NewChannelObserver()
	obs.OnProgress(Snapshot{Completed: 5})
	obs.Close()

	snap, ok := <-obs.C
	require.True(t, ok)
	assert.Equal(t, 5, snap.Completed)

	_, ok = <-obs.C
	assert.False(t, ok)
}
