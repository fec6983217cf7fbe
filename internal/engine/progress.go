package engine

import "time"

// Snapshot is a read-only view of batch progress, recomputed on each
// completion event. Counters only move forward.
type Snapshot struct {
	Completed        int
	Failed           int
	Total            int
	Elapsed          time.Duration
	AverageDuration  time.Duration
	ThroughputPerSec float64
	SuccessRate      float64
	RetryRate        float64
	ErrorRate        float64
}

// ProgressObserver receives progress snapshots as tasks complete. The
// engine invokes it at most once per completion event (success or final
// failure), serialized, so implementations need no locking of their own.
type ProgressObserver interface {
	OnProgress(Snapshot)
}

// ProgressFunc adapts a plain function to the ProgressObserver interface.
type ProgressFunc func(Snapshot)

// OnProgress implements ProgressObserver.
func (f ProgressFunc) OnProgress(s Snapshot) { f(s) }

// ChannelObserver publishes snapshots to a channel, decoupling reporting
// cadence from the engine's locking. Sends never block: when the receiver
// lags, the stale snapshot is dropped in favor of the next one.
type ChannelObserver struct {
	C chan Snapshot
}

// NewChannelObserver creates an observer with a buffer of one snapshot.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{C: make(chan Snapshot, 1)}
}

// OnProgress implements ProgressObserver.
func (o *ChannelObserver) OnProgress(s Snapshot) {
	select {
	case o.C <- s:
	default:
		// Receiver is behind; drop the stale snapshot and replace it.
		select {
		case <-o.C:
		default:
		}
		select {
		case o.C <- s:
		default:
		}
	}
}

// Close closes the snapshot channel. Call only after ProcessBatch returns.
func (o *ChannelObserver) Close() { close(o.C) }
