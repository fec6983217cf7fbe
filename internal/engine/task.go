package engine

import (
	"time"

	"github.com/annobatch/annobatch/internal/cost"
)

// Task is one unit of work submitted to the engine. Tasks are immutable
// once submitted; the engine owns them for the duration of the batch.
type Task struct {
	// ID identifies the task. IDs must be unique within a batch.
	ID string

	// Payload is opaque to the engine and handed to the work function.
	Payload any

	// Priority orders dispatch. Higher values are dequeued first; ties
	// fall back to submission order.
	Priority int
}

// WorkOutput is what a work function produces for a single task. Usage is
// optional; work functions that talk to a metered provider report unit
// consumption here so the cost ledger can account for it.
type WorkOutput struct {
	Value any
	Usage cost.Usage
}

// Outcome classifies how a single attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// Attempt is the ephemeral record of one dispatch of one task. It exists
// only long enough to feed the performance tracker.
type Attempt struct {
	TaskID        string
	AttemptNumber int
	StartedAt     time.Time
	FinishedAt    time.Time
	Outcome       Outcome
}

// Duration returns the wall time the attempt spent in flight.
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// ErrorKind classifies a terminal task error.
type ErrorKind string

const (
	ErrorKindFailure  ErrorKind = "failure"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindCanceled ErrorKind = "canceled"
)

// ErrorDescriptor describes why a task finished unsuccessfully. It is a
// plain value so batch results stay serializable.
type ErrorDescriptor struct {
	Kind    ErrorKind
	Message string
}

func (e *ErrorDescriptor) Error() string {
	return e.Message
}

// Result is the terminal outcome for one submitted task. ProcessBatch
// returns exactly one Result per task, in submission order.
type Result struct {
	TaskID      string
	Succeeded   bool
	Value       any
	Err         *ErrorDescriptor
	Duration    time.Duration
	RetriesUsed int
}
