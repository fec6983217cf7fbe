// Package engine implements the adaptive parallel batch-execution engine:
// a bounded worker pool that dispatches independent long-latency tasks
// under a global rate gate, retries transient failures with jittered
// exponential backoff, and reports progress after every completion without
// letting any single task abort the batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/annobatch/annobatch/internal/cost"
	"github.com/annobatch/annobatch/internal/logging"
	"github.com/annobatch/annobatch/internal/metrics"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors surfaced by the engine.
var (
	// ErrNilWorkFunc is returned when ProcessBatch is called without a
	// work function.
	ErrNilWorkFunc = constError("work function cannot be nil")

	// ErrDuplicateTaskID is returned when two tasks in one batch share
	// an ID.
	ErrDuplicateTaskID = constError("duplicate task id in batch")

	// ErrAttemptTimeout classifies an attempt abandoned because the work
	// function did not settle within the task timeout.
	ErrAttemptTimeout = constError("task attempt timed out")

	// ErrBatchCanceled marks results for tasks that were still queued
	// when cancellation was requested.
	ErrBatchCanceled = constError("batch canceled before dispatch")
)

// WorkFunc executes one task. It must honor ctx cancellation: when an
// attempt times out the engine abandons the invocation and cancels ctx,
// but cannot preempt the goroutine running it.
type WorkFunc func(ctx context.Context, task Task) (WorkOutput, error)

// Config controls one engine instance. All fields have working defaults;
// validation happens eagerly in New, before any task is dispatched.
type Config struct {
	// Concurrency is the maximum number of simultaneously in-flight
	// work-function invocations. Must be positive.
	Concurrency int

	// Retry governs per-task retry and backoff behavior.
	Retry RetryPolicy

	// TaskTimeout bounds a single attempt. Zero disables the timeout.
	TaskTimeout time.Duration

	// RateLimitDelay is the minimum spacing between dispatch starts,
	// shared across all workers. Zero disables pacing.
	RateLimitDelay time.Duration

	// Observer receives a snapshot after every completion event.
	Observer ProgressObserver

	// OnProgress is a convenience alternative to Observer. When both are
	// set, both are notified.
	OnProgress func(Snapshot)

	// Tracker records per-task samples. A fresh tracker is created when
	// nil; callers may inject one to aggregate across batches.
	Tracker *metrics.Tracker

	// Ledger accumulates per-task cost. A fresh ledger with zero prices
	// is created when nil.
	Ledger *cost.Ledger

	// Clock is injected for tests. Defaults to the real clock.
	Clock clockwork.Clock
}

func (c *Config) validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry attempts must be non-negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative, got %s", c.Retry.BaseDelay)
	}
	if c.Retry.JitterRatio < 0 || c.Retry.JitterRatio > 1 {
		return fmt.Errorf("jitter ratio must be within [0, 1], got %g", c.Retry.JitterRatio)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task timeout must be non-negative, got %s", c.TaskTimeout)
	}
	if c.RateLimitDelay < 0 {
		return fmt.Errorf("rate limit delay must be non-negative, got %s", c.RateLimitDelay)
	}
	return nil
}

// Engine runs batches of independent tasks. One Engine may run multiple
// batches sequentially; concurrent ProcessBatch calls on the same Engine
// share the rate gate, tracker, and ledger.
type Engine struct {
	cfg      Config
	clock    clockwork.Clock
	limiter  *RateLimiter
	tracker  *metrics.Tracker
	ledger   *cost.Ledger
	canceled atomic.Bool
}

// New validates cfg and builds an engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = metrics.NewTracker(clock)
	}
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = cost.NewLedger(cost.PriceTable{})
	}

	return &Engine{
		cfg:     cfg,
		clock:   clock,
		limiter: NewRateLimiter(cfg.RateLimitDelay, clock),
		tracker: tracker,
		ledger:  ledger,
	}, nil
}

// Tracker returns the engine's performance tracker.
func (e *Engine) Tracker() *metrics.Tracker { return e.tracker }

// Ledger returns the engine's cost ledger.
func (e *Engine) Ledger() *cost.Ledger { return e.ledger }

// Cancel requests cooperative cancellation: no new task is dispatched
// after the flag is set, but in-flight attempts run to completion and are
// recorded. Cancel never interrupts a running work function.
func (e *Engine) Cancel() {
	e.canceled.Store(true)
}

// Canceled reports whether cancellation has been requested.
func (e *Engine) Canceled() bool {
	return e.canceled.Load()
}

// batchRun holds the shared mutable state of one ProcessBatch call.
type batchRun struct {
	queue   *taskQueue
	results []Result
	workFn  WorkFunc
	started time.Time

	mu            sync.Mutex
	completed     int
	failed        int
	retriedTasks  int
	totalDuration time.Duration

	notifyMu sync.Mutex
}

// ProcessBatch executes every task and returns one Result per task in
// submission order. Individual task failures are captured in their Result;
// only configuration errors and internal invariant violations are returned
// as errors. A nil error means the engine ran to completion, not that all
// tasks succeeded.
func (e *Engine) ProcessBatch(ctx context.Context, tasks []Task, workFn WorkFunc) ([]Result, error) {
	if workFn == nil {
		return nil, ErrNilWorkFunc
	}
	if err := validateTaskIDs(tasks); err != nil {
		return nil, err
	}

	log := logging.ComponentLogger(logging.FromContext(ctx), "engine")
	runID := logging.RunIDFromContext(ctx)

	run := &batchRun{
		queue:   newTaskQueue(tasks),
		results: make([]Result, len(tasks)),
		workFn:  workFn,
		started: e.clock.Now(),
	}

	log.Info().
		Str("run_id", runID).
		Int("task_count", len(tasks)).
		Int("concurrency", e.cfg.Concurrency).
		Dur("rate_limit_delay", e.cfg.RateLimitDelay).
		Int("retry_attempts", e.cfg.Retry.MaxRetries).
		Msg("starting batch")

	workers := e.cfg.Concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	g := new(errgroup.Group)
	for rr := 0; rr < workers; rr++ {
		g.Go(func() error {
			return e.worker(ctx, run)
		})
	}
	if err := g.Wait(); err != nil {
		return run.results, fmt.Errorf("batch worker failed: %w", err)
	}

	log.Info().
		Str("run_id", runID).
		Int("completed", run.completed).
		Int("failed", run.failed).
		Dur("elapsed", e.clock.Since(run.started)).
		Msg("batch finished")

	return run.results, nil
}

// worker is one of exactly Concurrency execution lanes. It pulls queued
// tasks until the queue drains, finalizing (without dispatching) any task
// popped after cancellation was requested.
func (e *Engine) worker(ctx context.Context, run *batchRun) error {
	for {
		qt, ok := run.queue.pop()
		if !ok {
			return nil
		}

		if e.canceled.Load() || ctx.Err() != nil {
			res := Result{
				TaskID:    qt.task.ID,
				Succeeded: false,
				Err: &ErrorDescriptor{
					Kind:    ErrorKindCanceled,
					Message: ErrBatchCanceled.Error(),
				},
			}
			run.results[qt.index] = res
			e.noteCompletion(run, res, false)
			continue
		}

		res := e.runTask(ctx, run, qt.task)
		run.results[qt.index] = res
		e.noteCompletion(run, res, true)
	}
}

// taskState is the per-task execution state machine. Transitions:
// pending -> attempting -> (succeeded | retrying -> attempting | failed).
type taskState int

const (
	statePending taskState = iota
	stateAttempting
	stateRetrying
	stateSucceeded
	stateFailed
)

// runTask drives one task through the state machine until it settles.
func (e *Engine) runTask(ctx context.Context, run *batchRun, task Task) Result {
	log := logging.ComponentLogger(logging.FromContext(ctx), "engine")

	var (
		state       = statePending
		retriesUsed int
		lastErr     error
		lastOutcome Outcome
		output      WorkOutput
		usage       cost.Usage
		inFlight    time.Duration
	)

	for state != stateSucceeded && state != stateFailed {
		switch state {
		case statePending:
			state = stateAttempting

		case stateRetrying:
			delay := e.cfg.Retry.NextDelay(retriesUsed)
			retriesUsed++
			log.Debug().
				Str("task_id", task.ID).
				Int("retry", retriesUsed).
				Dur("backoff", delay).
				Str("outcome", string(lastOutcome)).
				Msg("retrying task after backoff")
			if err := e.sleep(ctx, delay); err != nil {
				state = stateFailed
				continue
			}
			state = stateAttempting

		case stateAttempting:
			if err := e.limiter.Wait(ctx); err != nil {
				lastErr = err
				lastOutcome = OutcomeFailure
				state = stateFailed
				continue
			}

			attempt, out, err := e.attempt(ctx, run, task, retriesUsed+1)
			inFlight += attempt.Duration()
			usage = usage.Add(out.Usage)
			lastOutcome = attempt.Outcome

			if err == nil {
				output = out
				state = stateSucceeded
				continue
			}
			lastErr = err

			// Cancellation requested mid-task: the attempt ran to
			// completion, but the retry budget stops here.
			if e.canceled.Load() || ctx.Err() != nil {
				state = stateFailed
				continue
			}

			if e.cfg.Retry.ShouldRetry(retriesUsed, err) {
				state = stateRetrying
			} else {
				state = stateFailed
			}
		}
	}

	res := Result{
		TaskID:      task.ID,
		Duration:    inFlight,
		RetriesUsed: retriesUsed,
	}
	if state == stateSucceeded {
		res.Succeeded = true
		res.Value = output.Value
	} else {
		res.Err = describeError(lastErr, lastOutcome)
		log.Debug().
			Str("task_id", task.ID).
			Int("retries_used", retriesUsed).
			Str("kind", string(res.Err.Kind)).
			Msg("task finalized as failed")
	}

	e.tracker.Record(res.Duration, res.RetriesUsed, !res.Succeeded)
	e.ledger.Track(task.ID, usage)

	return res
}

// attempt dispatches the work function once, bounded by the task timeout.
func (e *Engine) attempt(ctx context.Context, run *batchRun, task Task, attemptNumber int) (Attempt, WorkOutput, error) {
	started := e.clock.Now()
	out, err := e.invoke(ctx, run.workFn, task)
	finished := e.clock.Now()

	return Attempt{
		TaskID:        task.ID,
		AttemptNumber: attemptNumber,
		StartedAt:     started,
		FinishedAt:    finished,
		Outcome:       classifyOutcome(err),
	}, out, err
}

// invoke runs the work function, abandoning the attempt if it does not
// settle within the task timeout. The abandoned goroutine keeps running
// until the work function observes its canceled context; its result is
// discarded through the buffered channel.
func (e *Engine) invoke(ctx context.Context, workFn WorkFunc, task Task) (WorkOutput, error) {
	if e.cfg.TaskTimeout <= 0 {
		return workFn(ctx, task)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type settled struct {
		out WorkOutput
		err error
	}
	done := make(chan settled, 1)

	go func() {
		out, err := workFn(attemptCtx, task)
		done <- settled{out: out, err: err}
	}()

	select {
	case s := <-done:
		return s.out, s.err
	case <-e.clock.After(e.cfg.TaskTimeout):
		cancel()
		return WorkOutput{}, ErrAttemptTimeout
	case <-ctx.Done():
		return WorkOutput{}, ctx.Err()
	}
}

// sleep waits for the backoff delay on the injected clock, returning early
// on context cancellation.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-e.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noteCompletion updates progress counters and notifies observers. The
// snapshot is computed under the state lock, but observers are called
// outside it so a slow observer cannot stall counter updates; a separate
// notify lock serializes observer invocations.
func (e *Engine) noteCompletion(run *batchRun, res Result, dispatched bool) {
	run.mu.Lock()
	run.completed++
	if !res.Succeeded {
		run.failed++
	}
	if res.RetriesUsed > 0 {
		run.retriedTasks++
	}
	if dispatched {
		run.totalDuration += res.Duration
	}

	snap := Snapshot{
		Completed: run.completed,
		Failed:    run.failed,
		Total:     len(run.results),
		Elapsed:   e.clock.Since(run.started),
	}
	if run.completed > 0 {
		snap.SuccessRate = float64(run.completed-run.failed) / float64(run.completed)
		snap.ErrorRate = float64(run.failed) / float64(run.completed)
		snap.RetryRate = float64(run.retriedTasks) / float64(run.completed)
		snap.AverageDuration = run.totalDuration / time.Duration(run.completed)
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.ThroughputPerSec = float64(run.completed) / secs
	}
	run.mu.Unlock()

	if e.cfg.Observer == nil && e.cfg.OnProgress == nil {
		return
	}

	run.notifyMu.Lock()
	defer run.notifyMu.Unlock()
	if e.cfg.Observer != nil {
		e.cfg.Observer.OnProgress(snap)
	}
	if e.cfg.OnProgress != nil {
		e.cfg.OnProgress(snap)
	}
}

func validateTaskIDs(tasks []Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTaskID, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

func classifyOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrAttemptTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeFailure
	}
}

func describeError(err error, outcome Outcome) *ErrorDescriptor {
	kind := ErrorKindFailure
	switch {
	case outcome == OutcomeTimeout:
		kind = ErrorKindTimeout
	case err != nil && errors.Is(err, context.Canceled):
		kind = ErrorKindCanceled
	}

	msg := "task failed"
	if err != nil {
		msg = err.Error()
	}
	return &ErrorDescriptor{Kind: kind, Message: msg}
}
