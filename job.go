package jobqueue

import (
	"context"
	"time"
)

// State is the lifecycle position of a job.
//
// Transitions are pending → running → settled|cancelled, or
// pending → cancelled when the job never got a worker.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSettled
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSettled:
		return "settled"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateSettled || s == StateCancelled }

// JobInfo is a point-in-time copy of a job, handed to observers and
// returned by Lookup. Payload is the submitted value.
type JobInfo struct {
	ID          string
	Queue       string
	Payload     any
	State       State
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Executor runs one job. ctx is the job's composed cancellation signal:
// it is cancelled, with a *CancellationError cause, as soon as the job is
// cancelled by id, by Shutdown, by its deadline or by the submitter's
// context. Honoring it is up to the executor.
type Executor[T, R any] func(ctx context.Context, payload T, id string) (R, error)

// job is the queue-private record of one submission. Every field except
// the immutable ones is guarded by the owning queue's mutex.
type job[T, R any] struct {
	id      string
	seq     uint64
	payload T
	state   State

	submittedAt time.Time
	startedAt   time.Time
	finishedAt  time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc

	// released exactly once, on the terminal transition
	stopExternal func() bool
	timer        *time.Timer

	// set when the job was cancelled while running; its worker exits
	// once the executor returns because a replacement took the slot
	abandoned bool

	out *Outcome[R]
}

func (j *job[T, R]) info(queue string) JobInfo {
	return JobInfo{
		ID:          j.id,
		Queue:       queue,
		Payload:     j.payload,
		State:       j.state,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
		FinishedAt:  j.finishedAt,
	}
}

// release detaches the job from all of its cancellation sources.
func (j *job[T, R]) release() {
	if j.stopExternal != nil {
		j.stopExternal()
		j.stopExternal = nil
	}
	if j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}
}

// Outcome is the eventual result of a submitted job.
type Outcome[R any] struct {
	id   string
	done chan struct{}
	val  R
	err  error
}

func newOutcome[R any](id string) *Outcome[R] {
	return &Outcome[R]{id: id, done: make(chan struct{})}
}

// ID returns the job id assigned at submission.
func (o *Outcome[R]) ID() string { return o.id }

// Done is closed once the job is settled or cancelled.
func (o *Outcome[R]) Done() <-chan struct{} { return o.done }

// Wait blocks until the job finishes or ctx ends. A nil ctx waits
// without a bound.
//
// The error is a *ExecutionError, a *CancellationError, or ctx.Err() when
// the caller stopped waiting first.
func (o *Outcome[R]) Wait(ctx context.Context) (R, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-o.done:
		return o.val, o.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while the job
// is still pending or running.
func (o *Outcome[R]) Result() (val R, err error, ok bool) {
	select {
	case <-o.done:
		return o.val, o.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// resolve must be called at most once, under the queue lock.
func (o *Outcome[R]) resolve(val R, err error) {
	o.val = val
	o.err = err
	close(o.done)
}
