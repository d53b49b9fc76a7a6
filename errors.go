package jobqueue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueClosed is returned by Submit once Close has been called.
	ErrQueueClosed = errors.New("jobqueue: queue closed")

	// ErrNilExecutor is returned when a queue is built without an executor.
	ErrNilExecutor = errors.New("jobqueue: executor is nil")

	// ErrCancelled matches every *CancellationError via errors.Is.
	ErrCancelled = errors.New("jobqueue: job cancelled")

	// ErrWaitTimeout matches every *WaitTimeoutError via errors.Is.
	ErrWaitTimeout = errors.New("jobqueue: wait timed out")
)

// Reason tells why a job was cancelled.
type Reason string

const (
	// ReasonAbort covers Cancel, Shutdown, Close and the submitter's context.
	ReasonAbort Reason = "abort"

	// ReasonTimeout is used when the per-job deadline fired first.
	ReasonTimeout Reason = "timeout"
)

func (r Reason) String() string { return string(r) }

// CancellationError is the failure carried by the outcome of a cancelled job.
// It is also the cause of the job context handed to the executor.
type CancellationError struct {
	JobID  string
	Reason Reason

	// Cause is the external context's cause when that context triggered
	// the cancellation. Nil otherwise.
	Cause error
}

func (e *CancellationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jobqueue: job %s cancelled (%s): %v", e.JobID, e.Reason, e.Cause)
	}
	return fmt.Sprintf("jobqueue: job %s cancelled (%s)", e.JobID, e.Reason)
}

func (e *CancellationError) Is(target error) bool { return target == ErrCancelled }

func (e *CancellationError) Unwrap() error { return e.Cause }

// ExecutionError wraps a failure returned by the executor, or a recovered panic.
type ExecutionError struct {
	JobID string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("jobqueue: job %s failed: %v", e.JobID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// WaitTimeoutError is returned by AwaitJob when its own deadline elapsed
// before the job reached a terminal state.
type WaitTimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("jobqueue: job %s not finished within %s", e.JobID, e.Timeout)
}

func (e *WaitTimeoutError) Is(target error) bool { return target == ErrWaitTimeout }

// ReasonOf extracts the cancellation reason from err, if err is (or wraps)
// a *CancellationError.
func ReasonOf(err error) (Reason, bool) {
	var ce *CancellationError
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}
