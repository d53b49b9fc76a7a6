package jobqueue

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the queue to report
// admission and settlement activity.
//
// Implementations must be safe for concurrent use.
// All methods are called with the queue lock held, so they are expected
// to be lightweight and non-blocking.
type MetricsPolicy interface {

	// IncQueued is called when a job enters the backlog.
	IncQueued()

	// DecQueued is called when a job leaves the backlog, either because a
	// worker admitted it or because it was cancelled while pending.
	DecQueued()

	// IncExecuted increments the counter of jobs settled by their executor,
	// successfully or not.
	IncExecuted()

	// IncFailed increments the counter of executor failures.
	IncFailed()

	// IncCancelled increments the cancelled jobs counter.
	IncCancelled()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	// executed is the total number of jobs settled by the executor.
	executed atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	// queued is the current number of pending jobs.
	queued atomic.Int64

	failed    atomic.Uint64
	cancelled atomic.Uint64
}

// Executed returns the total number of executed jobs.
func (m *AtomicMetrics) Executed() uint64 {
	return m.executed.Load()
}

// Queued returns the current number of queued jobs.
func (m *AtomicMetrics) Queued() int64 {
	return m.queued.Load()
}

// Failed returns how many executions ended in an error.
func (m *AtomicMetrics) Failed() uint64 {
	return m.failed.Load()
}

// Cancelled returns the total number of cancelled jobs.
func (m *AtomicMetrics) Cancelled() uint64 {
	return m.cancelled.Load()
}

func (m *AtomicMetrics) IncExecuted()  { m.executed.Add(1) }
func (m *AtomicMetrics) IncQueued()    { m.queued.Add(1) }
func (m *AtomicMetrics) DecQueued()    { m.queued.Add(-1) }
func (m *AtomicMetrics) IncFailed()    { m.failed.Add(1) }
func (m *AtomicMetrics) IncCancelled() { m.cancelled.Add(1) }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncQueued()    {}
func (m *NoopMetrics) DecQueued()    {}
func (m *NoopMetrics) IncExecuted()  {}
func (m *NoopMetrics) IncFailed()    {}
func (m *NoopMetrics) IncCancelled() {}
