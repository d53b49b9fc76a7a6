// Package jobqueue provides a bounded-concurrency FIFO job queue with
// exactly-once settlement and cooperative cancellation.
//
// Model
//
// A Queue owns a single Executor and a fixed number of worker goroutines.
// Submit appends a job to the backlog and returns an Outcome; workers
// admit jobs strictly in submission order, so at most Concurrency jobs
// are ever running.
//
//	q, err := jobqueue.New("thumbnails", 4, render)
//	out, err := q.Submit(ctx, img, jobqueue.WithTimeout(30*time.Second))
//	thumb, err := out.Wait(ctx)
//
// Job lifecycle
//
// A job moves pending → running → settled|cancelled, or straight from
// pending to cancelled. Four independent sources can cancel it:
//
//   - Cancel(id)
//   - Shutdown, which aborts everything outstanding and leaves the queue usable
//   - the per-job deadline set with WithTimeout, measured from submission
//   - the context passed to Submit
//
// Whichever of settlement or cancellation happens first wins; later
// attempts are logged at debug level and ignored. A job cancelled while
// pending never reaches the executor. A running executor observes the
// cancellation through its context, whose cause is a *CancellationError.
// The queue never interrupts it, but its slot is released immediately: a
// fresh worker picks up the next job, and the executor's eventual result
// is discarded.
//
// Errors
//
// Outcomes fail with *ExecutionError (executor error or recovered panic)
// or *CancellationError carrying ReasonAbort or ReasonTimeout. AwaitJob
// fails with *WaitTimeoutError when its own deadline passes first.
//
// Events
//
// Observers receive admitted, processed, cancelled and cancel-requested
// notifications synchronously, in order, while the queue lock is held.
// The observability subpackage turns them into OpenTelemetry metrics.
//
// Related packages
//
//   - middleware: executor decorators (logging, tracing, retry, rate limiting)
//   - registry: process-wide get-or-create cache, used by Shared
//   - lazy: deferred construction of a value on first use
package jobqueue
