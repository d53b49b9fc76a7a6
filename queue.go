package jobqueue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue runs submitted jobs through a single executor, at most
// Concurrency at a time, in submission order.
//
// All bookkeeping (backlog, job index, counters, state transitions) is
// guarded by one mutex, so settlement and cancellation race safely and
// exactly one of them wins for every job.
//
// The limit counts jobs in the running state. An executor whose job was
// cancelled may still be running after its slot went to the next job.
type Queue[T, R any] struct {
	name string
	exec Executor[T, R]
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	backlog *fifoQueue[*job[T, R]]
	jobs    map[string]*job[T, R] // pending and running jobs only
	seq     uint64
	pending int
	running int
	closed  bool

	wg sync.WaitGroup
}

// New creates a queue named name that runs at most concurrency jobs at once.
func New[T, R any](name string, concurrency int, exec Executor[T, R]) (*Queue[T, R], error) {
	return NewFromOptions(name, exec, Options{Concurrency: concurrency})
}

// NewFromOptions creates a queue and starts its workers.
func NewFromOptions[T, R any](name string, exec Executor[T, R], opts Options) (*Queue[T, R], error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	opts.FillDefaults()

	q := &Queue[T, R]{
		name:    name,
		exec:    exec,
		opts:    opts,
		log:     opts.Logger.With(zap.String("queue", name)),
		backlog: newFifoQueue[*job[T, R]](opts.BacklogCapacity),
		jobs:    make(map[string]*job[T, R]),
	}
	q.cond = sync.NewCond(&q.mu)

	for i := 0; i < opts.Concurrency; i++ {
		q.spawnWorker()
	}
	q.log.Info("queue started", zap.Int("concurrency", opts.Concurrency))
	return q, nil
}

// Submit appends payload to the backlog and returns its outcome handle.
//
// ctx is the external cancellation signal: when it ends, the job is
// cancelled with ReasonAbort. Values stored in ctx remain visible to the
// executor. The only error is ErrQueueClosed.
func (q *Queue[T, R]) Submit(ctx context.Context, payload T, opts ...SubmitOption) (*Outcome[R], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.NewString()
	jctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	j := &job[T, R]{
		id:          id,
		payload:     payload,
		state:       StatePending,
		submittedAt: time.Now(),
		ctx:         jctx,
		cancel:      cancel,
		out:         newOutcome[R](id),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		cancel(ErrQueueClosed)
		return nil, ErrQueueClosed
	}

	q.seq++
	j.seq = q.seq
	q.jobs[id] = j
	q.backlog.Push(j)
	q.pending++
	q.opts.Metrics.IncQueued()

	q.log.Debug("job admitted", zap.String("job_id", id), zap.Int("backlog", q.pending))
	info := j.info(q.name)
	q.emit(func(o Observer) { o.OnAdmitted(info, q.pending) })

	if ctx.Err() != nil {
		// Already cancelled: settle it before any worker can pick it up.
		q.cancelLocked(j, ReasonAbort, context.Cause(ctx))
		return j.out, nil
	}

	j.stopExternal = context.AfterFunc(ctx, func() {
		q.cancelJob(j, ReasonAbort, context.Cause(ctx))
	})
	if cfg.timeout > 0 {
		j.timer = time.AfterFunc(cfg.timeout, func() {
			q.cancelJob(j, ReasonTimeout, nil)
		})
	}

	q.cond.Signal()
	return j.out, nil
}

// Cancel aborts the job with the given id if it is still pending or
// running. It reports whether this call cancelled it; unknown and
// already finished ids are a no-op and return false.
func (q *Queue[T, R]) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.emit(func(o Observer) { o.OnCancelRequested(id) })

	j, ok := q.jobs[id]
	if !ok {
		q.log.Debug("cancel requested for untracked job", zap.String("job_id", id))
		return false
	}
	return q.cancelLocked(j, ReasonAbort, nil)
}

// Shutdown cancels every pending and running job with ReasonAbort and
// returns how many of them were still pending. The queue keeps accepting
// submissions afterwards.
//
// Running executors are only signalled. Their slots are handed to fresh
// workers right away, so the backlog keeps moving even if an executor
// ignores the signal.
func (q *Queue[T, R]) Shutdown() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.abortAllLocked("shutdown")
}

// AwaitJob blocks until the job reaches a terminal state.
//
// It returns nil right away when id is not tracked, which covers both
// finished and never-submitted jobs; use Lookup beforehand to tell them
// apart. A *WaitTimeoutError is returned once timeout elapses
// (DefaultAwaitTimeout when timeout <= 0), and ctx.Err() if ctx ends first.
// A nil ctx is treated as context.Background().
// The job's own result is not reported here; read it from its Outcome.
func (q *Queue[T, R]) AwaitJob(ctx context.Context, id string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	j, ok := q.jobs[id]
	q.mu.Unlock()
	if !ok {
		return nil
	}

	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-j.out.Done():
		return nil
	case <-timer.C:
		return &WaitTimeoutError{JobID: id, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns a snapshot of a pending or running job.
func (q *Queue[T, R]) Lookup(id string) (JobInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return JobInfo{}, false
	}
	return j.info(q.name), true
}

// Close rejects further submissions, cancels everything outstanding and
// waits until all workers have exited or ctx ends. Calling it again only
// waits.
func (q *Queue[T, R]) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.abortAllLocked("close")
		q.cond.Broadcast()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.wg.Wait()
	}()
	select {
	case <-done:
		q.log.Info("queue closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is a blocking Close.
func (q *Queue[T, R]) Stop() { _ = q.Close(context.Background()) }

func (q *Queue[T, R]) Name() string     { return q.name }
func (q *Queue[T, R]) Concurrency() int { return q.opts.Concurrency }

// BacklogLen returns the number of jobs waiting for a worker.
func (q *Queue[T, R]) BacklogLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Running returns the number of jobs in the running state.
func (q *Queue[T, R]) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// spawnWorker starts one worker goroutine. Callers hold q.mu or own q
// exclusively.
func (q *Queue[T, R]) spawnWorker() {
	q.wg.Add(1)
	go q.worker()
}

func (q *Queue[T, R]) worker() {
	defer q.wg.Done()
	for {
		j, ok := q.next()
		if !ok {
			return
		}
		if !q.run(j) {
			return
		}
	}
}

// next blocks until the head of the backlog can be admitted. Jobs that
// were cancelled while queued are dropped without taking the slot.
// It returns false once the queue is closed and the backlog is empty.
func (q *Queue[T, R]) next() (*job[T, R], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for q.backlog.Len() == 0 {
			if q.closed {
				return nil, false
			}
			q.cond.Wait()
		}

		j, _ := q.backlog.Pop()
		if j.state != StatePending {
			q.log.Debug("dropping cancelled job", zap.String("job_id", j.id))
			continue
		}

		j.state = StateRunning
		j.startedAt = time.Now()
		q.pending--
		q.running++
		q.opts.Metrics.DecQueued()
		return j, true
	}
}

// run executes j and settles it. It reports whether the calling worker
// still owns its slot; false means the job was cancelled mid-run and a
// replacement worker already took over.
func (q *Queue[T, R]) run(j *job[T, R]) bool {
	val, err := q.execute(j)

	q.mu.Lock()
	info, jobErr, settled := q.settleLocked(j, val, err)
	keep := !j.abandoned
	q.mu.Unlock()

	if settled && jobErr != nil {
		q.reportJobError(info, jobErr)
	}
	return keep
}

func (q *Queue[T, R]) execute(j *job[T, R]) (val R, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("executor panicked",
				zap.String("job_id", j.id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.exec(j.ctx, j.payload, j.id)
}

// settleLocked records the executor's result unless the job was
// cancelled in the meantime.
func (q *Queue[T, R]) settleLocked(j *job[T, R], val R, err error) (JobInfo, error, bool) {
	if j.state != StateRunning {
		q.log.Debug("ignoring settlement of finished job",
			zap.String("job_id", j.id),
			zap.Stringer("state", j.state),
			zap.Error(err),
		)
		return JobInfo{}, nil, false
	}

	q.running--
	j.state = StateSettled
	j.finishedAt = time.Now()
	delete(q.jobs, j.id)
	j.release()
	j.cancel(nil)
	q.opts.Metrics.IncExecuted()

	var result any
	if err != nil {
		err = &ExecutionError{JobID: j.id, Err: err}
		q.opts.Metrics.IncFailed()
		q.log.Debug("job failed", zap.String("job_id", j.id), zap.Error(err))
	} else {
		result = val
		q.log.Debug("job processed", zap.String("job_id", j.id))
	}

	// Observers run before the outcome is released so a waiter never
	// sees a result its observers have not.
	info := j.info(q.name)
	q.emit(func(o Observer) { o.OnProcessed(info, result, err, q.pending) })
	if err != nil {
		var zero R
		j.out.resolve(zero, err)
	} else {
		j.out.resolve(val, nil)
	}
	return info, err, true
}

func (q *Queue[T, R]) cancelJob(j *job[T, R], reason Reason, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelLocked(j, reason, cause)
}

// cancelLocked moves a pending or running job to the cancelled state and
// reports whether it did. A pending job stays in the backlog ring until a
// worker pops and drops it. A running job gives up its slot at once: a new
// worker is started and the old one exits when its executor returns.
func (q *Queue[T, R]) cancelLocked(j *job[T, R], reason Reason, cause error) bool {
	if j.state.Terminal() {
		q.log.Debug("ignoring cancellation of finished job",
			zap.String("job_id", j.id),
			zap.Stringer("state", j.state),
			zap.Stringer("reason", reason),
		)
		return false
	}

	switch j.state {
	case StatePending:
		q.pending--
		q.opts.Metrics.DecQueued()
	case StateRunning:
		q.running--
		j.abandoned = true
		q.spawnWorker()
	}
	j.state = StateCancelled
	j.finishedAt = time.Now()
	delete(q.jobs, j.id)
	j.release()

	cerr := &CancellationError{JobID: j.id, Reason: reason, Cause: cause}
	j.cancel(cerr)
	q.opts.Metrics.IncCancelled()

	q.log.Debug("job cancelled", zap.String("job_id", j.id), zap.Stringer("reason", reason))
	info := j.info(q.name)
	q.emit(func(o Observer) { o.OnCancelled(info, reason, q.pending) })
	var zero R
	j.out.resolve(zero, cerr)
	return true
}

// abortAllLocked cancels every tracked job in submission order and
// returns how many were pending.
func (q *Queue[T, R]) abortAllLocked(op string) int {
	pending := q.pending
	q.log.Info("aborting outstanding jobs",
		zap.String("op", op),
		zap.Int("pending", pending),
		zap.Int("running", q.running),
	)

	outstanding := make([]*job[T, R], 0, len(q.jobs))
	for _, j := range q.jobs {
		outstanding = append(outstanding, j)
	}
	slices.SortFunc(outstanding, func(a, b *job[T, R]) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	for _, j := range outstanding {
		q.cancelLocked(j, ReasonAbort, nil)
	}
	// every queued entry is cancelled now; free them without waiting for
	// the workers to pop them
	dropped := q.backlog.Drain()
	q.log.Debug("backlog cleared", zap.Int("dropped", len(dropped)))
	return pending
}

func (q *Queue[T, R]) emit(fn func(Observer)) {
	for _, o := range q.opts.Observers {
		q.notify(o, fn)
	}
}

func (q *Queue[T, R]) notify(o Observer, fn func(Observer)) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("observer panicked", zap.Any("panic", r))
			q.reportInternalError(fmt.Errorf("jobqueue: observer %T panicked: %v", o, r))
		}
	}()
	fn(o)
}
