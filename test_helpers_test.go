package jobqueue_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Andrej220/go-utils/jobqueue"
)

func newTestQueue[T, R any](t *testing.T, concurrency int, exec jobqueue.Executor[T, R], observers ...jobqueue.Observer) *jobqueue.Queue[T, R] {
	t.Helper()

	q, err := jobqueue.NewFromOptions("test", exec, jobqueue.Options{
		Concurrency: concurrency,
		Logger:      zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)),
		Observers:   observers,
	})
	if err != nil {
		t.Fatalf("NewFromOptions: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := q.Close(ctx); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return q
}

// blockingExec runs until the job is cancelled and reports every start
// on started.
func blockingExec(started chan<- string) jobqueue.Executor[string, string] {
	return func(ctx context.Context, payload string, _ string) (string, error) {
		if started != nil {
			started <- payload
		}
		<-ctx.Done()
		return "", context.Cause(ctx)
	}
}

func waitOutcome[R any](t *testing.T, out *jobqueue.Outcome[R], timeout time.Duration) (R, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	res, err := out.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("job %s did not finish within %v", out.ID(), timeout)
	}
	return res, err
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

// recorder is an Observer that keeps every event, in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	byJob  map[string][]string
}

func newRecorder() *recorder {
	return &recorder{byJob: make(map[string][]string)}
}

func (r *recorder) add(id, ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.byJob[id] = append(r.byJob[id], ev)
}

func (r *recorder) OnAdmitted(j jobqueue.JobInfo, _ int) { r.add(j.ID, "admitted") }

func (r *recorder) OnProcessed(j jobqueue.JobInfo, _ any, err error, _ int) {
	if err != nil {
		r.add(j.ID, "failed")
		return
	}
	r.add(j.ID, "processed")
}

func (r *recorder) OnCancelled(j jobqueue.JobInfo, reason jobqueue.Reason, _ int) {
	r.add(j.ID, "cancelled:"+reason.String())
}

func (r *recorder) OnCancelRequested(id string) { r.add(id, "cancel-requested") }

func (r *recorder) job(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.byJob[id]...)
}
