package jobqueue

import (
	"context"
	"testing"
	"time"
)

func TestShutdownClearsBacklogRing(t *testing.T) {
	started := make(chan struct{}, 1)
	q, err := New("ring", 1, func(ctx context.Context, _ int, _ string) (int, error) {
		started <- struct{}{}
		<-ctx.Done()
		return 0, nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer q.Stop()

	_, _ = q.Submit(context.Background(), 0)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first job never started")
	}
	for i := 1; i <= 3; i++ {
		_, _ = q.Submit(context.Background(), i)
	}

	if n := q.Shutdown(); n != 3 {
		t.Fatalf("Shutdown reported %d pending; want 3", n)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.backlog.Len() != 0 {
		t.Fatalf("backlog ring holds %d entries after Shutdown", q.backlog.Len())
	}
	if len(q.jobs) != 0 || q.pending != 0 || q.running != 0 {
		t.Fatalf("jobs=%d pending=%d running=%d; want all zero", len(q.jobs), q.pending, q.running)
	}
}
