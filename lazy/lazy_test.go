package lazy_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Andrej220/go-utils/jobqueue/lazy"
)

func TestValueBuildsOnFirstGet(t *testing.T) {
	var calls atomic.Int32
	v := lazy.New(func() (string, error) {
		calls.Add(1)
		return "ready", nil
	})

	if v.Built() {
		t.Fatal("value built before first Get")
	}
	if calls.Load() != 0 {
		t.Fatalf("build ran %d times before Get", calls.Load())
	}

	got, err := v.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "ready" {
		t.Fatalf("Get = %q; want %q", got, "ready")
	}
	if !v.Built() {
		t.Fatal("Built = false after Get")
	}
	if got := v.Must(); got != "ready" {
		t.Fatalf("Must = %q; want %q", got, "ready")
	}
	if calls.Load() != 1 {
		t.Fatalf("build ran %d times; want 1", calls.Load())
	}
}

func TestValueConcurrentGet(t *testing.T) {
	var calls atomic.Int32
	v := lazy.New(func() (*int, error) {
		calls.Add(1)
		n := 42
		return &n, nil
	})

	var wg sync.WaitGroup
	results := make([]*int, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = v.Must()
		}()
	}
	wg.Wait()

	for i, p := range results {
		if p != results[0] {
			t.Fatalf("result %d is a different instance", i)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("build ran %d times; want 1", calls.Load())
	}
}

func TestValueCachesError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	v := lazy.New(func() (int, error) {
		calls.Add(1)
		return 0, boom
	})

	for range 3 {
		if _, err := v.Get(); !errors.Is(err, boom) {
			t.Fatalf("Get err = %v; want %v", err, boom)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("build ran %d times; want 1", calls.Load())
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Must did not panic on a failed build")
		}
	}()
	v.Must()
}
