package registry_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Andrej220/go-utils/jobqueue/registry"
)

type conn struct{ name string }

func TestGetBuildsOnce(t *testing.T) {
	r := registry.New[*conn]()
	var calls atomic.Int32
	build := func() (*conn, error) {
		calls.Add(1)
		return &conn{name: "db"}, nil
	}

	first, err := r.Get("db", build)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := r.Get("db", build)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Fatal("Get returned different instances for the same name")
	}
	if calls.Load() != 1 {
		t.Fatalf("build ran %d times; want 1", calls.Load())
	}
}

func TestGetConcurrentSingleBuild(t *testing.T) {
	r := registry.New[*conn]()
	var calls atomic.Int32
	release := make(chan struct{})
	build := func() (*conn, error) {
		calls.Add(1)
		<-release
		return &conn{name: "cache"}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	got := make([]*conn, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Get("cache", build)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			got[i] = c
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range got {
		if got[i] != got[0] {
			t.Fatalf("caller %d got a different instance", i)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("build ran %d times; want 1", calls.Load())
	}
}

func TestGetFailedBuildIsRetried(t *testing.T) {
	r := registry.New[int]()
	boom := errors.New("boom")

	if _, err := r.Get("n", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("Get err = %v; want %v", err, boom)
	}
	if _, ok := r.Lookup("n"); ok {
		t.Fatal("failed build was cached")
	}

	v, err := r.Get("n", func() (int, error) { return 7, nil })
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != 7 {
		t.Fatalf("Get = %d; want 7", v)
	}
}

func TestNamesAndLen(t *testing.T) {
	r := registry.New[string]()
	for _, name := range []string{"b", "a", "c"} {
		if _, err := r.Get(name, func() (string, error) { return name, nil }); err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
	}

	if r.Len() != 3 {
		t.Fatalf("Len = %d; want 3", r.Len())
	}
	names := r.Names()
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v; want %v", names, want)
		}
	}
}

func TestNilInterfaceValue(t *testing.T) {
	r := registry.New[any]()
	v, err := r.Get("nil", func() (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("Get = %v; want nil", v)
	}
}
