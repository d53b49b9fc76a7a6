package jobqueue

import (
	"fmt"

	"github.com/Andrej220/go-utils/jobqueue/registry"
)

// Shared returns the process-wide queue registered under name, creating
// it with concurrency and exec on first use. Later calls ignore both
// arguments and return the cached queue.
func Shared[T, R any](name string, concurrency int, exec Executor[T, R]) (*Queue[T, R], error) {
	return SharedFromOptions(name, exec, Options{Concurrency: concurrency})
}

// SharedFromOptions is Shared with full Options for the first build.
func SharedFromOptions[T, R any](name string, exec Executor[T, R], opts Options) (*Queue[T, R], error) {
	v, err := registry.Default.Get(sharedKey(name), func() (any, error) {
		return NewFromOptions(name, exec, opts)
	})
	if err != nil {
		return nil, err
	}
	q, ok := v.(*Queue[T, R])
	if !ok {
		return nil, fmt.Errorf("jobqueue: shared queue %q has type %T", name, v)
	}
	return q, nil
}

func sharedKey(name string) string { return "jobqueue/" + name }
