// Package lazy defers building a value until it is first needed.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Value builds its content on the first Get and caches the result,
// error included, for its whole lifetime.
type Value[T any] struct {
	get   func() (T, error)
	built atomic.Bool
}

// New wraps build. build runs at most once, on the first Get or Must.
func New[T any](build func() (T, error)) *Value[T] {
	v := &Value[T]{}
	v.get = sync.OnceValues(func() (T, error) {
		defer v.built.Store(true)
		return build()
	})
	return v
}

// Get builds the value on first use and returns the cached result.
func (v *Value[T]) Get() (T, error) { return v.get() }

// Must is Get for builds that cannot fail. It panics on error.
func (v *Value[T]) Must() T {
	val, err := v.get()
	if err != nil {
		panic(err)
	}
	return val
}

// Built reports whether the build has already run.
func (v *Value[T]) Built() bool { return v.built.Load() }
