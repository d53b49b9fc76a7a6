// Package registry is a get-or-create cache of named singletons.
//
// Values live as long as the registry. Concurrent first lookups of the same
// name share one build; a failed build is not cached, so the next lookup
// retries it.
package registry

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Default is the process-wide registry.
var Default = New[any]()

// Registry maps names to lazily built values. The zero value is not usable;
// create one with New.
type Registry[V any] struct {
	mu     sync.RWMutex
	values map[string]V
	group  singleflight.Group
}

func New[V any]() *Registry[V] {
	return &Registry[V]{values: make(map[string]V)}
}

// Get returns the value cached under name, calling build to create it if
// there is none yet.
func (r *Registry[V]) Get(name string, build func() (V, error)) (V, error) {
	if v, ok := r.Lookup(name); ok {
		return v, nil
	}

	res, err, _ := r.group.Do(name, func() (any, error) {
		// another caller may have finished between Lookup and Do
		if v, ok := r.Lookup(name); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.values[name] = v
		r.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V) // res is a nil interface when build returned a nil V
	return v, nil
}

// Lookup returns the cached value without building it.
func (r *Registry[V]) Lookup(name string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Names returns the registered names, sorted.
func (r *Registry[V]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
