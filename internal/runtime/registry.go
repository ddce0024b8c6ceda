package runtime

import "strings"

// Registry is a lazily populated cache keyed by text. On the first lookup
// of a key the constructor builds the value, which is then stored under a
// private copy of the key; later lookups with content-equal text return
// the same value.
type Registry[T any] struct {
	cached map[string]T
}

// Get returns the value for key, building it with newFn on a miss. A
// failed construction caches nothing.
func (r *Registry[T]) Get(key string, newFn func(string) (T, error)) (T, error) {
	if v, ok := r.cached[key]; ok {
		return v, nil
	}
	v, err := newFn(key)
	if err != nil {
		var zero T
		return zero, err
	}
	if r.cached == nil {
		r.cached = make(map[string]T)
	}
	r.cached[strings.Clone(key)] = v
	return v, nil
}

// Lookup returns the cached value for key without constructing one.
func (r *Registry[T]) Lookup(key string) (T, bool) {
	v, ok := r.cached[key]
	return v, ok
}

// Len returns the number of cached values.
func (r *Registry[T]) Len() int { return len(r.cached) }

// Range calls f for every cached entry until f returns false.
func (r *Registry[T]) Range(f func(key string, v T) bool) {
	for k, v := range r.cached {
		if !f(k, v) {
			return
		}
	}
}

// Clear evicts everything.
func (r *Registry[T]) Clear() { clear(r.cached) }
