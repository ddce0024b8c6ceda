package runtime

import (
	"cmp"
	"slices"
)

// MapKey is the set of key types a SharedMap may have.
type MapKey interface {
	int64 | string
}

// MapVal is the set of value types a SharedMap may hold.
type MapVal interface {
	int64 | float64 | string
}

// SharedMap is an interior-mutable hash map. Its reference count lives in
// the Heap slot that owns it, so copying a handle aliases the map and
// never copies the contents. String values are kept as Go strings; callers
// repack them on the way out.
type SharedMap[K MapKey, V MapVal] struct {
	m map[K]V
}

// NewSharedMap returns an empty map.
func NewSharedMap[K MapKey, V MapVal]() *SharedMap[K, V] {
	return &SharedMap[K, V]{m: make(map[K]V)}
}

// Get returns the value stored under k. Missing keys yield the zero value
// and are not inserted.
func (s *SharedMap[K, V]) Get(k K) (V, bool) {
	v, ok := s.m[k]
	return v, ok
}

// Insert stores v under k.
func (s *SharedMap[K, V]) Insert(k K, v V) { s.m[k] = v }

// Delete removes k.
func (s *SharedMap[K, V]) Delete(k K) { delete(s.m, k) }

// Contains reports whether k is present.
func (s *SharedMap[K, V]) Contains(k K) bool {
	_, ok := s.m[k]
	return ok
}

// Len returns the number of entries.
func (s *SharedMap[K, V]) Len() int { return len(s.m) }

// Clear removes every entry.
func (s *SharedMap[K, V]) Clear() { clear(s.m) }

// Keys returns the keys in ascending order.
func (s *SharedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[K])
	return keys
}
