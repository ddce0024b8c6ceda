package runtime

// denseSlack is how far past the end an insert may land before the vector
// gives up on a dense layout.
const denseSlack = 16

// IntMap is the sparse form of a LazyVec, keyed by original index.
type IntMap[T any] map[int64]T

// LazyVec is an index-addressed sequence that starts dense and converts
// itself, once and for good, to a sparse IntMap when an insert lands far
// beyond its end. Only Insert converts; Get never does. Clear returns it
// to an empty dense vector.
type LazyVec[T any] struct {
	dense  []T
	sparse IntMap[T]
}

// IsSparse reports whether v has converted to the sparse form.
func (v *LazyVec[T]) IsSparse() bool { return v.sparse != nil }

// Len returns the number of stored elements.
func (v *LazyVec[T]) Len() int {
	if v.sparse != nil {
		return len(v.sparse)
	}
	return len(v.dense)
}

// Get returns the element at ix.
func (v *LazyVec[T]) Get(ix int) (T, bool) {
	if v.sparse != nil {
		t, ok := v.sparse[int64(ix)]
		return t, ok
	}
	if ix < 0 || ix >= len(v.dense) {
		var zero T
		return zero, false
	}
	return v.dense[ix], true
}

// Push appends t.
func (v *LazyVec[T]) Push(t T) { v.Insert(v.Len(), t) }

// Insert stores t at ix. Within the dense form, an index up to
// denseSlack past the end back-fills zero values; anything further
// converts every entry to the sparse form first.
func (v *LazyVec[T]) Insert(ix int, t T) {
	if v.sparse != nil {
		v.sparse[int64(ix)] = t
		return
	}
	n := len(v.dense)
	switch {
	case ix < 0:
		panic("runtime: negative LazyVec index")
	case ix < n:
		v.dense[ix] = t
	case ix == n:
		v.dense = append(v.dense, t)
	case ix < n+denseSlack:
		var zero T
		for len(v.dense) < ix {
			v.dense = append(v.dense, zero)
		}
		v.dense = append(v.dense, t)
	default:
		m := make(IntMap[T], n+1)
		for i, e := range v.dense {
			m[int64(i)] = e
		}
		m[int64(ix)] = t
		v.sparse = m
		v.dense = nil
	}
}

// Clear empties v and restores the dense form.
func (v *LazyVec[T]) Clear() {
	if v.sparse != nil {
		v.sparse = nil
		return
	}
	clear(v.dense)
	v.dense = v.dense[:0]
}
