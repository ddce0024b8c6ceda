package runtime

import "fmt"

type object struct {
	rc  int64
	val any
}

// Heap is a table of reference-counted objects addressed by handle.
// Handles are non-zero; handle 0 is the null handle and Ref and Drop
// ignore it. A Heap belongs to one Runtime and is not safe for
// concurrent use.
type Heap struct {
	literals  []string
	objs      []object
	free      []uint64
	live      int
	destroyed uint64
}

// NewHeap returns an empty heap resolving literal strings from literals.
func NewHeap(literals []string) *Heap {
	return &Heap{literals: literals}
}

func (h *Heap) alloc(v any) uint64 {
	h.live++
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.objs[idx] = object{rc: 1, val: v}
		return idx + 1
	}
	h.objs = append(h.objs, object{rc: 1, val: v})
	return uint64(len(h.objs))
}

func (h *Heap) obj(handle uint64) *object {
	if handle == 0 || handle > uint64(len(h.objs)) {
		panic(fmt.Sprintf("runtime: invalid handle %d", handle))
	}
	o := &h.objs[handle-1]
	if o.rc <= 0 {
		panic(fmt.Sprintf("runtime: use of released handle %d", handle))
	}
	return o
}

// Ref increments the reference count of handle.
func (h *Heap) Ref(handle uint64) {
	if handle != 0 {
		h.obj(handle).rc++
	}
}

// Drop decrements the reference count of handle, destroying the object
// when it reaches zero.
func (h *Heap) Drop(handle uint64) {
	if handle == 0 {
		return
	}
	o := h.obj(handle)
	o.rc--
	if o.rc == 0 {
		o.val = nil
		h.free = append(h.free, handle-1)
		h.live--
		h.destroyed++
	}
}

// Refcount returns the current count of handle, or 0 if it is not live.
func (h *Heap) Refcount(handle uint64) int64 {
	if handle == 0 || handle > uint64(len(h.objs)) {
		return 0
	}
	return h.objs[handle-1].rc
}

// Live returns the number of objects currently allocated.
func (h *Heap) Live() int { return h.live }

// Destroyed returns how many objects have been released so far.
func (h *Heap) Destroyed() uint64 { return h.destroyed }

// NewStr returns an owned packed copy of s.
func (h *Heap) NewStr(s string) Str {
	if len(s) <= MaxInline {
		return packInline(s)
	}
	return sharedStr(h.alloc(s))
}

// LiteralStr returns the packed form of literal i. Literals are never
// reference counted.
func (h *Heap) LiteralStr(i int) Str { return PackLiteral(i, h.literals[i]) }

// String decodes s without changing its reference count.
func (h *Heap) String(s Str) string {
	switch s.Kind() {
	case Inline:
		return s.inline()
	case Literal:
		return h.literals[s.Lo]
	default:
		return h.obj(s.Lo).val.(string)
	}
}

// StrLen returns the byte length of s.
func (h *Heap) StrLen(s Str) int {
	switch s.Kind() {
	case Inline:
		return int(s.tag())
	case Literal:
		return int(s.Hi & lenMask)
	default:
		return len(h.obj(s.Lo).val.(string))
	}
}

// RefStr increments the count of a shared string.
func (h *Heap) RefStr(s Str) { h.Ref(s.Handle()) }

// DropStr decrements the count of a shared string.
func (h *Heap) DropStr(s Str) { h.Drop(s.Handle()) }

// NewMap allocates an empty shared map with a count of one.
func NewMap[K MapKey, V MapVal](h *Heap) uint64 {
	return h.alloc(NewSharedMap[K, V]())
}

// MapAt returns the map behind handle. The handle must name a map of the
// requested key and value types.
func MapAt[K MapKey, V MapVal](h *Heap, handle uint64) *SharedMap[K, V] {
	m, ok := h.obj(handle).val.(*SharedMap[K, V])
	if !ok {
		panic(fmt.Sprintf("runtime: handle %d is %T, not a map", handle, h.obj(handle).val))
	}
	return m
}

// NewIter snapshots the keys of a map into an iterator object.
func NewIter[K MapKey](h *Heap, keys []K) uint64 {
	return h.alloc(keys)
}

// IterAt returns the key snapshot behind handle.
func IterAt[K MapKey](h *Heap, handle uint64) []K {
	keys, ok := h.obj(handle).val.([]K)
	if !ok {
		panic(fmt.Sprintf("runtime: handle %d is %T, not an iterator", handle, h.obj(handle).val))
	}
	return keys
}
