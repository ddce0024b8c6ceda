package runtime

import (
	"slices"
	"strings"
	"testing"
)

func TestHeapRefcount(t *testing.T) {
	h := NewHeap(nil)
	s := h.NewStr(strings.Repeat("x", 40))
	handle := s.Handle()

	if got := h.Refcount(handle); got != 1 {
		t.Fatalf("new string refcount = %d, want 1", got)
	}
	h.RefStr(s)
	h.RefStr(s)
	if got := h.Refcount(handle); got != 3 {
		t.Errorf("refcount = %d, want 3", got)
	}
	h.DropStr(s)
	h.DropStr(s)
	if h.Live() != 1 || h.Destroyed() != 0 {
		t.Errorf("Live=%d Destroyed=%d, want 1/0", h.Live(), h.Destroyed())
	}
	h.DropStr(s)
	if h.Live() != 0 || h.Destroyed() != 1 {
		t.Errorf("Live=%d Destroyed=%d, want 0/1", h.Live(), h.Destroyed())
	}
	if h.Refcount(handle) != 0 {
		t.Errorf("released handle refcount = %d", h.Refcount(handle))
	}
}

func TestHeapNullHandle(t *testing.T) {
	h := NewHeap(nil)
	h.Ref(0)
	h.Drop(0)
	if h.Live() != 0 || h.Refcount(0) != 0 {
		t.Error("null handle changed heap state")
	}
}

func TestHeapSlotReuse(t *testing.T) {
	h := NewHeap(nil)
	a := NewMap[int64, string](h)
	h.Drop(a)
	b := NewMap[string, float64](h)
	if a != b {
		t.Errorf("freed slot %d not reused, got %d", a, b)
	}
	if MapAt[string, float64](h, b).Len() != 0 {
		t.Error("reused slot is not empty")
	}
	h.Drop(b)
}

func TestHeapUseAfterFreePanics(t *testing.T) {
	tests := []struct {
		name string
		use  func(h *Heap, handle uint64)
	}{
		{"ref", func(h *Heap, handle uint64) { h.Ref(handle) }},
		{"drop", func(h *Heap, handle uint64) { h.Drop(handle) }},
		{"map", func(h *Heap, handle uint64) { MapAt[int64, int64](h, handle) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeap(nil)
			m := NewMap[int64, int64](h)
			h.Drop(m)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.use(h, m)
		})
	}
}

func TestHeapWrongTypePanics(t *testing.T) {
	h := NewHeap(nil)
	m := NewMap[int64, int64](h)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched map type")
		}
	}()
	MapAt[string, string](h, m)
}

func TestMapAliasing(t *testing.T) {
	h := NewHeap(nil)
	m := NewMap[string, int64](h)

	// A second owner shares the same contents.
	alias := m
	h.Ref(alias)
	MapAt[string, int64](h, m).Insert("k", 7)
	if v, ok := MapAt[string, int64](h, alias).Get("k"); !ok || v != 7 {
		t.Errorf("alias sees (%d, %v), want (7, true)", v, ok)
	}

	h.Drop(m)
	if h.Live() != 1 {
		t.Fatalf("map destroyed while still aliased")
	}
	h.Drop(alias)
	if h.Live() != 0 {
		t.Errorf("Live() = %d after last drop", h.Live())
	}
}

func TestIterSnapshot(t *testing.T) {
	h := NewHeap(nil)
	m := NewMap[int64, float64](h)
	sm := MapAt[int64, float64](h, m)
	for _, k := range []int64{3, 1, 2} {
		sm.Insert(k, float64(k))
	}

	it := NewIter(h, sm.Keys())
	sm.Insert(4, 4)
	sm.Delete(1)

	if got := IterAt[int64](h, it); !slices.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("snapshot = %v, want [1 2 3]", got)
	}
	h.Drop(it)
	h.Drop(m)
	if h.Live() != 0 {
		t.Errorf("Live() = %d", h.Live())
	}
}

func TestSharedMap(t *testing.T) {
	m := NewSharedMap[string, string]()
	if _, ok := m.Get("missing"); ok {
		t.Error("Get found a missing key")
	}
	if m.Len() != 0 {
		t.Error("Get inserted the missing key")
	}

	m.Insert("b", "2")
	m.Insert("a", "1")
	m.Insert("c", "3")
	if !m.Contains("a") || m.Contains("z") {
		t.Error("Contains mismatch")
	}
	if got := m.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v", got)
	}

	m.Delete("b")
	if m.Len() != 2 || m.Contains("b") {
		t.Errorf("after Delete: Len=%d", m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("after Clear: Len=%d", m.Len())
	}
}

func BenchmarkNewStr(b *testing.B) {
	h := NewHeap(nil)
	long := strings.Repeat("y", 64)
	for i := 0; i < b.N; i++ {
		h.DropStr(h.NewStr(long))
	}
}
