package runtime

import (
	"strings"
	"testing"
)

func TestStrRoundTrip(t *testing.T) {
	h := NewHeap(nil)
	tests := []struct {
		name string
		in   string
		kind StrKind
	}{
		{"empty", "", Inline},
		{"one", "x", Inline},
		{"max inline", strings.Repeat("a", MaxInline), Inline},
		{"first shared", strings.Repeat("b", MaxInline+1), Shared},
		{"long", strings.Repeat("0123456789", 100), Shared},
		{"binary", "\x00\xff\x80 tail", Inline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := h.NewStr(tt.in)
			if s.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", s.Kind(), tt.kind)
			}
			if got := h.String(s); got != tt.in {
				t.Errorf("String() = %q, want %q", got, tt.in)
			}
			if got := h.StrLen(s); got != len(tt.in) {
				t.Errorf("StrLen() = %d, want %d", got, len(tt.in))
			}
			if s.IsEmpty() != (tt.in == "") {
				t.Errorf("IsEmpty() = %v", s.IsEmpty())
			}
			h.DropStr(s)
		})
	}

	if h.Live() != 0 {
		t.Errorf("Live() = %d after dropping every string", h.Live())
	}
}

func TestZeroStrIsEmpty(t *testing.T) {
	var s Str
	if s.Kind() != Inline || !s.IsEmpty() || s.Handle() != 0 {
		t.Errorf("zero Str = %v/%v/%d", s.Kind(), s.IsEmpty(), s.Handle())
	}
	if got := NewHeap(nil).String(s); got != "" {
		t.Errorf("String(zero) = %q", got)
	}
}

func TestLiteralStr(t *testing.T) {
	long := "a literal long enough to leave the inline form"
	h := NewHeap([]string{"short", long, ""})

	if s := h.LiteralStr(0); s.Kind() != Inline || h.String(s) != "short" {
		t.Errorf("short literal = %v %q", s.Kind(), h.String(s))
	}
	s := h.LiteralStr(1)
	if s.Kind() != Literal {
		t.Fatalf("Kind() = %v, want literal", s.Kind())
	}
	if h.String(s) != long || h.StrLen(s) != len(long) {
		t.Errorf("literal decodes to %q (%d)", h.String(s), h.StrLen(s))
	}
	// Literals carry no handle, so ref and drop are no-ops.
	h.RefStr(s)
	h.DropStr(s)
	h.DropStr(s)
	if h.Live() != 0 {
		t.Errorf("literal allocated: Live() = %d", h.Live())
	}
	if !h.LiteralStr(2).IsEmpty() {
		t.Error("empty literal is not empty")
	}
}

func TestInlineStr(t *testing.T) {
	if _, ok := InlineStr(strings.Repeat("z", MaxInline+1)); ok {
		t.Error("InlineStr accepted an oversize string")
	}
	s, ok := InlineStr("abc")
	if !ok || s.Handle() != 0 {
		t.Fatalf("InlineStr(abc) = %v, %v", s, ok)
	}
	if got := NewHeap(nil).String(s); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func TestCorruptTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on corrupt tag")
		}
	}()
	Str{Hi: 0x20 << 56}.Kind()
}

func FuzzStrRoundTrip(f *testing.F) {
	for _, seed := range []string{"", "a", "fifteen bytes!!", "sixteen bytes!!!", "日本語のテキストです"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		h := NewHeap(nil)
		s := h.NewStr(in)
		if got := h.String(s); got != in {
			t.Fatalf("round trip of %q gave %q", in, got)
		}
		if h.StrLen(s) != len(in) {
			t.Fatalf("StrLen(%q) = %d", in, h.StrLen(s))
		}
		h.DropStr(s)
		if h.Live() != 0 {
			t.Fatalf("leaked %d objects", h.Live())
		}
	})
}
