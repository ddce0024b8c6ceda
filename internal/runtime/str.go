// Package runtime provides the data structures and helpers that generated
// code calls into: packed strings, a reference-counted handle heap, shared
// maps, the adaptive field vector, lazily populated caches for patterns
// and files, and the per-run Runtime context.
package runtime

import (
	"encoding/binary"
	"fmt"
)

// Str is a packed string as seen by generated code: 128 bits held as two
// machine words, low half first.
//
// Byte 15 (the top byte of Hi) is a tag. Values 0 through 15 mean the
// string is stored inline in the preceding bytes and the tag is its
// length, so the all-zero Str is the empty string. tagLiteral marks a
// program literal whose index into the literal table is Lo. tagShared
// marks a reference-counted heap string whose handle is Lo.
type Str struct {
	Lo, Hi uint64
}

// MaxInline is the longest string stored without a heap allocation.
const MaxInline = 15

const (
	tagLiteral = 0x40
	tagShared  = 0x80

	lenMask = 1<<56 - 1
)

// StrKind is the storage class of a packed string.
type StrKind uint8

const (
	Inline StrKind = iota
	Literal
	Shared
)

func (k StrKind) String() string {
	switch k {
	case Inline:
		return "inline"
	case Literal:
		return "literal"
	case Shared:
		return "shared"
	}
	return fmt.Sprintf("strkind(%d)", uint8(k))
}

func (s Str) tag() byte { return byte(s.Hi >> 56) }

// Kind returns the storage class of s. It panics on a corrupt tag.
func (s Str) Kind() StrKind {
	switch t := s.tag(); {
	case t <= MaxInline:
		return Inline
	case t == tagLiteral:
		return Literal
	case t == tagShared:
		return Shared
	default:
		panic(fmt.Sprintf("runtime: corrupt string tag %#x", t))
	}
}

// IsEmpty reports whether s is the empty string.
func (s Str) IsEmpty() bool {
	switch s.Kind() {
	case Inline:
		return s.tag() == 0
	case Literal:
		return s.Hi&lenMask == 0
	}
	return false // shared strings are never empty
}

// Handle returns the heap handle of a shared string, or 0.
func (s Str) Handle() uint64 {
	if s.tag() == tagShared {
		return s.Lo
	}
	return 0
}

// packInline stores s, which must be at most MaxInline bytes, in place.
func packInline(s string) Str {
	var b [16]byte
	copy(b[:MaxInline], s)
	b[15] = byte(len(s))
	return Str{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:]),
	}
}

func (s Str) inline() string {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], s.Lo)
	binary.LittleEndian.PutUint64(b[8:], s.Hi)
	return string(b[:b[15]])
}

// InlineStr packs s inline. ok is false if s is too long.
func InlineStr(s string) (Str, bool) {
	if len(s) > MaxInline {
		return Str{}, false
	}
	return packInline(s), true
}

// PackLiteral returns the packed form of s stored at index in a literal
// table. Short literals are packed inline and carry no index.
func PackLiteral(index int, s string) Str {
	if len(s) <= MaxInline {
		return packInline(s)
	}
	return literalStr(index, len(s))
}

func literalStr(index int, n int) Str {
	return Str{Lo: uint64(index), Hi: uint64(tagLiteral)<<56 | uint64(n)&lenMask}
}

func sharedStr(handle uint64) Str {
	return Str{Lo: handle, Hi: uint64(tagShared) << 56}
}
