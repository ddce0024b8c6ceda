// Package ir defines the typed, register-based intermediate representation
// shared by the awkjit front-end and its code generator.
//
// A Program is a list of functions. Each function is a flat sequence of
// instructions over registers ([Ref]). Every register carries one [Ty] for
// its whole lifetime; the generator uses the type to select a machine
// representation and to decide when reference counts must be adjusted.
package ir

import "fmt"

// Ty is the closed set of value types understood by the generator and the
// runtime.
type Ty uint8

const (
	Null Ty = iota
	Int
	Float
	Str
	MapIntInt
	MapIntFloat
	MapIntStr
	MapStrInt
	MapStrFloat
	MapStrStr
	IterInt
	IterStr

	numTys
)

var tyNames = [...]string{
	Null:        "null",
	Int:         "int",
	Float:       "float",
	Str:         "str",
	MapIntInt:   "map[int]int",
	MapIntFloat: "map[int]float",
	MapIntStr:   "map[int]str",
	MapStrInt:   "map[str]int",
	MapStrFloat: "map[str]float",
	MapStrStr:   "map[str]str",
	IterInt:     "iter[int]",
	IterStr:     "iter[str]",
}

// String returns the type name as it appears in disassembly.
func (t Ty) String() string {
	if t < numTys {
		return tyNames[t]
	}
	return fmt.Sprintf("ty(%d)", uint8(t))
}

// Valid reports whether t is one of the enumerated types.
func (t Ty) Valid() bool { return t < numTys }

// IsMap reports whether t is one of the six map types.
func (t Ty) IsMap() bool { return t >= MapIntInt && t <= MapStrStr }

// IsIter reports whether t is an iterator type.
func (t Ty) IsIter() bool { return t == IterInt || t == IterStr }

// IsHeap reports whether values of type t are heap-backed and reference
// counted.
func (t Ty) IsHeap() bool { return t == Str || t.IsMap() }

// IsScalar reports whether t is Int, Float or Str.
func (t Ty) IsScalar() bool { return t == Int || t == Float || t == Str }

// Key returns the key type of a map type, or Null for other types.
func (t Ty) Key() Ty {
	switch t {
	case MapIntInt, MapIntFloat, MapIntStr:
		return Int
	case MapStrInt, MapStrFloat, MapStrStr:
		return Str
	case IterInt:
		return Int
	case IterStr:
		return Str
	}
	return Null
}

// Val returns the value type of a map type, or Null for other types.
func (t Ty) Val() Ty {
	switch t {
	case MapIntInt, MapStrInt:
		return Int
	case MapIntFloat, MapStrFloat:
		return Float
	case MapIntStr, MapStrStr:
		return Str
	}
	return Null
}

// IterOf returns the iterator type that walks the keys of map type t.
func (t Ty) IterOf() Ty {
	switch t.Key() {
	case Int:
		return IterInt
	case Str:
		return IterStr
	}
	return Null
}

// MapOf returns the map type with the given key and value types.
func MapOf(key, val Ty) (Ty, bool) {
	switch {
	case key == Int && val == Int:
		return MapIntInt, true
	case key == Int && val == Float:
		return MapIntFloat, true
	case key == Int && val == Str:
		return MapIntStr, true
	case key == Str && val == Int:
		return MapStrInt, true
	case key == Str && val == Float:
		return MapStrFloat, true
	case key == Str && val == Str:
		return MapStrStr, true
	}
	return Null, false
}

// NumTy is the numeric part of a register reference.
type NumTy = uint32

// Ref names a register within one function. The pair of ID and type is the
// lookup key; two Refs with the same ID but different types are distinct
// registers.
type Ref struct {
	ID NumTy
	Ty Ty
}

// R is shorthand for constructing a Ref.
func R(id NumTy, ty Ty) Ref { return Ref{ID: id, Ty: ty} }

// String formats the register as "%id:ty".
func (r Ref) String() string {
	return fmt.Sprintf("%%%d:%s", r.ID, r.Ty)
}
