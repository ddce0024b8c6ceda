package jit

import "strings"

// AbiParam is one parameter or return value of a signature.
type AbiParam struct {
	Value Type
}

// NewAbiParam returns a parameter of type t.
func NewAbiParam(t Type) AbiParam { return AbiParam{Value: t} }

// Signature is a function's parameter and return types.
type Signature struct {
	Params  []AbiParam
	Returns []AbiParam
}

// Clear empties the signature while keeping its backing storage, so one
// Signature can be reused for many declarations.
func (s *Signature) Clear() {
	s.Params = s.Params[:0]
	s.Returns = s.Returns[:0]
}

// Clone returns a deep copy of s.
func (s *Signature) Clone() Signature {
	return Signature{
		Params:  append([]AbiParam(nil), s.Params...),
		Returns: append([]AbiParam(nil), s.Returns...),
	}
}

// Equal reports whether s and o have identical parameter and return types.
func (s *Signature) Equal(o *Signature) bool {
	if len(s.Params) != len(o.Params) || len(s.Returns) != len(o.Returns) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range s.Returns {
		if s.Returns[i] != o.Returns[i] {
			return false
		}
	}
	return true
}

func (s *Signature) paramWords() int  { return words(s.Params) }
func (s *Signature) returnWords() int { return words(s.Returns) }

func words(ps []AbiParam) int {
	n := 0
	for _, p := range ps {
		n += p.Value.Words()
	}
	return n
}

// String formats the signature as "(i64, i128) -> f64".
func (s *Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Value.String())
	}
	sb.WriteByte(')')
	if len(s.Returns) > 0 {
		sb.WriteString(" -> ")
		for i, p := range s.Returns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Value.String())
		}
	}
	return sb.String()
}
