// Package jit is a small in-process code generation module.
//
// A Module collects function declarations (imported host functions and
// locally defined ones) and data objects. Function bodies are written with
// a FunctionBuilder in an SSA-flavoured instruction set over typed values,
// basic blocks and mutable variables. DefineFunction verifies a body and
// compiles it into a chain of executable steps; on linux/amd64, leaf
// integer functions are additionally encoded as x86-64 machine code and
// run from executable pages. Finalize resolves imports and seals the
// module, after which it can be instantiated any number of times. Each
// Instance owns its linear memory (data objects and a call stack) and
// executes calls synchronously on the calling goroutine.
//
// Machine words are plain uint64 values. Pointers are byte addresses into
// the instance memory, never Go pointers, so generated code can store
// them freely without involving the garbage collector.
package jit

import "fmt"

// Type is a machine-level value type.
type Type uint8

const (
	Invalid Type = iota
	B1           // comparison result
	I32
	I64
	I128
	F64
)

var typeNames = [...]string{
	Invalid: "invalid",
	B1:      "b1",
	I32:     "i32",
	I64:     "i64",
	I128:    "i128",
	F64:     "f64",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Words returns the number of 64-bit words a value of type t occupies.
func (t Type) Words() int {
	switch t {
	case Invalid:
		return 0
	case I128:
		return 2
	default:
		return 1
	}
}

// Bits returns the width of t in bits.
func (t Type) Bits() int {
	switch t {
	case B1:
		return 1
	case I32:
		return 32
	case I64, F64:
		return 64
	case I128:
		return 128
	}
	return 0
}

// IsInt reports whether t is an integer type.
func (t Type) IsInt() bool { return t == I32 || t == I64 || t == I128 }

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool { return t == F64 }

// IntCC is an integer comparison condition code.
type IntCC uint8

const (
	IntEqual IntCC = iota
	IntNotEqual
	SignedLessThan
	SignedLessThanOrEqual
	SignedGreaterThan
	SignedGreaterThanOrEqual
)

func (c IntCC) String() string {
	return [...]string{"eq", "ne", "slt", "sle", "sgt", "sge"}[c]
}

// FloatCC is a floating point comparison condition code. All conditions
// are ordered: they are false when either operand is NaN.
type FloatCC uint8

const (
	FloatEqual FloatCC = iota
	FloatLessThan
	FloatLessThanOrEqual
	FloatGreaterThan
	FloatGreaterThanOrEqual
)

func (c FloatCC) String() string {
	return [...]string{"eq", "lt", "le", "gt", "ge"}[c]
}
