// Package codegen lowers ir programs to executable code.
//
// Lowering is split across two capability interfaces. A Backend maps ir
// types onto machine types and registers the runtime functions generated
// code may call. A CodeGenerator exposes every operation the IR can ask
// for, over opaque values of the backend's choosing. The instruction
// driver in this package talks only to those interfaces; the native
// implementation on top of internal/jit is one backend among possible
// others.
package codegen

import (
	"fmt"

	"github.com/kolkov/awkjit/ir"
)

// Sig is the machine signature of an external function. Ret holds at most
// one type; an empty Ret means the function returns nothing.
type Sig[T any] struct {
	Args []T
	Ret  []T
}

// Backend maps abstract types to a target's machine types and declares
// external functions.
type Backend[T any] interface {
	VoidPtrTy() T
	PtrTo(T) T
	UsizeTy() T
	U32Ty() T

	// GetTy returns the machine representation of ty. Iterator types
	// have no representation and panic.
	GetTy(ty ir.Ty) T

	// RegisterExternalFn makes the process-resident function at addr
	// callable as name. Registering an address twice is a no-op.
	RegisterExternalFn(name string, addr uintptr, sig Sig[T]) error
}

// CodeGenerator is the set of operations the IR may request from a
// backend. V is the backend's value handle.
//
// Values returned by GetVal are borrowed. BindVal and Mov take their own
// reference to heap-backed values, releasing the previous occupant only
// after the new value has been acquired.
type CodeGenerator[V any] interface {
	BindVal(r ir.Ref, v V) error
	GetVal(r ir.Ref) (V, error)

	// RuntimeVal is the runtime context threaded through every external
	// call.
	RuntimeVal() V

	ConstInt(i int64) V
	ConstFloat(f float64) V
	ConstStr(s string) V
	ConstPtr(addr uintptr) V

	// CallIntrinsic applies op to args and returns its single result.
	CallIntrinsic(op Op, args []V) (V, error)
	// CallVoid calls the external function at addr, which returns
	// nothing.
	CallVoid(addr uintptr, args []V) error

	// Iterators walk a snapshot of a map's keys, forward only.
	IterBegin(dst, m ir.Ref) error
	IterHasNext(dst, iter ir.Ref) error
	IterGetNext(dst, iter ir.Ref) error

	// Printf and PrintAll bind the output status to status unless it is
	// the null register.
	Printf(status ir.Ref, out *ir.Output, format ir.Ref, args []ir.Ref) error
	Sprintf(dst, format ir.Ref, args []ir.Ref) error
	PrintAll(status ir.Ref, out *ir.Output, args []ir.Ref) error

	Mov(ty ir.Ty, dst, src ir.NumTy) error

	// VarLoaded runs right after a built-in variable was read into dst.
	VarLoaded(dst ir.Ref) error

	RefVal(ty ir.Ty, v V)
	DropVal(ty ir.Ty, v V)

	Label(l ir.LabelID)
	Jmp(l ir.LabelID)
	JmpIf(cond ir.Ref, l ir.LabelID) error
	Call(dst ir.Ref, fn int, args []ir.Ref) error
	Ret(src ir.Ref) error
}

// Op is an operation dispatched by CallIntrinsic. It is one of OpCmp,
// OpArith, OpBitwise, OpMath, OpDiv, OpPow, OpFloatToInt, OpIntToFloat or
// OpIntrinsic.
type Op interface {
	arity() int
	String() string
}

type (
	// OpCmp compares two Ints or two Floats, yielding Int 0 or 1.
	OpCmp struct {
		IsFloat bool
		Cmp     ir.Cmp
	}

	// OpArith is an arithmetic operator over Ints or Floats.
	OpArith struct {
		IsFloat bool
		Arith   ir.Arith
	}

	// OpBitwise is an integer bit operator.
	OpBitwise struct {
		Bitwise ir.Bitwise
	}

	// OpMath is a floating point math function.
	OpMath struct {
		Fn ir.FloatFunc
	}

	// OpDiv divides two Floats.
	OpDiv struct{}

	// OpPow raises one Float to the power of another.
	OpPow struct{}

	// OpFloatToInt truncates toward zero, saturating. NaN becomes 0.
	OpFloatToInt struct{}

	// OpIntToFloat converts a signed Int exactly.
	OpIntToFloat struct{}

	// OpIntrinsic calls the external function registered at Addr.
	OpIntrinsic struct {
		Addr uintptr
	}
)

func (OpCmp) arity() int        { return 2 }
func (o OpArith) arity() int    { return o.Arith.Arity() }
func (o OpBitwise) arity() int  { return o.Bitwise.Arity() }
func (o OpMath) arity() int     { return o.Fn.Arity() }
func (OpDiv) arity() int        { return 2 }
func (OpPow) arity() int        { return 2 }
func (OpFloatToInt) arity() int { return 1 }
func (OpIntToFloat) arity() int { return 1 }
func (OpIntrinsic) arity() int  { return -1 }

func (o OpCmp) String() string      { return domain(o.IsFloat) + o.Cmp.String() }
func (o OpArith) String() string    { return domain(o.IsFloat) + o.Arith.String() }
func (o OpBitwise) String() string  { return o.Bitwise.String() }
func (o OpMath) String() string     { return o.Fn.String() }
func (OpDiv) String() string        { return "div" }
func (OpPow) String() string        { return "pow" }
func (OpFloatToInt) String() string { return "float_to_int" }
func (OpIntToFloat) String() string { return "int_to_float" }

func (o OpIntrinsic) String() string {
	if in, ok := intrinsicAt(o.Addr); ok {
		return in.name
	}
	return fmt.Sprintf("intrinsic@%#x", o.Addr)
}

func domain(isFloat bool) string {
	if isFloat {
		return "f"
	}
	return "i"
}

// checkArity reports a caller error when args does not fit op.
func checkArity(op Op, n int) error {
	if want := op.arity(); want >= 0 && want != n {
		return fmt.Errorf("codegen: %s takes %d operands, got %d", op, want, n)
	}
	return nil
}
