package codegen

import (
	"fmt"

	"github.com/kolkov/awkjit/ir"
)

// BindingError reports a register that cannot be read or written the way
// an instruction asks. It means the input program is malformed.
type BindingError struct {
	Func  string // function being lowered
	Index int    // instruction index, -1 outside the body
	Reg   ir.Ref
	Msg   string
}

func (e *BindingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("codegen: %s: %s: %s", e.Func, e.Msg, e.Reg)
	}
	return fmt.Sprintf("codegen: %s[%d]: %s: %s", e.Func, e.Index, e.Msg, e.Reg)
}

// DeclarationError reports an external function or program function the
// JIT module refused to declare.
type DeclarationError struct {
	Name string
	Err  error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("codegen: error declaring %s in module: %v", e.Name, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }

func bindErr(r ir.Ref, msg string) error {
	return &BindingError{Index: -1, Reg: r, Msg: msg}
}
