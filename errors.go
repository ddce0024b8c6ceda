package awkjit

import (
	"fmt"

	"github.com/kolkov/awkjit/ir"
)

// ValidationError reports an IR program that is not well formed.
type ValidationError struct {
	Errors ir.ErrorList // every problem found, in program order
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Errors.Error())
}

func (e *ValidationError) Unwrap() error { return e.Errors }

// CompileError represents a failure to generate code for a valid program.
type CompileError struct {
	Message string // Error description
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error: %s", e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// RuntimeError represents a fault during execution, such as an integer
// division by zero or a call stack overflow.
type RuntimeError struct {
	Message string // Error description
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
