package awkjit

import (
	"errors"
	"io"

	"github.com/kolkov/awkjit/internal/codegen"
	"github.com/kolkov/awkjit/ir"
)

// Version is the awkjit version string.
const Version = "0.1.0"

// Run compiles and executes an IR program with the given input.
// This is a convenience function for one-off execution.
// For repeated execution of the same program, use Compile followed by Program.Run.
//
// input may be nil, in which case the files in config.Args are read.
// config may be nil for defaults.
//
// Returns the program output as a string, or an error if validation,
// compilation, or execution fails.
func Run(p *ir.Program, input io.Reader, config *Config) (string, error) {
	prog, err := Compile(p, config)
	if err != nil {
		return "", err
	}
	return prog.Run(input, config)
}

// Compile validates an IR program and generates native code for it.
// The returned Program can be executed multiple times with different inputs.
// Only the logging settings of config apply; it may be nil.
//
// Example:
//
//	prog, err := awkjit.Compile(p, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	output1, _ := prog.Run(file1, nil)
//	output2, _ := prog.Run(file2, nil)
func Compile(p *ir.Program, config *Config) (*Program, error) {
	cfg, err := resolve(config)
	if err != nil {
		return nil, err
	}
	compiled, err := codegen.Generate(p, codegen.Config{Logger: cfg.Logger})
	if err != nil {
		var list ir.ErrorList
		if errors.As(err, &list) {
			return nil, &ValidationError{Errors: list}
		}
		return nil, &CompileError{Message: err.Error(), Err: err}
	}
	return &Program{compiled: compiled, source: p}, nil
}

// Exec is a simplified interface for running an IR program.
// It reads from input, writes to output, and returns any error.
//
// This function is useful for integration with I/O pipelines
// where you need control over the output writer.
func Exec(p *ir.Program, input io.Reader, output io.Writer, config *Config) error {
	prog, err := Compile(p, config)
	if err != nil {
		return err
	}

	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.Output = output

	_, err = prog.Run(input, &cfg)
	return err
}

// MustCompile is like Compile but panics if the program cannot be compiled.
// It simplifies initialization of global program variables.
func MustCompile(p *ir.Program) *Program {
	prog, err := Compile(p, nil)
	if err != nil {
		panic(err)
	}
	return prog
}
