package awkjit

import (
	"bytes"
	"errors"
	"io"

	"github.com/docker/go-units"

	"github.com/kolkov/awkjit/internal/codegen"
	"github.com/kolkov/awkjit/internal/runtime"
	"github.com/kolkov/awkjit/ir"
)

// Program represents a compiled program ready for execution.
// It is safe for concurrent use; each call to Run creates an
// independent execution context.
type Program struct {
	compiled *codegen.Compiled
	source   *ir.Program
}

// Run executes the compiled program with the given input and configuration.
// Returns the output as a string, or an error if execution fails.
//
// If config is nil, default configuration is used.
// If config.Output is set, output is written there and the returned
// string will be empty.
//
// I/O and pattern errors inside the program do not stop it; they are
// logged to config.Logger and the failing operation reports -1.
func (p *Program) Run(input io.Reader, config *Config) (string, error) {
	cfg, err := resolve(config)
	if err != nil {
		return "", err
	}
	bufSize, err := cfg.outputBufferBytes()
	if err != nil {
		return "", err
	}

	var outputBuf *bytes.Buffer
	output := cfg.Output
	if output == nil {
		outputBuf = &bytes.Buffer{}
		output = outputBuf
	}

	rt := runtime.New(runtime.Config{
		Literals:     p.compiled.Literals,
		Args:         cfg.Args,
		FS:           cfg.FS,
		OFS:          cfg.OFS,
		ORS:          cfg.ORS,
		Input:        input,
		Output:       output,
		POSIX:        *cfg.POSIXRegex,
		OutputBuffer: bufSize,
		Logger:       cfg.Logger,
	})

	runErr := p.compiled.Run(rt, cfg.StackSize)
	closeErr := rt.Close()
	cfg.Logger.Debug("run finished",
		"heap_live", rt.Heap.Live(),
		"heap_destroyed", rt.Heap.Destroyed(),
		"errors", len(rt.Errors()),
		"output_buffer", units.BytesSize(float64(bufSize)))

	if err := errors.Join(runErr, closeErr); err != nil {
		captured := ""
		if outputBuf != nil {
			captured = outputBuf.String()
		}
		return captured, &RuntimeError{Message: err.Error(), Err: err}
	}

	if outputBuf != nil {
		return outputBuf.String(), nil
	}
	return "", nil
}

// Disassemble returns the generated code of every function.
// Useful for debugging and understanding program structure.
func (p *Program) Disassemble() string {
	return p.compiled.Module.Dump()
}

// Source returns a listing of the IR program that was compiled.
func (p *Program) Source() string {
	return p.source.Disassemble()
}
