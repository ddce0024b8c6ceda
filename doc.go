// Package awkjit compiles programs of an AWK-family language to native
// code and runs them.
//
// Programs are given in a small typed intermediate representation (package
// ir) rather than as source text. awkjit validates them, lowers every
// instruction onto an in-process JIT, and runs the result against a
// reference-counted runtime providing strings, associative arrays, record
// splitting, patterns and buffered I/O.
//
// # Quick Start
//
// Build a program with package ir and run it once:
//
//	p := ir.NewProgram()
//	main := p.NewFunc("main", ir.Null)
//	// ... emit instructions ...
//	output, err := awkjit.Run(p, strings.NewReader("hello world"), nil)
//
// # Compiled Programs
//
// For repeated execution of the same program:
//
//	prog, err := awkjit.Compile(p, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, file := range files {
//	    output, err := prog.Run(file, &awkjit.Config{FS: ":"})
//	    // ...
//	}
//
// # Configuration
//
// The [Config] type allows customization of execution:
//   - Field and output separators (FS, OFS, ORS)
//   - Regex flavour, output buffer size and call stack size
//   - Tracing through log/slog
//
// Settings left unset fall back to the AWKJIT_* environment variables.
//
// # Error Handling
//
// Errors are returned as specific types for detailed handling:
//   - [ValidationError]: the IR program is malformed
//   - [CompileError]: code generation failed
//   - [RuntimeError]: execution faulted
//
// # Thread Safety
//
// Compiled [Program] objects are safe for concurrent use.
// Each call to [Program.Run] creates an independent execution context.
package awkjit
