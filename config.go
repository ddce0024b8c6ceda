package awkjit

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/docker/go-units"
	"github.com/xyproto/env/v2"
)

// Environment variables consulted for settings the Config leaves unset.
const (
	EnvPOSIX        = "AWKJIT_POSIX"
	EnvOutputBuffer = "AWKJIT_OUTPUT_BUFFER"
	EnvStack        = "AWKJIT_STACK"
	EnvTrace        = "AWKJIT_TRACE"
)

// Config holds configuration options for compilation and execution.
type Config struct {
	// FS is the input field separator (default: " ").
	// When set to a single space, runs of whitespace are treated as separators.
	// A single other character splits on that character; anything longer
	// is a regular expression.
	FS string

	// OFS is the output field separator (default: " ").
	OFS string

	// ORS is the output record separator (default: "\n").
	ORS string

	// Args become ARGV[1:]. When Run is given a nil input they also name
	// the files read as main input.
	Args []string

	// Output is the writer for standard output.
	// If nil, output is captured and returned from Run.
	Output io.Writer

	// Stderr receives trace output when Trace is set.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	// POSIXRegex enables POSIX leftmost-longest regex matching.
	// When nil, AWKJIT_POSIX decides, and matching is POSIX if that is unset too.
	POSIXRegex *bool

	// OutputBuffer is the buffer size of standard output and of every
	// output file, as a human-readable size such as "64KiB" or "1m".
	// Empty means AWKJIT_OUTPUT_BUFFER, then 64KiB.
	OutputBuffer string

	// StackSize is the call stack of generated code in machine words.
	// Zero means AWKJIT_STACK, then the JIT default.
	StackSize int

	// Trace logs code generation and runtime errors at debug level to
	// Stderr. AWKJIT_TRACE=1 turns it on as well.
	Trace bool

	// Logger overrides the destination of trace and runtime error
	// records. It takes precedence over Trace.
	Logger *slog.Logger
}

const defaultOutputBuffer = "64KiB"

// env caches the environment on first use by default; settings must follow
// changes made after the first Compile or Run.
func init() { env.Unload() }

// applyDefaults fills in default values for unset Config fields, consulting
// the environment first.
func (c *Config) applyDefaults() error {
	if c.FS == "" {
		c.FS = " "
	}
	if c.OFS == "" {
		c.OFS = " "
	}
	if c.ORS == "" {
		c.ORS = "\n"
	}
	if c.POSIXRegex == nil {
		posix := !env.Has(EnvPOSIX) || env.Bool(EnvPOSIX)
		c.POSIXRegex = &posix
	}
	if c.OutputBuffer == "" {
		c.OutputBuffer = env.Str(EnvOutputBuffer, defaultOutputBuffer)
	}
	if c.StackSize == 0 {
		c.StackSize = env.Int(EnvStack, 0)
	}
	if c.StackSize < 0 {
		return fmt.Errorf("config: negative stack size %d", c.StackSize)
	}
	if !c.Trace {
		c.Trace = env.Bool(EnvTrace)
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
		if c.Trace {
			c.Logger = slog.New(slog.NewTextHandler(c.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}
	return nil
}

// outputBufferBytes parses OutputBuffer.
func (c *Config) outputBufferBytes() (int, error) {
	n, err := units.RAMInBytes(c.OutputBuffer)
	if err != nil {
		return 0, fmt.Errorf("config: output buffer: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: output buffer must be positive, got %q", c.OutputBuffer)
	}
	return int(n), nil
}

// resolve returns a defaulted copy of config, which may be nil.
func resolve(config *Config) (*Config, error) {
	c := &Config{}
	if config != nil {
		*c = *config
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return c, nil
}
