// awkjit - run built-in record-processing programs through the JIT
//
// Uses manual argument parsing for POSIX compatibility (supports -F: style flags).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dc0d/onexit"

	"github.com/kolkov/awkjit"
	"github.com/kolkov/awkjit/internal/progs"
)

// version is set at build time via -ldflags.
// For development builds, it will be "dev".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	shortUsage = "usage: awkjit [-F fs] [-v var=value] [-l] prog [file ...]"
	longUsage  = `Arguments:
  -F separator      field separator (default " ")
  -v var=value      set OFS or ORS (multiple allowed)
  -l                list the built-in programs and exit

Input files ending in .xz or .lz4 are decompressed on the fly.

Performance options:
  --posix           use POSIX leftmost-longest regex matching (default)
  --no-posix        use faster leftmost-first regex matching (Perl-like)
  -b size           output buffer size, e.g. 64KiB or 1m
  -s words          call stack size of generated code in words

Debugging arguments:
  -da               print generated code to stderr and exit
  -di               print the IR program to stderr and exit
  -t                trace code generation and runtime errors to stderr

Other:
  -h, --help        show this help message
  -version          show awkjit version and exit
`
)

//nolint:gocyclo,funlen // CLI argument parsing is inherently complex
func main() {
	// onexit runs its hooks on SIGINT, SIGTERM, SIGQUIT and SIGTSTP but
	// leaves exiting to us.
	go func() {
		<-onexit.Done()
		os.Exit(130)
	}()

	config := &awkjit.Config{Stderr: os.Stderr}
	debugAsm := false
	debugIR := false

	// needArg returns the argument of the flag at i.
	needArg := func(i int) string {
		if i+1 >= len(os.Args) {
			errorExitf("flag needs an argument: %s", os.Args[i])
		}
		return os.Args[i+1]
	}

	var i int
	for i = 1; i < len(os.Args); i++ {
		// Stop on explicit end of args or first arg not prefixed with "-"
		arg := os.Args[i]
		if arg == "--" {
			i++
			break
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			break
		}

		switch arg {
		case "-F":
			config.FS = needArg(i)
			i++
		case "-v":
			setVar(config, needArg(i))
			i++
		case "-b":
			config.OutputBuffer = needArg(i)
			i++
		case "-s":
			config.StackSize = parseWords(needArg(i))
			i++
		case "-l":
			for _, name := range progs.Names() {
				fmt.Printf("%-6s %s\n", name, progs.Usage(name))
			}
			os.Exit(0)
		case "-da":
			debugAsm = true
		case "-di":
			debugIR = true
		case "-t":
			config.Trace = true
		case "--posix":
			t := true
			config.POSIXRegex = &t
		case "--no-posix":
			f := false
			config.POSIXRegex = &f
		case "-h", "--help":
			fmt.Printf("awkjit %s\n\n%s\n\n%s", version, shortUsage, longUsage)
			os.Exit(0)
		case "-version", "--version":
			fmt.Printf("awkjit version %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			fmt.Println("  regex:  coregex")
			os.Exit(0)
		default:
			// Handle flags with no space: -F:, -vOFS=,, -b1m, etc.
			switch {
			case strings.HasPrefix(arg, "-F"):
				config.FS = arg[2:]
			case strings.HasPrefix(arg, "-v"):
				setVar(config, arg[2:])
			case strings.HasPrefix(arg, "-b"):
				config.OutputBuffer = arg[2:]
			case strings.HasPrefix(arg, "-s"):
				config.StackSize = parseWords(arg[2:])
			default:
				errorExitf("flag provided but not defined: %s", arg)
			}
		}
	}

	// Remaining args are the program name and input files
	args := os.Args[i:]
	if len(args) == 0 {
		errorExitf(shortUsage)
	}
	p, ok := progs.Lookup(args[0])
	if !ok {
		errorExitf("unknown program %q (try -l)", args[0])
	}
	config.Args = args[1:]

	if debugIR {
		fmt.Fprint(os.Stderr, p.Disassemble())
		os.Exit(0)
	}

	prog, err := awkjit.Compile(p, config)
	if err != nil {
		errorExit(err)
	}
	if debugAsm {
		fmt.Fprint(os.Stderr, prog.Disassemble())
		os.Exit(0)
	}

	stdout := newLockedWriter(os.Stdout)
	config.Output = stdout
	onexit.Register(func() { _ = stdout.Flush() })

	// With no files, read stdin; otherwise the runtime opens the files in
	// Args one after another.
	var input io.Reader
	if len(config.Args) == 0 {
		input = os.Stdin
	}

	_, err = prog.Run(input, config)
	if ferr := stdout.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		errorExit(err)
	}
}

// lockedWriter is a buffered writer that may be flushed from the signal
// handler while the program is still writing.
type lockedWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func newLockedWriter(w io.Writer) *lockedWriter {
	return &lockedWriter{w: bufio.NewWriter(w)}
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (l *lockedWriter) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Flush()
}

// setVar applies a -v assignment.
func setVar(config *awkjit.Config, assign string) {
	name, value, ok := strings.Cut(assign, "=")
	if !ok {
		errorExitf("invalid variable assignment: %s (expected var=value)", assign)
	}
	switch name {
	case "OFS":
		config.OFS = value
	case "ORS":
		config.ORS = value
	case "FS":
		config.FS = value
	default:
		errorExitf("cannot assign %s: only FS, OFS and ORS are settable", name)
	}
}

func parseWords(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		errorExitf("invalid stack size: %s", s)
	}
	return n
}

// errorExitf prints formatted error message and exits with code 1
func errorExitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "awkjit: "+format+"\n", args...)
	os.Exit(1)
}

// errorExit prints error and exits with code 1
func errorExit(err error) {
	fmt.Fprintf(os.Stderr, "awkjit: %v\n", err)
	os.Exit(1)
}
