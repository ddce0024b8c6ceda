package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kolkov/awkjit/ir"
)

// Stdout selects standard output as the destination of Write.
const Stdout = -1

// Config configures a Runtime.
type Config struct {
	// Literals is the program's literal table.
	Literals []string

	// Args become ARGV[1:]. When Input is nil they also name the files
	// read as main input, in order.
	Args []string

	// FS, OFS and ORS are the initial separators.
	FS, OFS, ORS string

	// Input is the main input. Nil means read the files in Args.
	Input io.Reader

	// Output receives standard output. Nil means os.Stdout.
	Output io.Writer

	// POSIX selects leftmost-longest pattern matching.
	POSIX bool

	// OutputBuffer is the buffer size of standard output and of every
	// output file, in bytes.
	OutputBuffer int

	// Logger receives recoverable I/O and pattern errors.
	Logger *slog.Logger
}

// Runtime is the state shared by all generated functions of one run: the
// heap, built-in variables, the current record and the I/O caches. It is
// not safe for concurrent use.
type Runtime struct {
	Heap *Heap
	log  *slog.Logger

	argc     int64
	argv     uint64
	fs       Str
	ofs      Str
	ors      Str
	filename Str
	nf       int64
	nr       int64

	line   string
	fields LazyVec[string]

	in      *bufio.Reader
	inFile  *InputFile
	inputs  []string
	out     *bufio.Writer
	regexes *RegexCache
	writes  *FileWrite
	reads   FileRead

	status int64
	errs   []error
}

// New returns a Runtime for one run.
func New(cfg Config) *Runtime {
	if cfg.FS == "" {
		cfg.FS = " "
	}
	if cfg.OFS == "" {
		cfg.OFS = " "
	}
	if cfg.ORS == "" {
		cfg.ORS = "\n"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.OutputBuffer <= 0 {
		cfg.OutputBuffer = 64 << 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	h := NewHeap(cfg.Literals)
	rt := &Runtime{
		Heap:    h,
		log:     cfg.Logger,
		fs:      h.NewStr(cfg.FS),
		ofs:     h.NewStr(cfg.OFS),
		ors:     h.NewStr(cfg.ORS),
		out:     bufio.NewWriterSize(cfg.Output, cfg.OutputBuffer),
		regexes: NewRegexCache(RegexConfig{POSIX: cfg.POSIX}),
		writes:  NewFileWrite(cfg.OutputBuffer, cfg.Output),
	}

	rt.argv = NewMap[int64, string](h)
	argv := MapAt[int64, string](h, rt.argv)
	argv.Insert(0, "awkjit")
	for i, a := range cfg.Args {
		argv.Insert(int64(i+1), a)
	}
	rt.argc = int64(len(cfg.Args) + 1)

	if cfg.Input != nil {
		rt.in = bufio.NewReader(cfg.Input)
	} else {
		rt.inputs = append([]string(nil), cfg.Args...)
	}
	return rt
}

// Errors returns the recoverable errors recorded so far.
func (rt *Runtime) Errors() []error { return rt.errs }

// fail records a recoverable error and returns the status reported to
// generated code.
func (rt *Runtime) fail(op string, err error) int64 {
	rt.errs = append(rt.errs, fmt.Errorf("%s: %w", op, err))
	rt.log.Warn("runtime error", "op", op, "error", err)
	return -1
}

// Str returns the text of s.
func (rt *Runtime) Str(s Str) string { return rt.Heap.String(s) }

// split breaks s on sep using AWK field splitting rules: a single space
// splits on runs of whitespace, any other single character splits on
// that character, the empty separator splits into characters, and
// anything longer is a pattern.
func (rt *Runtime) split(s, sep string) ([]string, error) {
	switch {
	case s == "":
		return nil, nil
	case sep == " ":
		return strings.Fields(s), nil
	case sep == "":
		return strings.Split(s, ""), nil
	case len(sep) == 1 && sep != "\\":
		return strings.Split(s, sep), nil
	default:
		return rt.regexes.Split(sep, s)
	}
}

// nextInput returns the reader of the main input, advancing through the
// input files as each one is exhausted.
func (rt *Runtime) nextInput() (*bufio.Reader, error) {
	if rt.in != nil {
		return rt.in, nil
	}
	if len(rt.inputs) == 0 {
		return nil, nil
	}
	name := rt.inputs[0]
	rt.inputs = rt.inputs[1:]
	in, err := openInput(name)
	if err != nil {
		return nil, err
	}
	rt.inFile = in
	rt.in = in.reader
	rt.storeStr(&rt.filename, rt.Heap.NewStr(name))
	return rt.in, nil
}

// NextLine reads the next record and splits it into fields. It returns 1
// on success, 0 at end of input and -1 on error.
func (rt *Runtime) NextLine() int64 {
	for {
		r, err := rt.nextInput()
		if err != nil {
			return rt.fail("nextline", err)
		}
		if r == nil {
			return 0
		}
		line, ok, err := readLine(r)
		if err != nil {
			return rt.fail("nextline", err)
		}
		if ok {
			rt.nr++
			return rt.setRecord(line)
		}
		if rt.inFile == nil {
			// plain reader exhausted
			rt.inputs = nil
			rt.in = nil
			return 0
		}
		rt.inFile.closer.Close()
		rt.inFile, rt.in = nil, nil
	}
}

func (rt *Runtime) setRecord(line string) int64 {
	rt.line = line
	parts, err := rt.split(line, rt.Str(rt.fs))
	if err != nil {
		return rt.fail("field splitting", err)
	}
	rt.fields.Clear()
	for _, p := range parts {
		rt.fields.Push(p)
	}
	rt.nf = int64(len(parts))
	return 1
}

func (rt *Runtime) rebuildRecord() {
	ofs := rt.Str(rt.ofs)
	var sb strings.Builder
	for i := int64(0); i < rt.nf; i++ {
		if i > 0 {
			sb.WriteString(ofs)
		}
		f, _ := rt.fields.Get(int(i))
		sb.WriteString(f)
	}
	rt.line = sb.String()
}

// Column returns an owned copy of field i; field 0 is the whole record.
func (rt *Runtime) Column(i int64) Str {
	switch {
	case i == 0:
		return rt.Heap.NewStr(rt.line)
	case i < 0:
		rt.fail("get column", fmt.Errorf("attempt to access field %d", i))
		return Str{}
	}
	f, _ := rt.fields.Get(int(i - 1))
	return rt.Heap.NewStr(f)
}

// SetColumn assigns field i and rebuilds the record. Assigning field 0
// replaces the record and splits it again.
func (rt *Runtime) SetColumn(i int64, s Str) {
	switch {
	case i == 0:
		rt.setRecord(rt.Str(s))
		return
	case i < 0:
		rt.fail("set column", fmt.Errorf("attempt to access field %d", i))
		return
	}
	rt.fields.Insert(int(i-1), rt.Str(s))
	if i > rt.nf {
		rt.nf = i
	}
	rt.rebuildRecord()
}

func (rt *Runtime) setNF(n int64) {
	if n < 0 {
		rt.fail("store NF", fmt.Errorf("invalid NF value %d", n))
		return
	}
	parts := make([]string, n)
	for j := range parts {
		parts[j], _ = rt.fields.Get(j)
	}
	rt.fields.Clear()
	for _, p := range parts {
		rt.fields.Push(p)
	}
	rt.nf = n
	rt.rebuildRecord()
}

// Match reports 1 if s matches pat, 0 if not and -1 if pat is invalid.
func (rt *Runtime) Match(s, pat Str) int64 {
	ok, err := rt.regexes.Match(rt.Str(pat), rt.Str(s))
	if err != nil {
		return rt.fail("match", err)
	}
	if ok {
		return 1
	}
	return 0
}

// SplitInt splits s on pat into the MapIntStr m with keys 1..n and
// returns n, or -1 if pat is invalid.
func (rt *Runtime) SplitInt(s Str, m uint64, pat Str) int64 {
	parts, err := rt.split(rt.Str(s), rt.Str(pat))
	if err != nil {
		return rt.fail("split", err)
	}
	dst := MapAt[int64, string](rt.Heap, m)
	dst.Clear()
	for i, p := range parts {
		dst.Insert(int64(i+1), p)
	}
	return int64(len(parts))
}

// SplitStr is SplitInt for a MapStrStr with decimal keys.
func (rt *Runtime) SplitStr(s Str, m uint64, pat Str) int64 {
	parts, err := rt.split(rt.Str(s), rt.Str(pat))
	if err != nil {
		return rt.fail("split", err)
	}
	dst := MapAt[string, string](rt.Heap, m)
	dst.Clear()
	for i, p := range parts {
		dst.Insert(IntToStr(int64(i+1)), p)
	}
	return int64(len(parts))
}

// Concat returns an owned concatenation of a and b.
func (rt *Runtime) Concat(a, b Str) Str {
	return rt.Heap.NewStr(rt.Str(a) + rt.Str(b))
}

// CompareStr returns -1, 0 or 1.
func (rt *Runtime) CompareStr(a, b Str) int64 {
	return int64(strings.Compare(rt.Str(a), rt.Str(b)))
}

// ReadFileLine reads the next line of the file named path. It returns the
// owned line and a status of 1, 0 at end of file or -1 on error. The
// status is also kept for Status.
func (rt *Runtime) ReadFileLine(path Str) (Str, int64) {
	line, ok, err := rt.reads.ReadLine(rt.Str(path))
	switch {
	case err != nil:
		rt.status = rt.fail("getline", err)
		return Str{}, rt.status
	case !ok:
		rt.status = 0
		return Str{}, 0
	}
	rt.status = 1
	return rt.Heap.NewStr(line), 1
}

// Status returns the status of the last ReadFileLine.
func (rt *Runtime) Status() int64 { return rt.status }

// Write sends s to standard output (spec Stdout) or to the destination
// named path opened according to spec. It returns 0 or -1.
func (rt *Runtime) Write(spec int64, path Str, s string) int64 {
	var err error
	switch spec {
	case Stdout:
		_, err = rt.out.WriteString(s)
	case int64(ir.Trunc), int64(ir.Append):
		err = rt.writes.Write(rt.Str(path), s, spec == int64(ir.Append))
	case int64(ir.Cmd):
		if err = rt.out.Flush(); err == nil {
			err = rt.writes.WritePipe(rt.Str(path), s)
		}
	default:
		err = fmt.Errorf("unknown output mode %d", spec)
	}
	if err != nil {
		return rt.fail("write", err)
	}
	return 0
}

// PrintAll writes args separated by OFS and terminated by ORS.
func (rt *Runtime) PrintAll(spec int64, path Str, args []Str) int64 {
	var sb strings.Builder
	ofs := rt.Str(rt.ofs)
	for i, a := range args {
		if i > 0 {
			sb.WriteString(ofs)
		}
		sb.WriteString(rt.Str(a))
	}
	sb.WriteString(rt.Str(rt.ors))
	return rt.Write(spec, path, sb.String())
}

// Printf formats args and writes the result.
func (rt *Runtime) Printf(spec int64, path Str, format Str, args []FormatArg) int64 {
	return rt.Write(spec, path, Sprintf(rt.Str(format), args))
}

// Sprintf returns an owned formatted string.
func (rt *Runtime) Sprintf(format Str, args []FormatArg) Str {
	return rt.Heap.NewStr(Sprintf(rt.Str(format), args))
}

// LoadInt reads an Int built-in variable.
func (rt *Runtime) LoadInt(v ir.Variable) int64 {
	switch v {
	case ir.ARGC:
		return rt.argc
	case ir.NF:
		return rt.nf
	case ir.NR:
		return rt.nr
	}
	panic(fmt.Sprintf("runtime: %s is not an int variable", v))
}

// StoreInt assigns an Int built-in variable.
func (rt *Runtime) StoreInt(v ir.Variable, n int64) {
	switch v {
	case ir.ARGC:
		rt.argc = n
	case ir.NF:
		rt.setNF(n)
	case ir.NR:
		rt.nr = n
	default:
		panic(fmt.Sprintf("runtime: %s is not an int variable", v))
	}
}

func (rt *Runtime) strVar(v ir.Variable) *Str {
	switch v {
	case ir.FS:
		return &rt.fs
	case ir.OFS:
		return &rt.ofs
	case ir.ORS:
		return &rt.ors
	case ir.FILENAME:
		return &rt.filename
	}
	panic(fmt.Sprintf("runtime: %s is not a str variable", v))
}

// LoadStr returns a Str built-in variable. The result is borrowed.
func (rt *Runtime) LoadStr(v ir.Variable) Str { return *rt.strVar(v) }

// StoreStr assigns a Str built-in variable, taking a new reference to s.
func (rt *Runtime) StoreStr(v ir.Variable, s Str) {
	rt.Heap.RefStr(s)
	rt.storeStr(rt.strVar(v), s)
}

// storeStr moves the owned s into slot.
func (rt *Runtime) storeStr(slot *Str, s Str) {
	old := *slot
	*slot = s
	rt.Heap.DropStr(old)
}

// LoadMap returns the ARGV map handle. The result is borrowed.
func (rt *Runtime) LoadMap(v ir.Variable) uint64 {
	if v != ir.ARGV {
		panic(fmt.Sprintf("runtime: %s is not a map variable", v))
	}
	return rt.argv
}

// StoreMap assigns ARGV, taking a new reference to m.
func (rt *Runtime) StoreMap(v ir.Variable, m uint64) {
	if v != ir.ARGV {
		panic(fmt.Sprintf("runtime: %s is not a map variable", v))
	}
	rt.Heap.Ref(m)
	old := rt.argv
	rt.argv = m
	rt.Heap.Drop(old)
}

// Flush flushes standard output and every output file.
func (rt *Runtime) Flush() error {
	return errors.Join(rt.out.Flush(), rt.writes.Flush())
}

// Close flushes and closes all I/O and releases the built-in variables.
func (rt *Runtime) Close() error {
	rt.log.Debug("runtime closing",
		"regexes", rt.regexes.Len(),
		"outputs", rt.writes.Len(),
		"inputs", rt.reads.Len(),
		"errors", len(rt.errs))
	err := errors.Join(rt.out.Flush(), rt.writes.Close(), rt.reads.Close())
	if rt.inFile != nil {
		err = errors.Join(err, rt.inFile.closer.Close())
		rt.inFile = nil
	}
	for _, s := range []*Str{&rt.fs, &rt.ofs, &rt.ors, &rt.filename} {
		rt.storeStr(s, Str{})
	}
	rt.Heap.Drop(rt.argv)
	rt.argv = 0
	return err
}
