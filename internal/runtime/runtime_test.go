package runtime

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolkov/awkjit/ir"
)

func newTestRuntime(t *testing.T, input string, cfg Config) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg.Output = &out
	if input != "" {
		cfg.Input = strings.NewReader(input)
	}
	return New(cfg), &out
}

func TestNextLineAndFields(t *testing.T) {
	rt, _ := newTestRuntime(t, "a b  c\n\nd:e\n", Config{})
	h := rt.Heap

	if rt.NextLine() != 1 {
		t.Fatal("NextLine did not read the first record")
	}
	if rt.LoadInt(ir.NF) != 3 || rt.LoadInt(ir.NR) != 1 {
		t.Errorf("NF=%d NR=%d, want 3/1", rt.LoadInt(ir.NF), rt.LoadInt(ir.NR))
	}
	col := rt.Column(2)
	if h.String(col) != "b" {
		t.Errorf("$2 = %q", h.String(col))
	}
	if s := rt.Column(9); !s.IsEmpty() {
		t.Errorf("$9 = %q, want empty", h.String(s))
	}

	if rt.NextLine() != 1 || rt.LoadInt(ir.NF) != 0 {
		t.Errorf("empty record: NF=%d", rt.LoadInt(ir.NF))
	}

	rt.StoreStr(ir.FS, h.NewStr(":"))
	if rt.NextLine() != 1 {
		t.Fatal("third record missing")
	}
	if got := h.String(rt.Column(1)); got != "d" || rt.LoadInt(ir.NF) != 2 {
		t.Errorf("$1=%q NF=%d with FS=:", got, rt.LoadInt(ir.NF))
	}
	if rt.NextLine() != 0 || rt.NextLine() != 0 {
		t.Error("expected end of input")
	}
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if h.Live() != 0 {
		t.Errorf("Live() = %d after Close", h.Live())
	}
}

func TestSetColumn(t *testing.T) {
	rt, _ := newTestRuntime(t, "one two three\n", Config{})
	h := rt.Heap
	rt.NextLine()

	rt.SetColumn(2, h.NewStr("TWO"))
	if got := h.String(rt.Column(0)); got != "one TWO three" {
		t.Errorf("$0 = %q", got)
	}

	rt.SetColumn(5, h.NewStr("five"))
	if got := h.String(rt.Column(0)); got != "one TWO three  five" {
		t.Errorf("$0 = %q", got)
	}
	if rt.LoadInt(ir.NF) != 5 || rt.fields.IsSparse() {
		t.Errorf("NF=%d sparse=%v", rt.LoadInt(ir.NF), rt.fields.IsSparse())
	}

	// A far write switches the field vector to its sparse form.
	rt.SetColumn(200, h.NewStr("far"))
	if !rt.fields.IsSparse() || rt.LoadInt(ir.NF) != 200 {
		t.Errorf("NF=%d sparse=%v", rt.LoadInt(ir.NF), rt.fields.IsSparse())
	}
	s := rt.Column(200)
	if h.String(s) != "far" {
		t.Errorf("$200 = %q", h.String(s))
	}
	line := rt.Column(0)
	if !strings.HasSuffix(h.String(line), " far") || strings.Count(h.String(line), " ") != 199 {
		t.Errorf("rebuilt record has the wrong shape")
	}
	h.DropStr(line)

	rt.StoreInt(ir.NF, 2)
	if got := h.String(rt.Column(0)); got != "one TWO" {
		t.Errorf("after NF=2: $0 = %q", got)
	}
	if rt.fields.IsSparse() {
		t.Error("truncating NF left the vector sparse")
	}

	rt.SetColumn(0, h.NewStr("x y z"))
	if rt.LoadInt(ir.NF) != 3 {
		t.Errorf("assigning $0 gave NF=%d", rt.LoadInt(ir.NF))
	}

	rt.StoreInt(ir.NF, -1)
	rt.Column(-1)
	if len(rt.Errors()) != 2 {
		t.Errorf("Errors() = %v, want two entries", rt.Errors())
	}
}

func TestSplitAndMatch(t *testing.T) {
	rt, _ := newTestRuntime(t, "", Config{})
	h := rt.Heap

	m := NewMap[int64, string](h)
	MapAt[int64, string](h, m).Insert(99, "stale")
	if n := rt.SplitInt(h.NewStr("a,b,c"), m, h.NewStr(",")); n != 3 {
		t.Fatalf("SplitInt = %d", n)
	}
	dst := MapAt[int64, string](h, m)
	if v, _ := dst.Get(2); v != "b" || dst.Contains(99) {
		t.Errorf("split map = %v", dst.Keys())
	}

	sm := NewMap[string, string](h)
	if n := rt.SplitStr(h.NewStr("x1y22z"), sm, h.NewStr("[0-9]+")); n != 3 {
		t.Fatalf("SplitStr = %d", n)
	}
	if v, _ := MapAt[string, string](h, sm).Get("3"); v != "z" {
		t.Errorf(`split["3"] = %q`, v)
	}

	if rt.Match(h.NewStr("hello"), h.NewStr("^h.*o$")) != 1 {
		t.Error("expected match")
	}
	if rt.Match(h.NewStr("hello"), h.NewStr("^x")) != 0 {
		t.Error("unexpected match")
	}
	if rt.Match(h.NewStr("hello"), h.NewStr("[")) != -1 {
		t.Error("invalid pattern did not report -1")
	}
	if rt.SplitInt(h.NewStr("a"), m, h.NewStr("((")) != -1 {
		t.Error("invalid split pattern did not report -1")
	}
	if len(rt.Errors()) != 2 {
		t.Errorf("Errors() = %v", rt.Errors())
	}

	if got := rt.CompareStr(h.NewStr("abc"), h.NewStr("abd")); got != -1 {
		t.Errorf("CompareStr = %d", got)
	}
	cat := rt.Concat(h.NewStr("0123456789"), h.NewStr("abcdefghij"))
	if cat.Kind() != Shared || h.String(cat) != "0123456789abcdefghij" {
		t.Errorf("Concat = %q", h.String(cat))
	}
	h.DropStr(cat)
	h.Drop(m)
	h.Drop(sm)
}

func TestOutput(t *testing.T) {
	rt, out := newTestRuntime(t, "", Config{OFS: "-", ORS: "!\n"})
	h := rt.Heap
	path := filepath.Join(t.TempDir(), "out.txt")

	rt.PrintAll(Stdout, Str{}, []Str{h.NewStr("a"), h.NewStr("b")})
	rt.Printf(Stdout, Str{}, h.NewStr("%d:%s\n"), []FormatArg{{Kind: ArgInt, Int: 3}, {Kind: ArgStr, Str: "x"}})
	p := rt.Heap.NewStr(path)
	if rt.Write(int64(ir.Trunc), p, "to file\n") != 0 {
		t.Fatalf("Write to file failed: %v", rt.Errors())
	}
	rt.Write(int64(ir.Append), p, "more\n")

	if rt.Write(99, Str{}, "x") != -1 {
		t.Error("unknown mode accepted")
	}

	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	h.DropStr(p)
	if got := out.String(); got != "a-b!\n3:x\n" {
		t.Errorf("stdout = %q", got)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "to file\nmore\n" {
		t.Errorf("file = %q", content)
	}
}

func TestInputFilesAndGetline(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("1\n2\n"), 0o644)
	os.WriteFile(b, []byte("3\n"), 0o644)

	rt, _ := newTestRuntime(t, "", Config{Args: []string{a, b}})
	h := rt.Heap

	if rt.LoadInt(ir.ARGC) != 3 {
		t.Errorf("ARGC = %d", rt.LoadInt(ir.ARGC))
	}
	argv := MapAt[int64, string](h, rt.LoadMap(ir.ARGV))
	if v, _ := argv.Get(2); v != b {
		t.Errorf("ARGV[2] = %q", v)
	}

	var got []string
	for rt.NextLine() == 1 {
		got = append(got, h.String(rt.Column(0))+"@"+filepath.Base(h.String(rt.LoadStr(ir.FILENAME))))
	}
	if strings.Join(got, ",") != "1@a.txt,2@a.txt,3@b.txt" {
		t.Errorf("records = %v", got)
	}
	if rt.LoadInt(ir.NR) != 3 {
		t.Errorf("NR = %d", rt.LoadInt(ir.NR))
	}

	path := h.NewStr(a)
	line, status := rt.ReadFileLine(path)
	if status != 1 || h.String(line) != "1" {
		t.Errorf("getline = (%q, %d)", h.String(line), status)
	}
	rt.ReadFileLine(path)
	if _, status := rt.ReadFileLine(path); status != 0 {
		t.Errorf("getline at EOF = %d", status)
	}
	// The path is longer than the inline limit, so it is a counted heap string.
	missing := h.NewStr(filepath.Join(dir, "missing"))
	if _, status := rt.ReadFileLine(missing); status != -1 {
		t.Errorf("getline of missing file = %d", status)
	}
	h.DropStr(path)
	h.DropStr(missing)

	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if h.Live() != 0 {
		t.Errorf("Live() = %d after Close", h.Live())
	}
}

func TestStoreVariables(t *testing.T) {
	rt, _ := newTestRuntime(t, "", Config{})
	h := rt.Heap

	long := h.NewStr("a separator longer than fifteen bytes")
	rt.StoreStr(ir.OFS, long)
	if h.Refcount(long.Handle()) != 2 {
		t.Errorf("refcount after store = %d, want 2", h.Refcount(long.Handle()))
	}
	// Storing the current value again must not release it.
	rt.StoreStr(ir.OFS, rt.LoadStr(ir.OFS))
	if h.Refcount(long.Handle()) != 2 {
		t.Errorf("refcount after self-store = %d", h.Refcount(long.Handle()))
	}
	h.DropStr(long)

	m := NewMap[int64, string](h)
	rt.StoreMap(ir.ARGV, m)
	h.Drop(m)
	if rt.LoadMap(ir.ARGV) != m || h.Refcount(m) != 1 {
		t.Errorf("ARGV handle=%d refcount=%d", rt.LoadMap(ir.ARGV), h.Refcount(m))
	}
	rt.StoreMap(ir.ARGV, rt.LoadMap(ir.ARGV))
	if h.Refcount(m) != 1 {
		t.Errorf("ARGV self-store refcount = %d", h.Refcount(m))
	}

	rt.StoreInt(ir.ARGC, 7)
	rt.StoreInt(ir.NR, 5)
	if rt.LoadInt(ir.ARGC) != 7 || rt.LoadInt(ir.NR) != 5 {
		t.Error("int variables not stored")
	}

	rt.Close()
	if h.Live() != 0 {
		t.Errorf("Live() = %d after Close", h.Live())
	}
}

func TestWrongVariableTypePanics(t *testing.T) {
	rt, _ := newTestRuntime(t, "", Config{})
	defer rt.Close()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	rt.LoadInt(ir.FS)
}

func TestCloseLogsCacheSizes(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt, _ := newTestRuntime(t, "", Config{Logger: logger})
	h := rt.Heap

	rt.Match(h.NewStr("abc"), h.NewStr("b"))
	rt.Match(h.NewStr("abc"), h.NewStr("^a"))
	rt.Match(h.NewStr("abc"), h.NewStr("b"))
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	got := logs.String()
	for _, want := range []string{"runtime closing", "regexes=2", "outputs=0", "inputs=0", "errors=0"} {
		if !strings.Contains(got, want) {
			t.Errorf("log %q lacks %q", got, want)
		}
	}
}
