// Package progs holds ready-made IR programs for common record-processing
// tasks. They back the command line tool and serve as end-to-end fixtures.
package progs

import (
	"slices"

	"github.com/kolkov/awkjit/ir"
)

var registry = map[string]struct {
	build func() *ir.Program
	usage string
}{
	"wc":   {WordCount, "count occurrences of every field, printed in key order"},
	"uniq": {Uniq, "print each distinct record once, in first-seen order"},
	"sum":  {func() *ir.Program { return Sum(1) }, "sum the first column"},
	"rev":  {Reverse, "print the fields of each record in reverse order"},
}

// Lookup returns a fresh copy of the program called name.
func Lookup(name string) (*ir.Program, bool) {
	e, ok := registry[name]
	if !ok {
		return nil, false
	}
	return e.build(), true
}

// Usage returns the one-line description of program name.
func Usage(name string) string { return registry[name].usage }

// Names returns the registered program names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// builder emits into one function.
type builder struct{ *ir.Func }

func (b builder) constInt(v int64) ir.Ref {
	r := b.Reg(ir.Int)
	b.Emit(&ir.StoreConstInt{Dst: r, Val: v})
	return r
}

func (b builder) constStr(s string) ir.Ref {
	r := b.Reg(ir.Str)
	b.Emit(&ir.StoreConstStr{Dst: r, Val: s})
	return r
}

func (b builder) add(dst, x, y ir.Ref) {
	b.Emit(&ir.Arithmetic{Dst: dst, Op: ir.Add, Args: []ir.Ref{x, y}})
}

// records emits a loop over the input records, calling body once per
// record.
func (b builder) records(body func()) {
	top, done := b.NewLabel(), b.NewLabel()
	b.Emit(&ir.Label{ID: top})
	more, eof := b.Reg(ir.Int), b.Reg(ir.Int)
	b.Emit(&ir.NextLine{Dst: more})
	b.Emit(&ir.Compare{Dst: eof, Op: ir.LTE, L: more, R: b.constInt(0)})
	b.Emit(&ir.JmpIf{Cond: eof, To: done})
	body()
	b.Emit(&ir.Jmp{To: top}, &ir.Label{ID: done})
}

// count emits a loop running i from lo to hi inclusive, stepping by step.
func (b builder) count(lo, hi ir.Ref, step int64, body func(i ir.Ref)) {
	i := b.Reg(ir.Int)
	b.Emit(&ir.Mov{Dst: i, Src: lo})
	top, done := b.NewLabel(), b.NewLabel()
	b.Emit(&ir.Label{ID: top})
	out := b.Reg(ir.Int)
	op := ir.GT
	if step < 0 {
		op = ir.LT
	}
	b.Emit(&ir.Compare{Dst: out, Op: op, L: i, R: hi})
	b.Emit(&ir.JmpIf{Cond: out, To: done})
	body(i)
	b.add(i, i, b.constInt(step))
	b.Emit(&ir.Jmp{To: top}, &ir.Label{ID: done})
}

// keys emits a loop over the keys of m in ascending order.
func (b builder) keys(m ir.Ref, body func(k ir.Ref)) {
	it := b.Reg(m.Ty.IterOf())
	top, done := b.NewLabel(), b.NewLabel()
	b.Emit(&ir.IterBegin{Dst: it, Map: m}, &ir.Label{ID: top})
	more, end := b.Reg(ir.Int), b.Reg(ir.Int)
	b.Emit(&ir.IterHasNext{Dst: more, Iter: it})
	b.Emit(&ir.Compare{Dst: end, Op: ir.EQ, L: more, R: b.constInt(0)})
	b.Emit(&ir.JmpIf{Cond: end, To: done})
	k := b.Reg(m.Ty.Key())
	b.Emit(&ir.IterGetNext{Dst: k, Iter: it})
	body(k)
	b.Emit(&ir.Jmp{To: top}, &ir.Label{ID: done})
}

// WordCount counts every field of the input.
//
//	{ for (i = 1; i <= NF; i++) n[$i]++ }
//	END { for (w in n) printf "%s %d\n", w, n[w] }
func WordCount() *ir.Program {
	p := ir.NewProgram()
	b := builder{p.NewFunc("main", ir.Null)}
	counts := b.Reg(ir.MapStrInt)

	b.records(func() {
		nf := b.Reg(ir.Int)
		b.Emit(&ir.LoadVar{Dst: nf, Var: ir.NF})
		b.count(b.constInt(1), nf, 1, func(i ir.Ref) {
			w, n := b.Reg(ir.Str), b.Reg(ir.Int)
			b.Emit(&ir.GetColumn{Dst: w, Index: i})
			b.Emit(&ir.Lookup{Dst: n, Map: counts, Key: w})
			b.add(n, n, b.constInt(1))
			b.Emit(&ir.Store{Map: counts, Key: w, Val: n})
		})
	})

	format := b.constStr("%s %d\n")
	b.keys(counts, func(w ir.Ref) {
		n := b.Reg(ir.Int)
		b.Emit(&ir.Lookup{Dst: n, Map: counts, Key: w})
		b.Emit(&ir.Printf{Fmt: format, Args: []ir.Ref{w, n}})
	})
	b.Emit(&ir.Ret{})
	return p
}

// Uniq prints every record the first time it is seen.
//
//	!seen[$0]++
func Uniq() *ir.Program {
	p := ir.NewProgram()
	seen := p.Global(ir.MapStrInt)
	b := builder{p.NewFunc("main", ir.Null)}

	// first reports whether line is new and records it.
	first := builder{p.NewFunc("first", ir.Int)}
	line := first.Param(ir.Str)
	dup, fresh := first.Reg(ir.Int), first.Reg(ir.Int)
	first.Emit(&ir.Contains{Dst: dup, Map: seen, Key: line})
	first.Emit(&ir.Store{Map: seen, Key: line, Val: first.constInt(1)})
	first.Emit(&ir.Compare{Dst: fresh, Op: ir.EQ, L: dup, R: first.constInt(0)})
	first.Emit(&ir.Ret{Src: fresh})

	b.records(func() {
		rec, isNew := b.Reg(ir.Str), b.Reg(ir.Int)
		b.Emit(&ir.GetColumn{Dst: rec, Index: b.constInt(0)})
		b.Emit(&ir.Call{Dst: isNew, Func: 1, Args: []ir.Ref{rec}})
		skip, old := b.NewLabel(), b.Reg(ir.Int)
		b.Emit(&ir.Compare{Dst: old, Op: ir.EQ, L: isNew, R: b.constInt(0)})
		b.Emit(&ir.JmpIf{Cond: old, To: skip})
		b.Emit(&ir.Print{Args: []ir.Ref{rec}})
		b.Emit(&ir.Label{ID: skip})
	})
	b.Emit(&ir.Ret{})
	return p
}

// Sum adds up column col and prints the total.
//
//	{ s += $col } END { print s }
func Sum(col int64) *ir.Program {
	p := ir.NewProgram()
	b := builder{p.NewFunc("main", ir.Null)}
	total := b.Reg(ir.Float)
	b.Emit(&ir.StoreConstFloat{Dst: total, Val: 0})

	b.records(func() {
		field, x := b.Reg(ir.Str), b.Reg(ir.Float)
		b.Emit(&ir.GetColumn{Dst: field, Index: b.constInt(col)})
		b.Emit(&ir.Convert{Dst: x, Src: field})
		b.add(total, total, x)
	})

	out := b.Reg(ir.Str)
	b.Emit(&ir.Convert{Dst: out, Src: total})
	b.Emit(&ir.Print{Args: []ir.Ref{out}})
	b.Emit(&ir.Ret{})
	return p
}

// Reverse prints the fields of every record last to first.
//
//	{ s = $NF; for (i = NF-1; i > 0; i--) s = s OFS $i; print s }
func Reverse() *ir.Program {
	p := ir.NewProgram()
	b := builder{p.NewFunc("main", ir.Null)}

	b.records(func() {
		nf, prev, s, ofs := b.Reg(ir.Int), b.Reg(ir.Int), b.Reg(ir.Str), b.Reg(ir.Str)
		b.Emit(&ir.LoadVar{Dst: nf, Var: ir.NF}, &ir.LoadVar{Dst: ofs, Var: ir.OFS})
		b.Emit(&ir.GetColumn{Dst: s, Index: nf})
		b.Emit(&ir.Arithmetic{Dst: prev, Op: ir.Minus, Args: []ir.Ref{nf, b.constInt(1)}})
		b.count(prev, b.constInt(1), -1, func(i ir.Ref) {
			f := b.Reg(ir.Str)
			b.Emit(&ir.GetColumn{Dst: f, Index: i})
			b.Emit(&ir.Concat{Dst: s, L: s, R: ofs}, &ir.Concat{Dst: s, L: s, R: f})
		})
		b.Emit(&ir.Print{Args: []ir.Ref{s}})
	})
	b.Emit(&ir.Ret{})
	return p
}
