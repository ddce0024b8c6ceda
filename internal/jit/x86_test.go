package jit

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"testing"
)

// amd64Module returns a module that encodes x86-64 on any host but always
// runs the closures.
func amd64Module() *Module {
	m := NewModule(NewBuilder())
	m.target.Arch = "amd64"
	m.native = false
	return m
}

func TestX86Encoding(t *testing.T) {
	m := amd64Module()
	add := define(t, m, "add", Export, sigOf([]Type{I64, I64}, I64), func(b *FunctionBuilder, p []Value) {
		b.Ins().Return(b.Ins().Iadd(p[0], p[1]))
	})
	want := "488b8700000000" + // mov rax, [rdi]
		"488b8f08000000" + // mov rcx, [rdi+8]
		"4801c8" + // add rax, rcx
		"48898710000000" + // mov [rdi+16], rax
		"488b8710000000" + // mov rax, [rdi+16]
		"48898718000000" + // mov [rdi+24], rax
		"c3"
	if got := hex.EncodeToString(m.funcs[add].body.code); got != want {
		t.Errorf("add:\ngot  %s\nwant %s", got, want)
	}
	if m.funcs[add].body.retOff != 3 {
		t.Errorf("retOff = %d, want 3", m.funcs[add].body.retOff)
	}

	maxID := define(t, m, "max", Export, sigOf([]Type{I64, I64}, I64), func(b *FunctionBuilder, p []Value) {
		then, els := b.CreateBlock(), b.CreateBlock()
		b.Ins().Brif(b.Ins().Icmp(SignedGreaterThan, p[0], p[1]), then, els)
		b.SwitchToBlock(then)
		b.Ins().Return(p[0])
		b.SwitchToBlock(els)
		b.Ins().Return(p[1])
	})
	code := m.funcs[maxID].body.code
	if len(code) != 81 {
		t.Fatalf("max is %d bytes, want 81: %x", len(code), code)
	}
	if got := hex.EncodeToString(code[17:20]); got != "0f9fc0" {
		t.Errorf("setg encoded as %s", got)
	}
	if code[40] != 0x0f || code[41] != 0x85 || code[46] != 0xe9 {
		t.Errorf("branch opcodes: % x", code[40:47])
	}
	if rel := int32(binary.LittleEndian.Uint32(code[42:])); rel != 5 {
		t.Errorf("jnz rel32 = %d, want 5", rel)
	}
	if rel := int32(binary.LittleEndian.Uint32(code[47:])); rel != 15 {
		t.Errorf("jmp rel32 = %d, want 15", rel)
	}

	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	if dump := m.Dump(); !strings.Contains(dump, "; %add: 39 bytes of x86-64 48 8b 87") {
		t.Errorf("dump lacks the machine code of add:\n%s", dump)
	}
}

func TestX86SkipsUnsupported(t *testing.T) {
	jb := NewBuilder()
	jb.Symbol("add", AddrOf(hostAdd))
	m := NewModule(jb)
	m.target.Arch = "amd64"
	m.native = false
	addID, err := m.DeclareFunction("add", Import, sigOf([]Type{I64, I64}, I64))
	if err != nil {
		t.Fatal(err)
	}

	bodies := map[string]func(b *FunctionBuilder, p []Value){
		"div": func(b *FunctionBuilder, p []Value) { b.Ins().Return(b.Ins().Sdiv(p[0], p[0])) },
		"i32": func(b *FunctionBuilder, p []Value) {
			x := b.Ins().Iconst(I32, 1)
			b.Ins().Return(b.Ins().Bint(I64, b.Ins().Icmp(IntEqual, x, x)))
		},
		"call": func(b *FunctionBuilder, p []Value) {
			c := b.Ins().Call(m.DeclareFuncInFunc(addID, b.Func()), []Value{p[0], p[0]})
			b.Ins().Return(b.InstResults(c)[0])
		},
		"load": func(b *FunctionBuilder, p []Value) { b.Ins().Return(b.Ins().Load(I64, p[0], 0)) },
	}
	for name, build := range bodies {
		id := define(t, m, name, Export, sigOf([]Type{I64}, I64), build)
		if code := m.funcs[id].body.code; code != nil {
			t.Errorf("%s: encoded %d bytes, want no machine code", name, len(code))
		}
	}
}

// buildLeaves defines functions with machine code forms in m.
func buildLeaves(t *testing.T, m *Module) map[string]FuncID {
	t.Helper()
	ids := make(map[string]FuncID)
	sig2 := sigOf([]Type{I64, I64}, I64)
	ops := map[string]func(InstBuilder, Value, Value) Value{
		"iadd": InstBuilder.Iadd, "isub": InstBuilder.Isub, "imul": InstBuilder.Imul,
		"band": InstBuilder.Band, "bor": InstBuilder.Bor, "bxor": InstBuilder.Bxor,
		"ishl": InstBuilder.Ishl, "ushr": InstBuilder.Ushr, "sshr": InstBuilder.Sshr,
	}
	for name, op := range ops {
		ids[name] = define(t, m, name, Export, sig2, func(b *FunctionBuilder, p []Value) {
			b.Ins().Return(op(b.Ins(), p[0], p[1]))
		})
	}
	for cc := IntEqual; cc <= SignedGreaterThanOrEqual; cc++ {
		ids["icmp_"+cc.String()] = define(t, m, "icmp_"+cc.String(), Export, sig2, func(b *FunctionBuilder, p []Value) {
			b.Ins().Return(b.Ins().Bint(I64, b.Ins().Icmp(cc, p[0], p[1])))
		})
	}
	ids["unary"] = define(t, m, "unary", Export, sig2, func(b *FunctionBuilder, p []Value) {
		// -x ^ ^y
		b.Ins().Return(b.Ins().Bxor(b.Ins().Ineg(p[0]), b.Ins().Bnot(p[1])))
	})
	ids["consts"] = define(t, m, "consts", Export, sig2, func(b *FunctionBuilder, p []Value) {
		k := b.Ins().Iconst(I64, -3)
		b.Ins().Return(b.Ins().Iadd(b.Ins().Imul(p[0], k), b.Ins().Iconst(I64, 0xff)))
	})
	ids["fconst"] = define(t, m, "fconst", Export, sigOf([]Type{I64, I64}, F64), func(b *FunctionBuilder, _ []Value) {
		b.Ins().Return(b.Ins().F64const(1.5))
	})
	// Loop with variables: sum of x..y.
	ids["sum"] = define(t, m, "sum", Export, sig2, func(b *FunctionBuilder, p []Value) {
		acc, i := NewVariable(0), NewVariable(1)
		b.DeclareVar(acc, I64)
		b.DeclareVar(i, I64)
		b.DefVar(i, p[0])
		head, body, exit := b.CreateBlock(), b.CreateBlock(), b.CreateBlock()
		b.Ins().Jump(head)
		b.SwitchToBlock(head)
		b.Ins().Brif(b.Ins().Icmp(SignedLessThanOrEqual, b.UseVar(i), p[1]), body, exit)
		b.SwitchToBlock(body)
		b.DefVar(acc, b.Ins().Iadd(b.UseVar(acc), b.UseVar(i)))
		b.DefVar(i, b.Ins().Iadd(b.UseVar(i), b.Ins().Iconst(I64, 1)))
		b.Ins().Jump(head)
		b.SwitchToBlock(exit)
		b.Ins().Return(b.UseVar(acc))
	})
	// Block parameters swapped on every back edge: fib(x) + y.
	ids["fib"] = define(t, m, "fib", Export, sig2, func(b *FunctionBuilder, p []Value) {
		loop, done, body := b.CreateBlock(), b.CreateBlock(), b.CreateBlock()
		fa := b.AppendBlockParam(loop, I64)
		fb := b.AppendBlockParam(loop, I64)
		n := b.AppendBlockParam(loop, I64)
		b.Ins().Jump(loop, b.Ins().Iconst(I64, 0), b.Ins().Iconst(I64, 1), p[0])
		b.SwitchToBlock(loop)
		b.Ins().Brif(b.Ins().Icmp(IntEqual, n, b.Ins().Iconst(I64, 0)), done, body)
		b.SwitchToBlock(done)
		b.Ins().Return(b.Ins().Iadd(fa, p[1]))
		b.SwitchToBlock(body)
		b.Ins().Jump(loop, fb, b.Ins().Iadd(fa, fb), b.Ins().Isub(n, b.Ins().Iconst(I64, 1)))
	})
	ids["pair"] = define(t, m, "pair", Export, sigOf([]Type{I64, I64}, I128), func(b *FunctionBuilder, p []Value) {
		b.Ins().Return(b.Ins().Iconcat(p[1], p[0]))
	})
	return ids
}

// Machine code and closures agree on every function and input.
func TestMachineCodeMatchesClosures(t *testing.T) {
	native := NewModule(NewBuilder())
	closures := NewModule(NewBuilder())
	closures.native = false
	nids := buildLeaves(t, native)
	cids := buildLeaves(t, closures)
	nin := instantiate(t, native)
	cin := instantiate(t, closures)

	if native.native {
		for name, id := range nids {
			if native.funcs[id].body.native == nil {
				t.Errorf("%s runs without machine code", name)
			}
		}
	}

	neg := func(v int64) uint64 { return uint64(v) }
	inputs := [][2]uint64{
		{0, 0}, {1, 2}, {7, 3}, {neg(-8), 1}, {neg(-8), 65}, {3, 64},
		{math.MaxInt64, 1}, {neg(math.MinInt64), neg(-1)}, {10, 20}, {40, 0},
	}
	for name, id := range nids {
		for _, in := range inputs {
			if name == "fib" && in[0] > 90 {
				continue
			}
			if name == "sum" && in[1]-in[0] > 1000 {
				continue
			}
			got, err := nin.Call(id, in[0], in[1])
			if err != nil {
				t.Fatalf("%s%v: %v", name, in, err)
			}
			want, err := cin.Call(cids[name], in[0], in[1])
			if err != nil {
				t.Fatalf("%s%v (closures): %v", name, in, err)
			}
			if len(got) != len(want) {
				t.Fatalf("%s: %d result words, want %d", name, len(got), len(want))
			}
			for k := range got {
				if got[k] != want[k] {
					t.Errorf("%s(%d, %d) word %d = %#x, closures give %#x", name, int64(in[0]), int64(in[1]), k, got[k], want[k])
				}
			}
		}
	}

	if got := call1(t, nin, nids["fib"], 90, 0); got != 2880067194370816120 {
		t.Errorf("fib(90) = %d", got)
	}
	if got := call1(t, nin, nids["sum"], 1, 100); got != 5050 {
		t.Errorf("sum(1, 100) = %d", got)
	}
	if got := int64(call1(t, nin, nids["sshr"], neg(-8), 65)); got != -4 {
		t.Errorf("-8 >> 65 = %d, want -4 (count mod 64)", got)
	}
}
