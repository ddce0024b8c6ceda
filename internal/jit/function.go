package jit

import (
	"fmt"
	"math"
	"strings"
)

// Value is an SSA value within one function.
type Value uint32

// Block is a basic block within one function.
type Block uint32

// Variable is a mutable local slot. UseVar reads its current value and
// DefVar replaces it; a variable that was never defined reads as zero.
type Variable uint32

// NewVariable returns the variable with index n.
func NewVariable(n int) Variable { return Variable(n) }

// StackSlot is a fixed-size area of the function's stack frame.
type StackSlot uint32

// FuncRef is a callee as seen from within one function.
type FuncRef uint32

// Inst is an instruction within one function.
type Inst uint32

type opcode uint8

const (
	opIconst opcode = iota
	opF64const
	opIconcat
	opIadd
	opIsub
	opImul
	opSdiv
	opSrem
	opBand
	opBor
	opBxor
	opIshl
	opUshr
	opSshr
	opIneg
	opBnot
	opFadd
	opFsub
	opFmul
	opFdiv
	opFneg
	opSqrt
	opIcmp
	opFcmp
	opBint
	opFcvtToSintSat
	opFcvtFromSint
	opLoad
	opStore
	opStackAddr
	opCall
	opUseVar
	opDefVar
	opJump
	opBrif
	opReturn
)

var opNames = [...]string{
	opIconst:        "iconst",
	opF64const:      "f64const",
	opIconcat:       "iconcat",
	opIadd:          "iadd",
	opIsub:          "isub",
	opImul:          "imul",
	opSdiv:          "sdiv",
	opSrem:          "srem",
	opBand:          "band",
	opBor:           "bor",
	opBxor:          "bxor",
	opIshl:          "ishl",
	opUshr:          "ushr",
	opSshr:          "sshr",
	opIneg:          "ineg",
	opBnot:          "bnot",
	opFadd:          "fadd",
	opFsub:          "fsub",
	opFmul:          "fmul",
	opFdiv:          "fdiv",
	opFneg:          "fneg",
	opSqrt:          "sqrt",
	opIcmp:          "icmp",
	opFcmp:          "fcmp",
	opBint:          "bint",
	opFcvtToSintSat: "fcvt_to_sint_sat",
	opFcvtFromSint:  "fcvt_from_sint",
	opLoad:          "load",
	opStore:         "store",
	opStackAddr:     "stack_addr",
	opCall:          "call",
	opUseVar:        "use_var",
	opDefVar:        "def_var",
	opJump:          "jump",
	opBrif:          "brif",
	opReturn:        "return",
}

func (op opcode) isTerminator() bool {
	return op == opJump || op == opBrif || op == opReturn
}

type instData struct {
	op      opcode
	ty      Type // controlling type
	args    []Value
	results []Value
	imm     uint64
	cc      uint8
	offset  int32
	fref    FuncRef
	slot    StackSlot
	v       Variable
	dest    Block
	alt     Block
}

type blockData struct {
	params     []Value
	insts      []Inst
	terminated bool
}

type extFunc struct {
	id  FuncID
	sig Signature
}

// Function is a function body under construction.
type Function struct {
	Name string
	Sig  Signature

	values []Type
	insts  []instData
	blocks []blockData
	vars   []Type // indexed by Variable; Invalid means undeclared
	slots  []int  // words per slot
	refs   []extFunc
}

// NewFunction returns an empty function with the given signature.
func NewFunction(name string, sig Signature) *Function {
	return &Function{Name: name, Sig: sig.Clone()}
}

// Clear resets f for reuse.
func (f *Function) Clear() {
	f.Sig.Clear()
	f.values = f.values[:0]
	f.insts = f.insts[:0]
	f.blocks = f.blocks[:0]
	f.vars = f.vars[:0]
	f.slots = f.slots[:0]
	f.refs = f.refs[:0]
}

func (f *Function) newValue(ty Type) Value {
	f.values = append(f.values, ty)
	return Value(len(f.values) - 1)
}

func (f *Function) valueType(v Value) Type {
	if int(v) >= len(f.values) {
		panic(fmt.Sprintf("jit: %s: unknown value v%d", f.Name, v))
	}
	return f.values[v]
}

// String returns a textual listing of the function body.
func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %%%s%s {\n", f.Name, f.Sig.String())
	for i, w := range f.slots {
		fmt.Fprintf(&sb, "    ss%d = stack_slot %d\n", i, w*8)
	}
	for i, r := range f.refs {
		fmt.Fprintf(&sb, "    fn%d = func%d %s\n", i, r.id, r.sig.String())
	}
	for bi, b := range f.blocks {
		fmt.Fprintf(&sb, "block%d", bi)
		if len(b.params) > 0 {
			sb.WriteByte('(')
			for i, p := range b.params {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "v%d: %s", p, f.values[p])
			}
			sb.WriteByte(')')
		}
		sb.WriteString(":\n")
		for _, in := range b.insts {
			sb.WriteString("    ")
			f.writeInst(&sb, &f.insts[in])
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (f *Function) writeInst(sb *strings.Builder, d *instData) {
	if len(d.results) > 0 {
		for i, r := range d.results {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "v%d", r)
		}
		sb.WriteString(" = ")
	}
	sb.WriteString(opNames[d.op])
	switch d.op {
	case opIconst:
		fmt.Fprintf(sb, ".%s %d", d.ty, int64(d.imm))
		return
	case opF64const:
		fmt.Fprintf(sb, " %g", math.Float64frombits(d.imm))
		return
	case opIcmp:
		fmt.Fprintf(sb, " %s", IntCC(d.cc))
	case opFcmp:
		fmt.Fprintf(sb, " %s", FloatCC(d.cc))
	case opLoad, opBint, opFcvtToSintSat, opFcvtFromSint, opStackAddr:
		fmt.Fprintf(sb, ".%s", d.ty)
	case opCall:
		fmt.Fprintf(sb, " fn%d", d.fref)
	case opUseVar, opDefVar:
		fmt.Fprintf(sb, " var%d", d.v)
	case opJump:
		fmt.Fprintf(sb, " block%d", d.dest)
	case opBrif:
		fmt.Fprintf(sb, " block%d, block%d", d.dest, d.alt)
	}
	if d.op == opStackAddr {
		fmt.Fprintf(sb, " ss%d", d.slot)
	}
	for i, a := range d.args {
		if i == 0 && d.op != opJump && d.op != opBrif {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "v%d", a)
	}
	if d.op == opLoad || d.op == opStore || d.op == opStackAddr {
		fmt.Fprintf(sb, "%+d", d.offset)
	}
}

// FunctionBuilder appends instructions to a Function. Misuse (emitting
// into a terminated block, mismatched operand types, reading an
// undeclared variable) is a programming error and panics.
type FunctionBuilder struct {
	fn     *Function
	cur    Block
	hasCur bool
}

// NewFunctionBuilder returns a builder writing into fn.
func NewFunctionBuilder(fn *Function) *FunctionBuilder {
	return &FunctionBuilder{fn: fn}
}

// Func returns the function under construction.
func (b *FunctionBuilder) Func() *Function { return b.fn }

func (b *FunctionBuilder) fail(format string, args ...any) {
	panic(fmt.Sprintf("jit: %s: %s", b.fn.Name, fmt.Sprintf(format, args...)))
}

// CreateBlock adds a new empty block.
func (b *FunctionBuilder) CreateBlock() Block {
	b.fn.blocks = append(b.fn.blocks, blockData{})
	return Block(len(b.fn.blocks) - 1)
}

// AppendBlockParamsForFunctionParams gives blk one parameter per
// signature parameter. It is used on the entry block.
func (b *FunctionBuilder) AppendBlockParamsForFunctionParams(blk Block) {
	for _, p := range b.fn.Sig.Params {
		b.AppendBlockParam(blk, p.Value)
	}
}

// AppendBlockParam adds a parameter of type ty to blk.
func (b *FunctionBuilder) AppendBlockParam(blk Block, ty Type) Value {
	v := b.fn.newValue(ty)
	bd := &b.fn.blocks[blk]
	bd.params = append(bd.params, v)
	return v
}

// BlockParams returns the parameters of blk.
func (b *FunctionBuilder) BlockParams(blk Block) []Value {
	return b.fn.blocks[blk].params
}

// SwitchToBlock directs subsequent instructions to blk.
func (b *FunctionBuilder) SwitchToBlock(blk Block) {
	if int(blk) >= len(b.fn.blocks) {
		b.fail("unknown block%d", blk)
	}
	b.cur = blk
	b.hasCur = true
}

// CurrentBlock returns the block instructions are appended to.
func (b *FunctionBuilder) CurrentBlock() Block { return b.cur }

// IsTerminated reports whether the current block already ends in a
// terminator.
func (b *FunctionBuilder) IsTerminated() bool {
	return b.hasCur && b.fn.blocks[b.cur].terminated
}

// DeclareVar declares variable v with type ty.
func (b *FunctionBuilder) DeclareVar(v Variable, ty Type) {
	for int(v) >= len(b.fn.vars) {
		b.fn.vars = append(b.fn.vars, Invalid)
	}
	if b.fn.vars[v] != Invalid {
		b.fail("variable var%d declared twice", v)
	}
	b.fn.vars[v] = ty
}

func (b *FunctionBuilder) varType(v Variable) Type {
	if int(v) >= len(b.fn.vars) || b.fn.vars[v] == Invalid {
		b.fail("undeclared variable var%d", v)
	}
	return b.fn.vars[v]
}

// DefVar assigns val to v.
func (b *FunctionBuilder) DefVar(v Variable, val Value) {
	ty := b.varType(v)
	if got := b.fn.valueType(val); got != ty {
		b.fail("def_var var%d: value of type %s, variable of type %s", v, got, ty)
	}
	b.append(instData{op: opDefVar, ty: ty, v: v, args: []Value{val}})
}

// UseVar returns the current value of v.
func (b *FunctionBuilder) UseVar(v Variable) Value {
	ty := b.varType(v)
	in := b.append(instData{op: opUseVar, ty: ty, v: v}, ty)
	return b.fn.insts[in].results[0]
}

// CreateStackSlot reserves words machine words in the stack frame.
func (b *FunctionBuilder) CreateStackSlot(words int) StackSlot {
	b.fn.slots = append(b.fn.slots, words)
	return StackSlot(len(b.fn.slots) - 1)
}

// InstResults returns the values defined by in.
func (b *FunctionBuilder) InstResults(in Inst) []Value {
	return b.fn.insts[in].results
}

// ValueType returns the type of v.
func (b *FunctionBuilder) ValueType(v Value) Type { return b.fn.valueType(v) }

// Ins returns the instruction emitter for the current block.
func (b *FunctionBuilder) Ins() InstBuilder { return InstBuilder{b: b} }

func (b *FunctionBuilder) append(d instData, results ...Type) Inst {
	if !b.hasCur {
		b.fail("no current block")
	}
	blk := &b.fn.blocks[b.cur]
	if blk.terminated {
		b.fail("%s after terminator in block%d", opNames[d.op], b.cur)
	}
	for _, ty := range results {
		d.results = append(d.results, b.fn.newValue(ty))
	}
	b.fn.insts = append(b.fn.insts, d)
	in := Inst(len(b.fn.insts) - 1)
	blk.insts = append(blk.insts, in)
	if d.op.isTerminator() {
		blk.terminated = true
	}
	return in
}

// Finalize checks that every block ends in a terminator.
func (b *FunctionBuilder) Finalize() error {
	for i, blk := range b.fn.blocks {
		if !blk.terminated {
			return fmt.Errorf("jit: %s: block%d is not terminated", b.fn.Name, i)
		}
	}
	if len(b.fn.blocks) == 0 {
		return fmt.Errorf("jit: %s: function has no blocks", b.fn.Name)
	}
	return nil
}

// InstBuilder emits instructions into the current block.
type InstBuilder struct {
	b *FunctionBuilder
}

func (ib InstBuilder) one(d instData, ty Type) Value {
	in := ib.b.append(d, ty)
	return ib.b.fn.insts[in].results[0]
}

func (ib InstBuilder) typeOf(v Value) Type { return ib.b.fn.valueType(v) }

func (ib InstBuilder) wantInt(op opcode, vs ...Value) Type {
	ty := ib.typeOf(vs[0])
	if ty != I32 && ty != I64 {
		ib.b.fail("%s: operand of type %s, want i32 or i64", opNames[op], ty)
	}
	for _, v := range vs[1:] {
		if got := ib.typeOf(v); got != ty {
			ib.b.fail("%s: mixed operand types %s and %s", opNames[op], ty, got)
		}
	}
	return ty
}

func (ib InstBuilder) wantFloat(op opcode, vs ...Value) {
	for _, v := range vs {
		if got := ib.typeOf(v); got != F64 {
			ib.b.fail("%s: operand of type %s, want f64", opNames[op], got)
		}
	}
}

// Iconst materializes an integer constant.
func (ib InstBuilder) Iconst(ty Type, v int64) Value {
	if !ty.IsInt() || ty == I128 {
		ib.b.fail("iconst: unsupported type %s", ty)
	}
	u := uint64(v)
	if ty == I32 {
		u = uint64(uint32(v))
	}
	return ib.one(instData{op: opIconst, ty: ty, imm: u}, ty)
}

// F64const materializes a floating point constant.
func (ib InstBuilder) F64const(v float64) Value {
	return ib.one(instData{op: opF64const, ty: F64, imm: math.Float64bits(v)}, F64)
}

// Iconcat joins two i64 halves into an i128.
func (ib InstBuilder) Iconcat(lo, hi Value) Value {
	if ib.typeOf(lo) != I64 || ib.typeOf(hi) != I64 {
		ib.b.fail("iconcat: operands must be i64")
	}
	return ib.one(instData{op: opIconcat, ty: I128, args: []Value{lo, hi}}, I128)
}

func (ib InstBuilder) intBinary(op opcode, x, y Value) Value {
	ty := ib.wantInt(op, x, y)
	return ib.one(instData{op: op, ty: ty, args: []Value{x, y}}, ty)
}

func (ib InstBuilder) shift(op opcode, x, y Value) Value {
	if ib.typeOf(x) != I64 || ib.typeOf(y) != I64 {
		ib.b.fail("%s: operands must be i64", opNames[op])
	}
	return ib.one(instData{op: op, ty: I64, args: []Value{x, y}}, I64)
}

func (ib InstBuilder) Iadd(x, y Value) Value { return ib.intBinary(opIadd, x, y) }
func (ib InstBuilder) Isub(x, y Value) Value { return ib.intBinary(opIsub, x, y) }
func (ib InstBuilder) Imul(x, y Value) Value { return ib.intBinary(opImul, x, y) }
func (ib InstBuilder) Sdiv(x, y Value) Value { return ib.intBinary(opSdiv, x, y) }
func (ib InstBuilder) Srem(x, y Value) Value { return ib.intBinary(opSrem, x, y) }
func (ib InstBuilder) Band(x, y Value) Value { return ib.intBinary(opBand, x, y) }
func (ib InstBuilder) Bor(x, y Value) Value  { return ib.intBinary(opBor, x, y) }
func (ib InstBuilder) Bxor(x, y Value) Value { return ib.intBinary(opBxor, x, y) }

// Ishl shifts left. The shift amount is taken modulo 64.
func (ib InstBuilder) Ishl(x, y Value) Value { return ib.shift(opIshl, x, y) }

// Ushr is a logical right shift.
func (ib InstBuilder) Ushr(x, y Value) Value { return ib.shift(opUshr, x, y) }

// Sshr is an arithmetic right shift.
func (ib InstBuilder) Sshr(x, y Value) Value { return ib.shift(opSshr, x, y) }

func (ib InstBuilder) Ineg(x Value) Value {
	ty := ib.wantInt(opIneg, x)
	return ib.one(instData{op: opIneg, ty: ty, args: []Value{x}}, ty)
}

func (ib InstBuilder) Bnot(x Value) Value {
	ty := ib.wantInt(opBnot, x)
	return ib.one(instData{op: opBnot, ty: ty, args: []Value{x}}, ty)
}

func (ib InstBuilder) floatBinary(op opcode, x, y Value) Value {
	ib.wantFloat(op, x, y)
	return ib.one(instData{op: op, ty: F64, args: []Value{x, y}}, F64)
}

func (ib InstBuilder) Fadd(x, y Value) Value { return ib.floatBinary(opFadd, x, y) }
func (ib InstBuilder) Fsub(x, y Value) Value { return ib.floatBinary(opFsub, x, y) }
func (ib InstBuilder) Fmul(x, y Value) Value { return ib.floatBinary(opFmul, x, y) }
func (ib InstBuilder) Fdiv(x, y Value) Value { return ib.floatBinary(opFdiv, x, y) }

func (ib InstBuilder) Fneg(x Value) Value {
	ib.wantFloat(opFneg, x)
	return ib.one(instData{op: opFneg, ty: F64, args: []Value{x}}, F64)
}

func (ib InstBuilder) Sqrt(x Value) Value {
	ib.wantFloat(opSqrt, x)
	return ib.one(instData{op: opSqrt, ty: F64, args: []Value{x}}, F64)
}

// Icmp compares two integers, producing a b1.
func (ib InstBuilder) Icmp(cc IntCC, x, y Value) Value {
	ty := ib.wantInt(opIcmp, x, y)
	return ib.one(instData{op: opIcmp, ty: ty, cc: uint8(cc), args: []Value{x, y}}, B1)
}

// Fcmp compares two floats, producing a b1.
func (ib InstBuilder) Fcmp(cc FloatCC, x, y Value) Value {
	ib.wantFloat(opFcmp, x, y)
	return ib.one(instData{op: opFcmp, ty: F64, cc: uint8(cc), args: []Value{x, y}}, B1)
}

// Bint widens a b1 to the integer 0 or 1.
func (ib InstBuilder) Bint(ty Type, x Value) Value {
	if ib.typeOf(x) != B1 {
		ib.b.fail("bint: operand must be b1")
	}
	return ib.one(instData{op: opBint, ty: ty, args: []Value{x}}, ty)
}

// FcvtToSintSat converts a float to a signed integer, saturating at the
// bounds of ty. NaN converts to zero.
func (ib InstBuilder) FcvtToSintSat(ty Type, x Value) Value {
	ib.wantFloat(opFcvtToSintSat, x)
	return ib.one(instData{op: opFcvtToSintSat, ty: ty, args: []Value{x}}, ty)
}

// FcvtFromSint converts a signed integer to a float.
func (ib InstBuilder) FcvtFromSint(ty Type, x Value) Value {
	ib.wantInt(opFcvtFromSint, x)
	return ib.one(instData{op: opFcvtFromSint, ty: ty, args: []Value{x}}, ty)
}

// Load reads a value of type ty from address p+offset.
func (ib InstBuilder) Load(ty Type, p Value, offset int32) Value {
	return ib.one(instData{op: opLoad, ty: ty, offset: offset, args: []Value{p}}, ty)
}

// Store writes x to address p+offset.
func (ib InstBuilder) Store(x, p Value, offset int32) Inst {
	return ib.b.append(instData{op: opStore, ty: ib.typeOf(x), offset: offset, args: []Value{x, p}})
}

// StackAddr returns the address of slot plus offset.
func (ib InstBuilder) StackAddr(ty Type, slot StackSlot, offset int32) Value {
	if int(slot) >= len(ib.b.fn.slots) {
		ib.b.fail("unknown stack slot ss%d", slot)
	}
	return ib.one(instData{op: opStackAddr, ty: ty, slot: slot, offset: offset}, ty)
}

// Call calls fref with args. The results are available from InstResults.
func (ib InstBuilder) Call(fref FuncRef, args []Value) Inst {
	if int(fref) >= len(ib.b.fn.refs) {
		ib.b.fail("unknown function reference fn%d", fref)
	}
	sig := &ib.b.fn.refs[fref].sig
	if len(args) != len(sig.Params) {
		ib.b.fail("call fn%d: %d arguments, signature %s", fref, len(args), sig)
	}
	for i, a := range args {
		if got := ib.typeOf(a); got != sig.Params[i].Value {
			ib.b.fail("call fn%d: argument %d has type %s, signature %s", fref, i, got, sig)
		}
	}
	rets := make([]Type, len(sig.Returns))
	for i, r := range sig.Returns {
		rets[i] = r.Value
	}
	return ib.b.append(instData{op: opCall, fref: fref, args: append([]Value(nil), args...)}, rets...)
}

// Jump transfers control to blk, passing args as its parameters.
func (ib InstBuilder) Jump(blk Block, args ...Value) Inst {
	ib.checkBlockArgs(blk, args)
	return ib.b.append(instData{op: opJump, dest: blk, args: append([]Value(nil), args...)})
}

// Brif jumps to then when cond is non-zero and to els otherwise.
func (ib InstBuilder) Brif(cond Value, then, els Block) Inst {
	ib.checkBlockArgs(then, nil)
	ib.checkBlockArgs(els, nil)
	return ib.b.append(instData{op: opBrif, dest: then, alt: els, args: []Value{cond}})
}

func (ib InstBuilder) checkBlockArgs(blk Block, args []Value) {
	if int(blk) >= len(ib.b.fn.blocks) {
		ib.b.fail("unknown block%d", blk)
	}
	params := ib.b.fn.blocks[blk].params
	if len(params) != len(args) {
		ib.b.fail("block%d takes %d arguments, got %d", blk, len(params), len(args))
	}
	for i, a := range args {
		if ib.typeOf(a) != ib.typeOf(params[i]) {
			ib.b.fail("block%d argument %d: type mismatch", blk, i)
		}
	}
}

// Return returns vals from the function.
func (ib InstBuilder) Return(vals ...Value) Inst {
	sig := &ib.b.fn.Sig
	if len(vals) != len(sig.Returns) {
		ib.b.fail("return: %d values, signature %s", len(vals), sig)
	}
	for i, v := range vals {
		if got := ib.typeOf(v); got != sig.Returns[i].Value {
			ib.b.fail("return: value %d has type %s, signature %s", i, got, sig)
		}
	}
	return ib.b.append(instData{op: opReturn, args: append([]Value(nil), vals...)})
}
