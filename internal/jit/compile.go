package jit

import (
	"fmt"
	"math"
)

// Function bodies are compiled into closures. Every SSA value, variable and
// call site gets a fixed offset in a per-call frame of machine words, and
// each instruction becomes a step reading and writing those offsets.
// Terminators return the index of the next block, or -1 to return.

type frame struct {
	regs []uint64
	sp   uint64 // byte address of this call's stack slots
	inst *Instance
	rets []uint64
}

type step func(fr *frame)

type compiledBlock struct {
	steps []step
	term  func(fr *frame) int
}

type span struct{ off, n int }

type compiledFunc struct {
	name       string
	frameWords int
	stackWords int
	params     []span
	blocks     []compiledBlock

	code   []byte      // x86-64 form, if the function has one
	native *nativeCode // code mapped for execution
	retOff int         // frame offset of the results left by code
}

type compiler struct {
	m       *Module
	fn      *Function
	off     []int
	varOff  []int
	slotOff []int
	words   int
}

func compile(m *Module, fn *Function) (*compiledFunc, error) {
	if len(fn.blocks) == 0 {
		return nil, &ModuleError{Name: fn.Name, Msg: "function has no blocks"}
	}
	for i, b := range fn.blocks {
		if !b.terminated {
			return nil, &ModuleError{Name: fn.Name, Msg: fmt.Sprintf("block%d is not terminated", i)}
		}
	}
	entry := fn.blocks[0].params
	if len(entry) != len(fn.Sig.Params) {
		return nil, &ModuleError{Name: fn.Name, Msg: "entry block parameters do not match the signature"}
	}
	for i, p := range entry {
		if fn.values[p] != fn.Sig.Params[i].Value {
			return nil, &ModuleError{Name: fn.Name, Msg: fmt.Sprintf("entry parameter %d has type %s", i, fn.values[p])}
		}
	}

	c := &compiler{m: m, fn: fn}
	c.layout()

	cf := &compiledFunc{
		name:   fn.Name,
		blocks: make([]compiledBlock, len(fn.blocks)),
	}
	for _, p := range entry {
		cf.params = append(cf.params, span{c.off[p], fn.values[p].Words()})
	}
	for _, w := range fn.slots {
		c.slotOff = append(c.slotOff, cf.stackWords)
		cf.stackWords += w
	}
	for bi, b := range fn.blocks {
		cb := &cf.blocks[bi]
		for _, in := range b.insts {
			d := &fn.insts[in]
			if d.op.isTerminator() {
				cb.term = c.terminator(d)
				continue
			}
			cb.steps = append(cb.steps, c.step(d))
		}
	}
	if m.target.Arch == "amd64" {
		if code, retOff, ok := c.lowerX86(); ok {
			cf.code, cf.retOff = code, retOff
			if m.native {
				// Without executable pages the closures still run.
				cf.native, _ = mapCode(code)
			}
		}
	}
	cf.frameWords = c.words
	return cf, nil
}

func (c *compiler) layout() {
	c.off = make([]int, len(c.fn.values))
	for v, ty := range c.fn.values {
		c.off[v] = c.words
		c.words += ty.Words()
	}
	c.varOff = make([]int, len(c.fn.vars))
	for v, ty := range c.fn.vars {
		c.varOff[v] = c.words
		c.words += ty.Words()
	}
}

// alloc reserves n scratch words in the frame.
func (c *compiler) alloc(n int) int {
	at := c.words
	c.words += n
	return at
}

func (c *compiler) arg(d *instData, i int) int { return c.off[d.args[i]] }
func (c *compiler) res(d *instData) int        { return c.off[d.results[0]] }

func (c *compiler) spans(vs []Value) []span {
	out := make([]span, len(vs))
	for i, v := range vs {
		out[i] = span{c.off[v], c.fn.values[v].Words()}
	}
	return out
}

func sext32(x uint64) uint64 { return uint64(int64(int32(uint32(x)))) }

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

//nolint:gocyclo // one case per opcode
func (c *compiler) step(d *instData) step {
	switch d.op {
	case opIconst, opF64const:
		o, imm := c.res(d), d.imm
		return func(fr *frame) { fr.regs[o] = imm }

	case opIconcat:
		o, lo, hi := c.res(d), c.arg(d, 0), c.arg(d, 1)
		return func(fr *frame) {
			fr.regs[o] = fr.regs[lo]
			fr.regs[o+1] = fr.regs[hi]
		}

	case opIadd, opIsub, opImul, opSdiv, opSrem, opBand, opBor, opBxor:
		return c.intBinary(d)

	case opIshl:
		o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
		return func(fr *frame) { fr.regs[o] = fr.regs[a] << (fr.regs[b] & 63) }
	case opUshr:
		o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
		return func(fr *frame) { fr.regs[o] = fr.regs[a] >> (fr.regs[b] & 63) }
	case opSshr:
		o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
		return func(fr *frame) { fr.regs[o] = uint64(int64(fr.regs[a]) >> (fr.regs[b] & 63)) }

	case opIneg:
		o, a := c.res(d), c.arg(d, 0)
		if d.ty == I32 {
			return func(fr *frame) { fr.regs[o] = uint64(uint32(-fr.regs[a])) }
		}
		return func(fr *frame) { fr.regs[o] = -fr.regs[a] }
	case opBnot:
		o, a := c.res(d), c.arg(d, 0)
		if d.ty == I32 {
			return func(fr *frame) { fr.regs[o] = uint64(^uint32(fr.regs[a])) }
		}
		return func(fr *frame) { fr.regs[o] = ^fr.regs[a] }

	case opFadd, opFsub, opFmul, opFdiv:
		return c.floatBinary(d)
	case opFneg:
		o, a := c.res(d), c.arg(d, 0)
		return func(fr *frame) { fr.regs[o] = math.Float64bits(-math.Float64frombits(fr.regs[a])) }
	case opSqrt:
		o, a := c.res(d), c.arg(d, 0)
		return func(fr *frame) { fr.regs[o] = math.Float64bits(math.Sqrt(math.Float64frombits(fr.regs[a]))) }

	case opIcmp:
		return c.icmp(d)
	case opFcmp:
		return c.fcmp(d)

	case opBint:
		o, a := c.res(d), c.arg(d, 0)
		return func(fr *frame) { fr.regs[o] = fr.regs[a] & 1 }

	case opFcvtToSintSat:
		o, a := c.res(d), c.arg(d, 0)
		if d.ty == I32 {
			return func(fr *frame) { fr.regs[o] = uint64(uint32(satInt(math.Float64frombits(fr.regs[a]), math.MinInt32, math.MaxInt32))) }
		}
		return func(fr *frame) { fr.regs[o] = uint64(satInt(math.Float64frombits(fr.regs[a]), math.MinInt64, math.MaxInt64)) }
	case opFcvtFromSint:
		o, a := c.res(d), c.arg(d, 0)
		if c.fn.values[d.args[0]] == I32 {
			return func(fr *frame) { fr.regs[o] = math.Float64bits(float64(int64(sext32(fr.regs[a])))) }
		}
		return func(fr *frame) { fr.regs[o] = math.Float64bits(float64(int64(fr.regs[a]))) }

	case opLoad:
		o, p, off, n := c.res(d), c.arg(d, 0), uint64(int64(d.offset)), d.ty.Words()
		if n == 1 {
			return func(fr *frame) { fr.regs[o] = fr.inst.mem.Load(fr.regs[p] + off) }
		}
		return func(fr *frame) {
			addr := fr.regs[p] + off
			for k := 0; k < n; k++ {
				fr.regs[o+k] = fr.inst.mem.Load(addr + uint64(k)*8)
			}
		}
	case opStore:
		v, p, off, n := c.arg(d, 0), c.arg(d, 1), uint64(int64(d.offset)), d.ty.Words()
		if n == 1 {
			return func(fr *frame) { fr.inst.mem.Store(fr.regs[p]+off, fr.regs[v]) }
		}
		return func(fr *frame) {
			addr := fr.regs[p] + off
			for k := 0; k < n; k++ {
				fr.inst.mem.Store(addr+uint64(k)*8, fr.regs[v+k])
			}
		}
	case opStackAddr:
		o := c.res(d)
		rel := uint64(c.slotOff[d.slot]*8) + uint64(int64(d.offset))
		return func(fr *frame) { fr.regs[o] = fr.sp + rel }

	case opCall:
		return c.call(d)

	case opUseVar:
		o, src, n := c.res(d), c.varOff[d.v], d.ty.Words()
		return func(fr *frame) { copy(fr.regs[o:o+n], fr.regs[src:src+n]) }
	case opDefVar:
		dst, src, n := c.varOff[d.v], c.arg(d, 0), d.ty.Words()
		return func(fr *frame) { copy(fr.regs[dst:dst+n], fr.regs[src:src+n]) }
	}
	panic(fmt.Sprintf("jit: %s: cannot compile %s", c.fn.Name, opNames[d.op]))
}

func (c *compiler) intBinary(d *instData) step {
	o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
	var f func(x, y uint64) uint64
	switch d.op {
	case opIadd:
		f = func(x, y uint64) uint64 { return x + y }
	case opIsub:
		f = func(x, y uint64) uint64 { return x - y }
	case opImul:
		f = func(x, y uint64) uint64 { return x * y }
	case opSdiv:
		f = func(x, y uint64) uint64 {
			if y == 0 {
				panic(&Trap{Code: TrapIntegerDivisionByZero})
			}
			return uint64(int64(x) / int64(y))
		}
	case opSrem:
		f = func(x, y uint64) uint64 {
			if y == 0 {
				panic(&Trap{Code: TrapIntegerDivisionByZero})
			}
			return uint64(int64(x) % int64(y))
		}
	case opBand:
		f = func(x, y uint64) uint64 { return x & y }
	case opBor:
		f = func(x, y uint64) uint64 { return x | y }
	case opBxor:
		f = func(x, y uint64) uint64 { return x ^ y }
	}
	if d.ty == I32 {
		return func(fr *frame) { fr.regs[o] = uint64(uint32(f(sext32(fr.regs[a]), sext32(fr.regs[b])))) }
	}
	return func(fr *frame) { fr.regs[o] = f(fr.regs[a], fr.regs[b]) }
}

func (c *compiler) floatBinary(d *instData) step {
	o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
	var f func(x, y float64) float64
	switch d.op {
	case opFadd:
		f = func(x, y float64) float64 { return x + y }
	case opFsub:
		f = func(x, y float64) float64 { return x - y }
	case opFmul:
		f = func(x, y float64) float64 { return x * y }
	case opFdiv:
		f = func(x, y float64) float64 { return x / y }
	}
	return func(fr *frame) {
		fr.regs[o] = math.Float64bits(f(math.Float64frombits(fr.regs[a]), math.Float64frombits(fr.regs[b])))
	}
}

func (c *compiler) icmp(d *instData) step {
	o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
	var f func(x, y int64) bool
	switch IntCC(d.cc) {
	case IntEqual:
		f = func(x, y int64) bool { return x == y }
	case IntNotEqual:
		f = func(x, y int64) bool { return x != y }
	case SignedLessThan:
		f = func(x, y int64) bool { return x < y }
	case SignedLessThanOrEqual:
		f = func(x, y int64) bool { return x <= y }
	case SignedGreaterThan:
		f = func(x, y int64) bool { return x > y }
	case SignedGreaterThanOrEqual:
		f = func(x, y int64) bool { return x >= y }
	}
	if d.ty == I32 {
		return func(fr *frame) { fr.regs[o] = b2u(f(int64(sext32(fr.regs[a])), int64(sext32(fr.regs[b])))) }
	}
	return func(fr *frame) { fr.regs[o] = b2u(f(int64(fr.regs[a]), int64(fr.regs[b]))) }
}

// Go float comparisons are ordered, so every condition is false on NaN.
func (c *compiler) fcmp(d *instData) step {
	o, a, b := c.res(d), c.arg(d, 0), c.arg(d, 1)
	var f func(x, y float64) bool
	switch FloatCC(d.cc) {
	case FloatEqual:
		f = func(x, y float64) bool { return x == y }
	case FloatLessThan:
		f = func(x, y float64) bool { return x < y }
	case FloatLessThanOrEqual:
		f = func(x, y float64) bool { return x <= y }
	case FloatGreaterThan:
		f = func(x, y float64) bool { return x > y }
	case FloatGreaterThanOrEqual:
		f = func(x, y float64) bool { return x >= y }
	}
	return func(fr *frame) {
		fr.regs[o] = b2u(f(math.Float64frombits(fr.regs[a]), math.Float64frombits(fr.regs[b])))
	}
}

func satInt(f float64, lo, hi int64) int64 {
	switch {
	case f != f:
		return 0
	case f >= float64(hi):
		return hi
	case f <= float64(lo):
		return lo
	}
	return int64(f)
}

func (c *compiler) call(d *instData) step {
	ext := c.fn.refs[d.fref]
	decl := c.m.funcs[ext.id]
	nargs := ext.sig.paramWords()
	nrets := ext.sig.returnWords()
	argBase := c.alloc(nargs)
	moves := c.spans(d.args)
	retBase := 0
	if len(d.results) > 0 {
		retBase = c.off[d.results[0]] // results are allocated contiguously
	}
	return func(fr *frame) {
		regs := fr.regs
		at := argBase
		for _, mv := range moves {
			copy(regs[at:at+mv.n], regs[mv.off:mv.off+mv.n])
			at += mv.n
		}
		args := regs[argBase : argBase+nargs]
		rets := regs[retBase : retBase+nrets]
		if decl.host != nil {
			decl.host(&fr.inst.ctx, args, rets)
			return
		}
		fr.inst.invoke(decl.body, args, rets)
	}
}

func (c *compiler) terminator(d *instData) func(fr *frame) int {
	switch d.op {
	case opJump:
		dest := int(d.dest)
		if len(d.args) == 0 {
			return func(*frame) int { return dest }
		}
		srcs := c.spans(d.args)
		dsts := c.spans(c.fn.blocks[d.dest].params)
		total := 0
		for _, s := range srcs {
			total += s.n
		}
		tmp := c.alloc(total)
		return func(fr *frame) int {
			at := tmp
			for _, s := range srcs {
				copy(fr.regs[at:at+s.n], fr.regs[s.off:s.off+s.n])
				at += s.n
			}
			at = tmp
			for _, p := range dsts {
				copy(fr.regs[p.off:p.off+p.n], fr.regs[at:at+p.n])
				at += p.n
			}
			return dest
		}

	case opBrif:
		cond, then, els := c.arg(d, 0), int(d.dest), int(d.alt)
		return func(fr *frame) int {
			if fr.regs[cond] != 0 {
				return then
			}
			return els
		}

	case opReturn:
		srcs := c.spans(d.args)
		return func(fr *frame) int {
			at := 0
			for _, s := range srcs {
				copy(fr.rets[at:at+s.n], fr.regs[s.off:s.off+s.n])
				at += s.n
			}
			return -1
		}
	}
	panic(fmt.Sprintf("jit: %s: %s is not a terminator", c.fn.Name, opNames[d.op]))
}

func (in *Instance) invoke(cf *compiledFunc, args, rets []uint64) {
	if in.depth >= maxCallDepth {
		panic(&Trap{Code: TrapStackOverflow})
	}
	in.depth++
	fr := frame{
		regs: make([]uint64, max(cf.frameWords, 1)),
		inst: in,
		rets: rets,
	}
	at := 0
	for _, p := range cf.params {
		copy(fr.regs[p.off:p.off+p.n], args[at:at+p.n])
		at += p.n
	}
	if cf.native != nil {
		cf.native.run(fr.regs)
		copy(rets, fr.regs[cf.retOff:])
		in.depth--
		return
	}
	fr.sp = in.mem.push(cf.stackWords)
	for blk := 0; blk >= 0; {
		b := &cf.blocks[blk]
		for _, s := range b.steps {
			s(&fr)
		}
		blk = b.term(&fr)
	}
	in.mem.pop(fr.sp)
	in.depth--
}
