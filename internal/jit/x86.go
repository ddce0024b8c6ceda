package jit

import "encoding/binary"

// Leaf functions made only of word-sized integer arithmetic, comparisons,
// variables and branches are also lowered to x86-64 machine code. The
// code keeps the frame layout of the closure compiler: DI holds the
// address of the frame's first word, every value lives at its frame
// offset, and each instruction loads its operands into AX and CX, computes
// and stores the result back. A return copies the results to a dedicated
// area of the frame before RET.

type x86Reg byte

const (
	rax x86Reg = 0
	rcx x86Reg = 1
)

const rexW = 0x48

type x86Fixup struct {
	at    int // offset of a rel32 field
	block Block
}

type x86Asm struct {
	code   []byte
	blocks []int
	fixups []x86Fixup
}

func (a *x86Asm) emit(b ...byte) { a.code = append(a.code, b...) }

// disp appends the [rdi+disp32] displacement of frame word w.
func (a *x86Asm) disp(w int) {
	a.code = binary.LittleEndian.AppendUint32(a.code, uint32(int32(w*8)))
}

// load emits mov r, [rdi+8*w].
func (a *x86Asm) load(r x86Reg, w int) {
	a.emit(rexW, 0x8B, 0x87|byte(r)<<3)
	a.disp(w)
}

// store emits mov [rdi+8*w], r.
func (a *x86Asm) store(w int, r x86Reg) {
	a.emit(rexW, 0x89, 0x87|byte(r)<<3)
	a.disp(w)
}

func (a *x86Asm) copyWords(dst, src, n int) {
	for k := 0; k < n; k++ {
		a.load(rax, src+k)
		a.store(dst+k, rax)
	}
}

// movImm emits mov rax, imm64.
func (a *x86Asm) movImm(v uint64) {
	a.emit(rexW, 0xB8)
	a.code = binary.LittleEndian.AppendUint64(a.code, v)
}

// branch emits a jump with a rel32 operand resolved by patch.
func (a *x86Asm) branch(blk Block, op ...byte) {
	a.emit(op...)
	a.fixups = append(a.fixups, x86Fixup{at: len(a.code), block: blk})
	a.emit(0, 0, 0, 0)
}

func (a *x86Asm) patch() {
	for _, f := range a.fixups {
		rel := a.blocks[f.block] - (f.at + 4)
		binary.LittleEndian.PutUint32(a.code[f.at:], uint32(int32(rel)))
	}
}

// ALU forms on rax, rcx. The result is left in rax.
var x86Binary = map[opcode][]byte{
	opIadd: {rexW, 0x01, 0xC8},       // add rax, rcx
	opIsub: {rexW, 0x29, 0xC8},       // sub rax, rcx
	opImul: {rexW, 0x0F, 0xAF, 0xC1}, // imul rax, rcx
	opBand: {rexW, 0x21, 0xC8},       // and rax, rcx
	opBor:  {rexW, 0x09, 0xC8},       // or rax, rcx
	opBxor: {rexW, 0x31, 0xC8},       // xor rax, rcx
	opIshl: {rexW, 0xD3, 0xE0},       // shl rax, cl
	opUshr: {rexW, 0xD3, 0xE8},       // shr rax, cl
	opSshr: {rexW, 0xD3, 0xF8},       // sar rax, cl
}

var x86Setcc = [...]byte{
	IntEqual:                 0x94,
	IntNotEqual:              0x95,
	SignedLessThan:           0x9C,
	SignedLessThanOrEqual:    0x9E,
	SignedGreaterThan:        0x9F,
	SignedGreaterThanOrEqual: 0x9D,
}

// x86Leaf reports whether every instruction of the function has a
// machine code form.
func (c *compiler) x86Leaf() bool {
	for i := range c.fn.insts {
		d := &c.fn.insts[i]
		switch d.op {
		case opIconst, opF64const, opIconcat, opBint, opUseVar, opDefVar, opJump, opBrif, opReturn:
		case opIadd, opIsub, opImul, opBand, opBor, opBxor, opIshl, opUshr, opSshr, opIneg, opBnot, opIcmp:
			if d.ty != I64 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// lowerX86 returns the machine code of the function and the frame offset
// its results are returned at, or ok == false when the function uses an
// instruction without a machine code form. It reserves frame words, so it
// runs before the frame size is fixed.
func (c *compiler) lowerX86() (code []byte, retOff int, ok bool) {
	if !c.x86Leaf() {
		return nil, 0, false
	}
	retOff = c.alloc(c.fn.Sig.returnWords())
	a := &x86Asm{blocks: make([]int, len(c.fn.blocks))}
	for bi, b := range c.fn.blocks {
		a.blocks[bi] = len(a.code)
		for _, in := range b.insts {
			c.x86Inst(a, &c.fn.insts[in], retOff)
		}
	}
	a.patch()
	return a.code, retOff, true
}

func (c *compiler) x86Inst(a *x86Asm, d *instData, retOff int) {
	switch d.op {
	case opIconst, opF64const:
		a.movImm(d.imm)
		a.store(c.res(d), rax)

	case opIconcat:
		o := c.res(d)
		a.copyWords(o, c.arg(d, 0), 1)
		a.copyWords(o+1, c.arg(d, 1), 1)

	case opIadd, opIsub, opImul, opBand, opBor, opBxor, opIshl, opUshr, opSshr:
		a.load(rax, c.arg(d, 0))
		a.load(rcx, c.arg(d, 1))
		a.emit(x86Binary[d.op]...)
		a.store(c.res(d), rax)

	case opIneg, opBnot:
		a.load(rax, c.arg(d, 0))
		if d.op == opIneg {
			a.emit(rexW, 0xF7, 0xD8) // neg rax
		} else {
			a.emit(rexW, 0xF7, 0xD0) // not rax
		}
		a.store(c.res(d), rax)

	case opIcmp:
		a.load(rax, c.arg(d, 0))
		a.load(rcx, c.arg(d, 1))
		a.emit(rexW, 0x39, 0xC8)           // cmp rax, rcx
		a.emit(0x0F, x86Setcc[d.cc], 0xC0) // setcc al
		a.emit(0x0F, 0xB6, 0xC0)           // movzx eax, al
		a.store(c.res(d), rax)

	case opBint:
		a.load(rax, c.arg(d, 0))
		a.emit(rexW, 0x83, 0xE0, 0x01) // and rax, 1
		a.store(c.res(d), rax)

	case opUseVar:
		a.copyWords(c.res(d), c.varOff[d.v], d.ty.Words())
	case opDefVar:
		a.copyWords(c.varOff[d.v], c.arg(d, 0), d.ty.Words())

	case opJump:
		// Block arguments may name the destination's own parameters, so
		// they travel through scratch words.
		srcs := c.spans(d.args)
		total := 0
		for _, s := range srcs {
			total += s.n
		}
		tmp := c.alloc(total)
		at := tmp
		for _, s := range srcs {
			a.copyWords(at, s.off, s.n)
			at += s.n
		}
		at = tmp
		for _, p := range c.spans(c.fn.blocks[d.dest].params) {
			a.copyWords(p.off, at, p.n)
			at += p.n
		}
		a.branch(d.dest, 0xE9) // jmp rel32

	case opBrif:
		a.load(rax, c.arg(d, 0))
		a.emit(rexW, 0x85, 0xC0)     // test rax, rax
		a.branch(d.dest, 0x0F, 0x85) // jnz rel32
		a.branch(d.alt, 0xE9)

	case opReturn:
		at := retOff
		for _, s := range c.spans(d.args) {
			a.copyWords(at, s.off, s.n)
			at += s.n
		}
		a.emit(0xC3) // ret
	}
}
