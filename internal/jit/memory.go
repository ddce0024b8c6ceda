package jit

import "fmt"

// DefaultStackWords is the call stack size used when Instantiate is given
// no explicit size.
const DefaultStackWords = 1 << 16

// maxCallDepth bounds recursion of generated functions.
const maxCallDepth = 10000

// Memory is the linear memory of one instance. It is addressed in bytes
// but accessed a word at a time; every address must be 8-aligned. Address
// zero is never valid. Data objects occupy the low end and the call stack
// follows them.
type Memory struct {
	words     []uint64
	stackBase uint64 // first stack word index
	sp        uint64 // next free stack word index
}

func newMemory(dataWords, stackWords int) *Memory {
	base := uint64(1 + dataWords)
	return &Memory{
		words:     make([]uint64, int(base)+stackWords),
		stackBase: base,
		sp:        base,
	}
}

// Load reads the word at addr.
func (m *Memory) Load(addr uint64) uint64 {
	return m.words[m.index(addr)]
}

// Store writes the word at addr.
func (m *Memory) Store(addr, v uint64) {
	m.words[m.index(addr)] = v
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint64 { return uint64(len(m.words)) * 8 }

func (m *Memory) index(addr uint64) uint64 {
	if addr == 0 || addr&7 != 0 || addr>>3 >= uint64(len(m.words)) {
		panic(&Trap{Code: TrapHeapOutOfBounds, Addr: addr})
	}
	return addr >> 3
}

// push reserves n zeroed stack words and returns their byte address.
func (m *Memory) push(n int) uint64 {
	if n == 0 {
		return m.sp << 3
	}
	end := m.sp + uint64(n)
	if end > uint64(len(m.words)) {
		panic(&Trap{Code: TrapStackOverflow})
	}
	clear(m.words[m.sp:end])
	base := m.sp << 3
	m.sp = end
	return base
}

func (m *Memory) pop(base uint64) { m.sp = base >> 3 }

func (m *Memory) reset() { m.sp = m.stackBase }

// TrapCode identifies the kind of fault raised by generated code.
type TrapCode uint8

const (
	TrapIntegerDivisionByZero TrapCode = iota + 1
	TrapHeapOutOfBounds
	TrapStackOverflow
	TrapHost
)

func (c TrapCode) String() string {
	switch c {
	case TrapIntegerDivisionByZero:
		return "integer division by zero"
	case TrapHeapOutOfBounds:
		return "heap out of bounds"
	case TrapStackOverflow:
		return "stack overflow"
	case TrapHost:
		return "host function fault"
	}
	return fmt.Sprintf("trap(%d)", uint8(c))
}

// Trap is returned by Instance.Call when generated code faults.
type Trap struct {
	Code TrapCode
	Func string // entry function of the faulting call
	Addr uint64 // faulting address for memory traps
	Err  error  // underlying panic for host traps
}

func (t *Trap) Error() string {
	msg := "jit: trap"
	if t.Func != "" {
		msg += " in " + t.Func
	}
	msg += ": " + t.Code.String()
	switch {
	case t.Code == TrapHeapOutOfBounds:
		msg += fmt.Sprintf(" at %#x", t.Addr)
	case t.Err != nil:
		msg += ": " + t.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying host error.
func (t *Trap) Unwrap() error { return t.Err }
