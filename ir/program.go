package ir

import (
	"fmt"
	"strings"
)

// Func is one IR function.
type Func struct {
	// Name is used in diagnostics and as the symbol name in the JIT module.
	Name string

	// Params are the registers bound to the call arguments, in order.
	Params []Ref

	// Ret is the return type. Null means the function returns nothing.
	Ret Ty

	// Instrs is the function body. It must end in a Ret on every path.
	Instrs []Instr

	prog      *Program
	nextLabel LabelID
}

// Program is a complete compiled program.
type Program struct {
	// Funcs lists every function; Call instructions refer to them by index.
	Funcs []*Func

	// Globals are registers that live in process-wide memory and are
	// shared by every function.
	Globals []Ref

	// Main is the index of the entry function. It takes no parameters.
	Main int

	nextReg NumTy
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NewFunc appends a function to the program and returns it.
func (p *Program) NewFunc(name string, ret Ty) *Func {
	f := &Func{Name: name, Ret: ret, prog: p}
	p.Funcs = append(p.Funcs, f)
	return f
}

// Global allocates a new global register.
func (p *Program) Global(ty Ty) Ref {
	r := p.reg(ty)
	p.Globals = append(p.Globals, r)
	return r
}

func (p *Program) reg(ty Ty) Ref {
	p.nextReg++
	return Ref{ID: p.nextReg, Ty: ty}
}

// Reg allocates a new register local to f. Functions created outside of
// NewFunc allocate from their own counter.
func (f *Func) Reg(ty Ty) Ref {
	if f.prog == nil {
		f.prog = &Program{nextReg: 1 << 24}
	}
	return f.prog.reg(ty)
}

// Param allocates a new register and appends it to the parameter list.
func (f *Func) Param(ty Ty) Ref {
	r := f.Reg(ty)
	f.Params = append(f.Params, r)
	return r
}

// NewLabel allocates a fresh label.
func (f *Func) NewLabel() LabelID {
	f.nextLabel++
	return f.nextLabel
}

// Emit appends instructions to the body.
func (f *Func) Emit(instrs ...Instr) {
	f.Instrs = append(f.Instrs, instrs...)
}

// Locals returns every non-global register mentioned by f, parameters
// first, then in order of first appearance.
func (f *Func) Locals(globals map[Ref]bool) []Ref {
	seen := make(map[Ref]bool)
	var out []Ref
	add := func(rs []Ref) {
		for _, r := range rs {
			if r.Ty == Null || globals[r] || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	add(f.Params)
	for _, in := range f.Instrs {
		add(in.Defs())
		add(in.Uses())
	}
	return out
}

// GlobalSet returns the globals as a set.
func (p *Program) GlobalSet() map[Ref]bool {
	set := make(map[Ref]bool, len(p.Globals))
	for _, g := range p.Globals {
		set[g] = true
	}
	return set
}

// Literals returns every distinct text literal in the program in order of
// first appearance.
func (p *Program) Literals() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range p.Funcs {
		for _, in := range f.Instrs {
			if c, ok := in.(*StoreConstStr); ok && !seen[c.Val] {
				seen[c.Val] = true
				out = append(out, c.Val)
			}
		}
	}
	return out
}

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	if len(p.Globals) > 0 {
		sb.WriteString("=== Globals ===\n")
		for _, g := range p.Globals {
			fmt.Fprintf(&sb, "  %s\n", g)
		}
		sb.WriteString("\n")
	}

	for i, f := range p.Funcs {
		marker := ""
		if i == p.Main {
			marker = " (main)"
		}
		fmt.Fprintf(&sb, "=== f%d %s(%s) %s%s ===\n", i, f.Name, joinRefs(f.Params), f.Ret, marker)
		for j, in := range f.Instrs {
			if _, ok := in.(*Label); ok {
				fmt.Fprintf(&sb, "%s\n", in)
				continue
			}
			fmt.Fprintf(&sb, "  %04d  %s\n", j, in)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
