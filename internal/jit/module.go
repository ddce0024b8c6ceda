package jit

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/btree"
)

// Linkage is the visibility of a declared function.
type Linkage uint8

const (
	// Import resolves the function from the builder's symbols.
	Import Linkage = iota
	// Local is defined in the module and not callable from outside.
	Local
	// Export is defined in the module and callable through Instance.Call.
	Export
)

func (l Linkage) String() string {
	switch l {
	case Import:
		return "import"
	case Local:
		return "local"
	case Export:
		return "export"
	}
	return fmt.Sprintf("linkage(%d)", uint8(l))
}

// FuncID identifies a function declared in a module.
type FuncID uint32

// DataID identifies a data object declared in a module.
type DataID uint32

// ModuleError reports an invalid declaration or definition.
type ModuleError struct {
	Name string
	Msg  string
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("jit: %s: %s", e.Name, e.Msg)
}

// ErrFinalized is returned when a finalized module is modified.
var ErrFinalized = errors.New("jit: module is finalized")

type funcDecl struct {
	id      FuncID
	name    string
	linkage Linkage
	sig     Signature
	addr    uintptr
	host    HostFunc
	src     *Function
	body    *compiledFunc
}

type dataDecl struct {
	id    DataID
	name  string
	addr  uint64
	words int
}

// SymbolKind distinguishes functions from data in the symbol table.
type SymbolKind uint8

const (
	SymFunc SymbolKind = iota
	SymData
)

// Symbol is one entry of a module's symbol table.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Linkage Linkage // functions only
	Func    FuncID  // functions only
	Addr    uint64  // data address, or host address of an import
	Sig     string  // functions only
}

type symbolEntry struct {
	name string
	fn   *funcDecl
	data *dataDecl
}

func lessSymbol(a, b *symbolEntry) bool { return a.name < b.name }

// Module is a collection of functions and data objects.
type Module struct {
	target    TargetConfig
	symbols   map[string]uintptr
	funcs     []*funcDecl
	data      []*dataDecl
	names     *btree.BTreeG[*symbolEntry]
	dataWords int
	finalized bool
	native    bool // run machine code where a function has it
}

// NewModule returns an empty module importing the symbols of b.
func NewModule(b *Builder) *Module {
	syms := make(map[string]uintptr, len(b.symbols))
	for k, v := range b.symbols {
		syms[k] = v
	}
	return &Module{
		target:  b.target,
		symbols: syms,
		names:   btree.NewG(8, lessSymbol),
		native:  hostExec && b.target.Arch == runtime.GOARCH,
	}
}

// TargetConfig returns the target the module generates code for.
func (m *Module) TargetConfig() TargetConfig { return m.target }

func (m *Module) lookup(name string) (*symbolEntry, bool) {
	return m.names.Get(&symbolEntry{name: name})
}

// DeclareFunction declares a function. Declaring an existing name again
// with the same linkage and signature returns the existing ID; any other
// redeclaration is an error. Imports must name a symbol known to the
// builder.
func (m *Module) DeclareFunction(name string, linkage Linkage, sig *Signature) (FuncID, error) {
	if m.finalized {
		return 0, ErrFinalized
	}
	if e, ok := m.lookup(name); ok {
		if e.fn == nil {
			return 0, &ModuleError{Name: name, Msg: "already declared as data"}
		}
		if e.fn.linkage != linkage {
			return 0, &ModuleError{Name: name, Msg: fmt.Sprintf("redeclared as %s, previously %s", linkage, e.fn.linkage)}
		}
		if !e.fn.sig.Equal(sig) {
			return 0, &ModuleError{Name: name, Msg: fmt.Sprintf("incompatible signature %s, previously %s", sig, &e.fn.sig)}
		}
		return e.fn.id, nil
	}

	d := &funcDecl{
		id:      FuncID(len(m.funcs)),
		name:    name,
		linkage: linkage,
		sig:     sig.Clone(),
	}
	if linkage == Import {
		addr, ok := m.symbols[name]
		if !ok {
			return 0, &ModuleError{Name: name, Msg: "undefined symbol"}
		}
		host, ok := hostAt(addr)
		if !ok {
			return 0, &ModuleError{Name: name, Msg: fmt.Sprintf("no host function at %#x", addr)}
		}
		d.addr, d.host = addr, host
	}
	m.funcs = append(m.funcs, d)
	m.names.ReplaceOrInsert(&symbolEntry{name: name, fn: d})
	return d.id, nil
}

// DeclareData reserves words zero-initialized machine words and returns
// the object's address in every instance's memory.
func (m *Module) DeclareData(name string, words int) (DataID, uint64, error) {
	if m.finalized {
		return 0, 0, ErrFinalized
	}
	if _, ok := m.lookup(name); ok {
		return 0, 0, &ModuleError{Name: name, Msg: "duplicate symbol"}
	}
	if words <= 0 {
		return 0, 0, &ModuleError{Name: name, Msg: "data object must have positive size"}
	}
	d := &dataDecl{
		id:    DataID(len(m.data)),
		name:  name,
		addr:  uint64(1+m.dataWords) * 8,
		words: words,
	}
	m.dataWords += words
	m.data = append(m.data, d)
	m.names.ReplaceOrInsert(&symbolEntry{name: name, data: d})
	return d.id, d.addr, nil
}

// DeclareFuncInFunc makes the function id callable from fn.
func (m *Module) DeclareFuncInFunc(id FuncID, fn *Function) FuncRef {
	d := m.funcs[id]
	for i, r := range fn.refs {
		if r.id == id {
			return FuncRef(i)
		}
	}
	fn.refs = append(fn.refs, extFunc{id: id, sig: d.sig.Clone()})
	return FuncRef(len(fn.refs) - 1)
}

// DefineFunction compiles fn as the body of id.
func (m *Module) DefineFunction(id FuncID, fn *Function) error {
	if m.finalized {
		return ErrFinalized
	}
	if int(id) >= len(m.funcs) {
		return &ModuleError{Name: fn.Name, Msg: fmt.Sprintf("unknown function id %d", id)}
	}
	d := m.funcs[id]
	switch {
	case d.linkage == Import:
		return &ModuleError{Name: d.name, Msg: "cannot define an imported function"}
	case d.body != nil:
		return &ModuleError{Name: d.name, Msg: "duplicate definition"}
	case !d.sig.Equal(&fn.Sig):
		return &ModuleError{Name: d.name, Msg: fmt.Sprintf("body signature %s does not match declaration %s", &fn.Sig, &d.sig)}
	}
	body, err := compile(m, fn)
	if err != nil {
		return err
	}
	d.src, d.body = fn, body
	return nil
}

// Finalize checks that every local function has a body and seals the
// module.
func (m *Module) Finalize() error {
	if m.finalized {
		return nil
	}
	for _, d := range m.funcs {
		if d.linkage != Import && d.body == nil {
			return &ModuleError{Name: d.name, Msg: "declared but never defined"}
		}
	}
	m.finalized = true
	return nil
}

// Lookup returns the ID of the function declared as name.
func (m *Module) Lookup(name string) (FuncID, bool) {
	e, ok := m.lookup(name)
	if !ok || e.fn == nil {
		return 0, false
	}
	return e.fn.id, true
}

// Symbols returns the symbol table ordered by name.
func (m *Module) Symbols() []Symbol {
	out := make([]Symbol, 0, m.names.Len())
	m.names.Ascend(func(e *symbolEntry) bool {
		if e.fn != nil {
			out = append(out, Symbol{
				Name:    e.name,
				Kind:    SymFunc,
				Linkage: e.fn.linkage,
				Func:    e.fn.id,
				Addr:    uint64(e.fn.addr),
				Sig:     e.fn.sig.String(),
			})
		} else {
			out = append(out, Symbol{Name: e.name, Kind: SymData, Addr: e.data.addr})
		}
		return true
	})
	return out
}

// Dump returns the listing of every defined function, ordered by name,
// after a header naming the target. A function with an x86-64 form is
// followed by its machine code bytes.
func (m *Module) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; target %s\n", m.target)
	m.names.Ascend(func(e *symbolEntry) bool {
		switch {
		case e.data != nil:
			fmt.Fprintf(&sb, "data %%%s = %d bytes at %#x\n", e.name, e.data.words*8, e.data.addr)
		case e.fn.src != nil:
			sb.WriteString(e.fn.src.String())
			if code := e.fn.body.code; code != nil {
				fmt.Fprintf(&sb, "; %%%s: %d bytes of x86-64 % x\n", e.name, len(code), code)
			}
		default:
			fmt.Fprintf(&sb, "%s function %%%s%s\n", e.fn.linkage, e.name, e.fn.sig.String())
		}
		return true
	})
	return sb.String()
}

// Instance is an executable copy of a finalized module with its own
// memory. An Instance is not safe for concurrent use; instantiate the
// module once per goroutine.
type Instance struct {
	mod   *Module
	mem   *Memory
	ctx   Context
	depth int
}

// Instantiate creates an instance with stackWords words of call stack
// (DefaultStackWords if zero). host is made available to host functions
// through Context.Host.
func (m *Module) Instantiate(host any, stackWords int) (*Instance, error) {
	if !m.finalized {
		return nil, errors.New("jit: module must be finalized before instantiation")
	}
	if stackWords <= 0 {
		stackWords = DefaultStackWords
	}
	in := &Instance{mod: m, mem: newMemory(m.dataWords, stackWords)}
	in.ctx = Context{Host: host, Mem: in.mem}
	return in, nil
}

// Memory returns the instance memory.
func (in *Instance) Memory() *Memory { return in.mem }

// Call runs the exported or local function id and returns its results.
// A fault inside generated or host code is returned as a *Trap.
func (in *Instance) Call(id FuncID, args ...uint64) (rets []uint64, err error) {
	if int(id) >= len(in.mod.funcs) {
		return nil, fmt.Errorf("jit: unknown function id %d", id)
	}
	d := in.mod.funcs[id]
	if len(args) != d.sig.paramWords() {
		return nil, &ModuleError{Name: d.name, Msg: fmt.Sprintf("called with %d words, signature %s", len(args), &d.sig)}
	}
	rets = make([]uint64, d.sig.returnWords())

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		in.mem.reset()
		in.depth = 0
		trap := asTrap(r)
		if trap.Func == "" {
			trap.Func = d.name
		}
		rets, err = nil, trap
	}()

	if d.host != nil {
		d.host(&in.ctx, args, rets)
		return rets, nil
	}
	in.invoke(d.body, args, rets)
	return rets, nil
}

// asTrap converts a panic raised while running generated code. Panics that
// are not traps come from host functions and become TrapHost.
func asTrap(r any) *Trap {
	switch v := r.(type) {
	case *Trap:
		return v
	case error:
		return &Trap{Code: TrapHost, Err: v}
	}
	return &Trap{Code: TrapHost, Err: fmt.Errorf("%v", r)}
}
