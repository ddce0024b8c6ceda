package jit

import (
	"reflect"
	"sync"
)

// HostFunc is a Go function callable from generated code. Arguments and
// return values are flattened to machine words in signature order; an
// I128 occupies two consecutive words, low word first.
type HostFunc func(ctx *Context, args []uint64, rets []uint64)

// Context is handed to every host function call.
type Context struct {
	// Host is the value passed to Module.Instantiate.
	Host any

	// Mem is the linear memory of the calling instance.
	Mem *Memory
}

// hostTable maps addresses handed out by AddrOf back to the functions, in
// the way a dynamic linker maps a symbol address back to code.
var hostTable sync.Map // uintptr -> HostFunc

// AddrOf returns a stable address for fn and makes fn resolvable by that
// address. Registering the same function twice yields the same address.
func AddrOf(fn HostFunc) uintptr {
	addr := reflect.ValueOf(fn).Pointer()
	hostTable.LoadOrStore(addr, fn)
	return addr
}

func hostAt(addr uintptr) (HostFunc, bool) {
	v, ok := hostTable.Load(addr)
	if !ok {
		return nil, false
	}
	return v.(HostFunc), true
}

// Builder collects the symbols a module may import.
type Builder struct {
	target  TargetConfig
	symbols map[string]uintptr
}

// NewBuilder returns a builder targeting the running host.
func NewBuilder() *Builder {
	return &Builder{
		target:  NativeTarget(),
		symbols: make(map[string]uintptr),
	}
}

// Symbol makes addr importable under name. A later call with the same
// name replaces the earlier address.
func (b *Builder) Symbol(name string, addr uintptr) {
	b.symbols[name] = addr
}

// Lookup returns the address registered for name.
func (b *Builder) Lookup(name string) (uintptr, bool) {
	addr, ok := b.symbols[name]
	return addr, ok
}
