package jit

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hostExec reports whether machine code can run on this host.
const hostExec = true

// callNative runs the code at addr with frame in DI.
func callNative(addr uintptr, frame *uint64)

// nativeCode is machine code in an executable mapping. The mapping is
// released when the code becomes unreachable.
type nativeCode struct {
	mem []byte
}

// mapCode copies code into fresh pages and makes them executable.
func mapCode(code []byte) (*nativeCode, error) {
	page := unix.Getpagesize()
	n := (len(code) + page - 1) &^ (page - 1)
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	nc := &nativeCode{mem: mem}
	runtime.SetFinalizer(nc, func(nc *nativeCode) { _ = unix.Munmap(nc.mem) })
	return nc, nil
}

func (nc *nativeCode) run(frame []uint64) {
	callNative(uintptr(unsafe.Pointer(&nc.mem[0])), &frame[0])
	runtime.KeepAlive(nc)
}
