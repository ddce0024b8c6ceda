//go:build !(linux && amd64)

package jit

import "errors"

const hostExec = false

type nativeCode struct{}

func mapCode([]byte) (*nativeCode, error) {
	return nil, errors.New("jit: machine code cannot run on this host")
}

func (*nativeCode) run([]uint64) {}
