// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package kernel

import (
	"errors"
	"unsafe"
)

var (
	// ErrFault is returned when a read of untrusted memory fails.
	ErrFault = errors.New("bad address")
	// ErrNameTooLong is returned by DPath when the buffer cannot hold a NUL.
	ErrNameTooLong = errors.New("name too long")
)

// Helpers is the capability set a probe uses to touch kernel memory.
type Helpers interface {
	// Probe checks that size bytes at addr are readable.
	Probe(addr unsafe.Pointer, size uintptr) error
	// DPath resolves p into buf and returns the number of bytes written,
	// including the terminating NUL.
	DPath(p *Path, buf []byte) (int, error)
}

// ReadKernel reads a T from src.
func ReadKernel[T any](h Helpers, src *T) (T, error) {
	var v T
	if src == nil {
		return v, ErrFault
	}
	if err := h.Probe(unsafe.Pointer(src), unsafe.Sizeof(v)); err != nil {
		return v, err
	}
	return *src, nil
}

// ReadKernelBuf fills dst from src without ever writing past len(dst).
// A source shorter than dst leaves the rest of dst zeroed. On failure dst is
// zeroed as well.
func ReadKernelBuf(h Helpers, dst []byte, src []byte) error {
	if len(dst) == 0 {
		return nil
	}
	n := min(len(dst), len(src))
	if n == 0 {
		clear(dst)
		return ErrFault
	}
	if err := h.Probe(unsafe.Pointer(&src[0]), uintptr(n)); err != nil {
		clear(dst)
		return err
	}
	copy(dst, src[:n])
	clear(dst[n:])
	return nil
}

// Host implements Helpers for memory owned by this process.
type Host struct{}

func (Host) Probe(addr unsafe.Pointer, _ uintptr) error {
	if addr == nil {
		return ErrFault
	}
	return nil
}

// DPath copies the resolved name, truncated so that a NUL always fits.
func (Host) DPath(p *Path, buf []byte) (int, error) {
	if p == nil {
		return 0, ErrFault
	}
	if len(buf) == 0 {
		return 0, ErrNameTooLong
	}
	n := copy(buf[:len(buf)-1], p.Name)
	buf[n] = 0
	if n < len(p.Name) {
		return n + 1, ErrNameTooLong
	}
	return n + 1, nil
}

// LsmContext is what a file hook receives on invocation.
type LsmContext struct {
	// CPU is the execution context id, it indexes per-CPU maps.
	CPU     uint32
	PidTgid uint64
	args    []any
}

func NewLsmContext(cpu uint32, pid, tid uint32, args ...any) *LsmContext {
	return &LsmContext{
		CPU:     cpu,
		PidTgid: uint64(pid)<<32 | uint64(tid),
		args:    args,
	}
}

// Arg returns argument i, or nil when the hook was given fewer arguments.
func (c *LsmContext) Arg(i int) any {
	if i < 0 || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}

// Pid returns the thread group id of the current task.
func (c *LsmContext) Pid() uint32 { return uint32(c.PidTgid >> 32) }
