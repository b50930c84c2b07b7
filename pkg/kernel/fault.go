// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package kernel

import (
	"sync"
	"unsafe"
)

type faultRange struct {
	start, end uintptr
}

// FaultInjector wraps Helpers and fails reads that touch registered
// addresses. It lets probe logic be exercised without a kernel.
type FaultInjector struct {
	Helpers

	mu       sync.Mutex
	faults   []faultRange
	dpathErr error
	reads    int
}

func NewFaultInjector(h Helpers) *FaultInjector {
	if h == nil {
		h = Host{}
	}
	return &FaultInjector{Helpers: h}
}

// Fault makes every read overlapping [addr, addr+size) fail.
func (f *FaultInjector) Fault(addr unsafe.Pointer, size uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := uintptr(addr)
	f.faults = append(f.faults, faultRange{start: start, end: start + size})
}

// FailDPath makes DPath return err.
func (f *FaultInjector) FailDPath(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dpathErr = err
}

// Reads returns the number of Probe calls seen so far.
func (f *FaultInjector) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FaultInjector) Probe(addr unsafe.Pointer, size uintptr) error {
	f.mu.Lock()
	f.reads++
	start := uintptr(addr)
	end := start + size
	for _, r := range f.faults {
		if start < r.end && r.start < end {
			f.mu.Unlock()
			return ErrFault
		}
	}
	f.mu.Unlock()
	return f.Helpers.Probe(addr, size)
}

func (f *FaultInjector) DPath(p *Path, buf []byte) (int, error) {
	f.mu.Lock()
	err := f.dpathErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Helpers.DPath(p, buf)
}
