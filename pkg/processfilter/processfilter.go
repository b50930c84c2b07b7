// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package processfilter decides whether a process snapshot passes the
// identity allow-lists configured for a sensor.
package processfilter

import (
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
)

// PrefixKey is struct bpf_lpm_trie_key over a binary path prefix.
type PrefixKey struct {
	PrefixLen uint32
	Data      [eventapi.MAX_FILE_PREFIX]byte
}

// ScratchName is the per-CPU key buffer used for prefix lookups.
const ScratchName = "FILTER_BIN_PREFIX_MAP"

// NewScratch allocates the prefix key scratch buffer, one slot per CPU.
func NewScratch(cpus int) *bpf.PerCPUArray[PrefixKey] {
	return bpf.NewPerCPUArray[PrefixKey](ScratchName, cpus, 1)
}

// Maps are the allow-sets consulted by a Filter. A nil set never matches.
type Maps struct {
	UID        bpf.KeySet[uint32]
	EUID       bpf.KeySet[uint32]
	AUID       bpf.KeySet[uint32]
	BinaryName bpf.KeySet[[eventapi.MAX_FILENAME_SIZE]byte]
	BinaryPath bpf.KeySet[[eventapi.MAX_FILE_PATH]byte]
	PathPrefix bpf.PrefixMatcher
}

// Filter evaluates masks against Maps. It never writes to the maps; the
// only state it touches is its own per-CPU scratch slot.
type Filter struct {
	maps    Maps
	scratch *bpf.PerCPUArray[PrefixKey]
	helpers kernel.Helpers
}

func New(maps Maps, scratch *bpf.PerCPUArray[PrefixKey], h kernel.Helpers) *Filter {
	if h == nil {
		h = kernel.Host{}
	}
	return &Filter{maps: maps, scratch: scratch, helpers: h}
}

func has[K comparable](set bpf.KeySet[K], key K) bool {
	return set != nil && set.Has(key)
}

// Filter reports whether proc is on the allow-lists selected by mask. All
// enabled uid checks must pass, then at least one enabled binary check must
// match. With no binary check enabled the uid checks decide alone. E_CAPS
// is accepted but not evaluated.
func (f *Filter) Filter(cpu uint32, mask confapi.ProcessFilterMask, proc *eventapi.ProcInfo) bool {
	if mask.Contains(confapi.UID) && !has(f.maps.UID, proc.Creds.UID) {
		return false
	}
	if mask.Contains(confapi.EUID) && !has(f.maps.EUID, proc.Creds.EUID) {
		return false
	}
	if mask.Contains(confapi.AUID) && !has(f.maps.AUID, proc.AUID) {
		return false
	}

	if mask.Intersection(confapi.BinaryMask).IsEmpty() {
		return true
	}
	if mask.Contains(confapi.BINARY_NAME) && has(f.maps.BinaryName, proc.Filename) {
		return true
	}
	if mask.Contains(confapi.BINARY_PATH) && has(f.maps.BinaryPath, proc.BinaryPath) {
		return true
	}
	if mask.Contains(confapi.BINARY_PATH_PREFIX) {
		return f.matchPrefix(cpu, proc)
	}
	return false
}

func (f *Filter) matchPrefix(cpu uint32, proc *eventapi.ProcInfo) bool {
	key := f.scratch.Lookup(cpu, 0)
	if key == nil || f.maps.PathPrefix == nil {
		return false
	}
	clear(key.Data[:])
	// a failed read leaves the key zeroed, which matches nothing real
	_ = kernel.ReadKernelBuf(f.helpers, key.Data[:], proc.BinaryPath[:])
	key.PrefixLen = eventapi.MAX_FILE_PREFIX * 8
	return f.maps.PathPrefix.Match(key.PrefixLen, key.Data[:])
}

// Allow applies a sensor config: an empty mask allows everything, otherwise
// the filter result is inverted when denyList is set.
func (f *Filter) Allow(cpu uint32, mask confapi.ProcessFilterMask, denyList bool, proc *eventapi.ProcInfo) bool {
	if mask.IsEmpty() {
		return true
	}
	return f.Filter(cpu, mask, proc) != denyList
}
