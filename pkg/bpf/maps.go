// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package bpf models the kernel maps shared between the capture programs and
// userspace. Host implementations keep the kernel semantics (bounded entries,
// update flags, pointer-returning lookups) so that the same handler code can
// run against an in-process map or a map pinned on bpffs.
package bpf

import (
	"errors"

	"github.com/cilium/ebpf"
)

var (
	// ErrMapFull is returned when an insert would exceed the map max entries.
	ErrMapFull = errors.New("map full")
	// ErrKeyNotExist mirrors the cilium/ebpf lookup miss.
	ErrKeyNotExist = ebpf.ErrKeyNotExist
	// ErrKeyExist mirrors the cilium/ebpf BPF_NOEXIST failure.
	ErrKeyExist = ebpf.ErrKeyExist
)

// MapReader is the read side of a hash map keyed by K. Lookup returns a
// pointer into map storage, valid until the entry is deleted.
type MapReader[K comparable, V any] interface {
	Lookup(key K) (*V, bool)
}

// KeySet is a hash map used only for key presence, as the filter maps are.
type KeySet[K comparable] interface {
	Has(key K) bool
}

// ArrayReader is the read side of an array map. Lookup returns nil for an
// index that is out of range or has never been written.
type ArrayReader[V any] interface {
	Lookup(index uint32) *V
}

// PrefixMatcher is the read side of an LPM trie. Match reports whether any
// stored prefix covers the first prefixLen bits of data.
type PrefixMatcher interface {
	Match(prefixLen uint32, data []byte) bool
}

func checkFlags(flags ebpf.MapUpdateFlags, exists bool) error {
	switch {
	case flags&ebpf.UpdateNoExist != 0 && exists:
		return ErrKeyExist
	case flags&ebpf.UpdateExist != 0 && !exists:
		return ErrKeyNotExist
	}
	return nil
}
