// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	"fmt"

	"go.uber.org/atomic"
)

// Array is a BPF_MAP_TYPE_ARRAY. Lookup of an unwritten slot returns nil,
// which lets callers model the "configuration absent" state.
type Array[V any] struct {
	name  string
	slots []atomic.Pointer[V]
}

func NewArray[V any](name string, maxEntries int) *Array[V] {
	return &Array[V]{name: name, slots: make([]atomic.Pointer[V], maxEntries)}
}

func (a *Array[V]) Name() string { return a.name }

func (a *Array[V]) Lookup(index uint32) *V {
	if int(index) >= len(a.slots) {
		return nil
	}
	return a.slots[index].Load()
}

// Update publishes a copy of value. Readers holding the previous pointer
// keep a consistent snapshot.
func (a *Array[V]) Update(index uint32, value V) error {
	if int(index) >= len(a.slots) {
		return fmt.Errorf("array %s: index %d out of range: %w", a.name, index, ErrKeyNotExist)
	}
	v := value
	a.slots[index].Store(&v)
	return nil
}

// Clear resets a slot to the never written state.
func (a *Array[V]) Clear(index uint32) {
	if int(index) < len(a.slots) {
		a.slots[index].Store(nil)
	}
}

func (a *Array[V]) Len() int { return len(a.slots) }
