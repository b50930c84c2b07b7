// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

// PerCPUArray is a BPF_MAP_TYPE_PERCPU_ARRAY. Each CPU owns its copy of
// every slot so programs running on the same CPU are never concurrent.
type PerCPUArray[V any] struct {
	name   string
	values [][]V
}

func NewPerCPUArray[V any](name string, cpus, maxEntries int) *PerCPUArray[V] {
	values := make([][]V, cpus)
	for i := range values {
		values[i] = make([]V, maxEntries)
	}
	return &PerCPUArray[V]{name: name, values: values}
}

func (a *PerCPUArray[V]) Name() string { return a.name }

// Lookup returns the slot of the given CPU, or nil for an unknown CPU or
// index.
func (a *PerCPUArray[V]) Lookup(cpu, index uint32) *V {
	if a == nil || int(cpu) >= len(a.values) {
		return nil
	}
	row := a.values[cpu]
	if int(index) >= len(row) {
		return nil
	}
	return &row[index]
}

func (a *PerCPUArray[V]) CPUs() int { return len(a.values) }
