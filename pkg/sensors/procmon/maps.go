// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package procmon maintains the process info table the file monitor reads
// and turns process appearance and disappearance into exec and exit records.
package procmon

import (
	"github.com/cilium/ebpf"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
)

const (
	ProcMap   = "PROCMON_PROC_MAP"
	ConfigMap = "PROCMON_CONFIG"
)

// Table is the process info table keyed by pid.
type Table interface {
	bpf.MapReader[uint32, eventapi.ProcInfo]
	Update(pid uint32, proc eventapi.ProcInfo, flags ebpf.MapUpdateFlags) error
	Delete(pid uint32) error
	Keys() []uint32
	Len() int
	Name() string
}

func NewTable(entries int) (*bpf.LRUHashMap[uint32, eventapi.ProcInfo], error) {
	return bpf.NewLRUHashMap[uint32, eventapi.ProcInfo](ProcMap, entries)
}

func NewConfig() *bpf.Array[confapi.ProcMonConfig] {
	return bpf.NewArray[confapi.ProcMonConfig](ConfigMap, 1)
}
