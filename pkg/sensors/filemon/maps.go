// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package filemon

import (
	"errors"
	"os"

	"github.com/cilium/ebpf"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/mapmetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
)

// Names of the maps pinned by the kernel side of the file monitor.
const (
	ConfigMap          = "FILEMON_CONFIG"
	FilterUIDMap       = "FILEMON_FILTER_UID_MAP"
	FilterEUIDMap      = "FILEMON_FILTER_EUID_MAP"
	FilterAUIDMap      = "FILEMON_FILTER_AUID_MAP"
	FilterBinNameMap   = "FILEMON_FILTER_BINNAME_MAP"
	FilterBinPathMap   = "FILEMON_FILTER_BINPATH_MAP"
	FilterBinPrefixMap = "FILEMON_FILTER_BINPREFIX_MAP"

	filterMapEntries = 1024
)

// Maps are the read-only inputs of the file-open probe.
type Maps struct {
	Config bpf.ArrayReader[confapi.FileMonConfig]
	Procs  bpf.MapReader[uint32, eventapi.ProcInfo]
	Filter processfilter.Maps
}

// HostMaps are the in-process maps provisioned by Apply.
type HostMaps struct {
	Config     *bpf.Array[confapi.FileMonConfig]
	UID        *bpf.Set[uint32]
	EUID       *bpf.Set[uint32]
	AUID       *bpf.Set[uint32]
	BinaryName *bpf.Set[[eventapi.MAX_FILENAME_SIZE]byte]
	BinaryPath *bpf.Set[[eventapi.MAX_FILE_PATH]byte]
	PathPrefix *bpf.LpmTrie
}

func NewHostMaps() *HostMaps {
	return &HostMaps{
		Config:     bpf.NewArray[confapi.FileMonConfig](ConfigMap, 1),
		UID:        bpf.NewSet[uint32](FilterUIDMap, filterMapEntries),
		EUID:       bpf.NewSet[uint32](FilterEUIDMap, filterMapEntries),
		AUID:       bpf.NewSet[uint32](FilterAUIDMap, filterMapEntries),
		BinaryName: bpf.NewSet[[eventapi.MAX_FILENAME_SIZE]byte](FilterBinNameMap, filterMapEntries),
		BinaryPath: bpf.NewSet[[eventapi.MAX_FILE_PATH]byte](FilterBinPathMap, filterMapEntries),
		PathPrefix: bpf.NewLpmTrie(FilterBinPrefixMap, eventapi.MAX_FILE_PREFIX, filterMapEntries),
	}
}

// Maps returns the probe view of the host maps over the process table procs.
func (h *HostMaps) Maps(procs bpf.MapReader[uint32, eventapi.ProcInfo]) Maps {
	return Maps{
		Config: h.Config,
		Procs:  procs,
		Filter: processfilter.Maps{
			UID:        h.UID,
			EUID:       h.EUID,
			AUID:       h.AUID,
			BinaryName: h.BinaryName,
			BinaryPath: h.BinaryPath,
			PathPrefix: h.PathPrefix,
		},
	}
}

// Sized lists the host maps for the map size metrics.
func (h *HostMaps) Sized() []mapmetrics.Sized {
	return []mapmetrics.Sized{h.UID, h.EUID, h.AUID, h.BinaryName, h.BinaryPath, h.PathPrefix}
}

// PinnedConfig is the file monitor config of the kernel-resident programs.
type PinnedConfig struct {
	bpf.ArrayReader[confapi.FileMonConfig]
	m *ebpf.Map
}

// DefaultConfig is the config used when none is pinned: file events are
// exposed unfiltered.
func DefaultConfig() *bpf.Array[confapi.FileMonConfig] {
	config := bpf.NewArray[confapi.FileMonConfig](ConfigMap, 1)
	_ = config.Update(0, confapi.FileMonConfig{ExposeEvents: true})
	return config
}

// OpenPinnedConfig opens the config map pinned under dir. The kernel side
// does not have to pin one, DefaultConfig is used then.
func OpenPinnedConfig(dir string) (*PinnedConfig, error) {
	path := bpf.MapPath(dir, ConfigMap)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.GetLogger().WithField(logfields.Map, path).Info("No pinned file monitor config, exposing file events")
		return &PinnedConfig{ArrayReader: DefaultConfig()}, nil
	}
	m, err := bpf.LoadPinned(dir, ConfigMap)
	if err != nil {
		return nil, err
	}
	return &PinnedConfig{ArrayReader: bpf.NewPinnedArray[confapi.FileMonConfig](m), m: m}, nil
}

func (p *PinnedConfig) Close() error {
	if p.m == nil {
		return nil
	}
	return p.m.Close()
}
