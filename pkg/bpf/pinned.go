// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	"fmt"
	"path/filepath"

	"github.com/cilium/ebpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/sirupsen/logrus"
)

// MapPath returns the bpffs path of a map pinned under dir.
func MapPath(dir, name string) string {
	return filepath.Join(dir, name)
}

// LoadPinned opens a map pinned by the capture programs.
func LoadPinned(dir, name string) (*ebpf.Map, error) {
	path := MapPath(dir, name)
	m, err := ebpf.LoadPinnedMap(path, &ebpf.LoadPinOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("loading pinned map %s: %w", path, err)
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"map":        name,
		"type":       m.Type().String(),
		"maxEntries": m.MaxEntries(),
	}).Debug("opened pinned map")
	return m, nil
}

// PinnedArray reads a pinned array map.
type PinnedArray[V any] struct {
	m *ebpf.Map
}

func NewPinnedArray[V any](m *ebpf.Map) *PinnedArray[V] {
	return &PinnedArray[V]{m: m}
}

func (p *PinnedArray[V]) Lookup(index uint32) *V {
	var v V
	if err := p.m.Lookup(&index, &v); err != nil {
		return nil
	}
	return &v
}
