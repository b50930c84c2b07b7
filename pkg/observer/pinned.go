// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package observer

import (
	"fmt"
	"os"
	"strings"

	"github.com/cilium/ebpf"
	ebpfringbuf "github.com/cilium/ebpf/ringbuf"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/defaults"
)

type pinnedReader struct {
	*ebpfringbuf.Reader
	m *ebpf.Map
}

func (r *pinnedReader) Close() error {
	return multierr.Append(r.Reader.Close(), r.m.Close())
}

// OpenPinnedReader opens the event ring buffer pinned under bpfDir by the
// kernel-resident programs.
func OpenPinnedReader(bpfDir string) (RecordReader, error) {
	m, err := bpf.LoadPinned(bpfDir, defaults.DefaultEventMap)
	if err != nil {
		return nil, err
	}
	if m.Type() != ebpf.RingBuf {
		m.Close()
		return nil, fmt.Errorf("pinned map %s is %s, want %s", defaults.DefaultEventMap, m.Type(), ebpf.RingBuf)
	}
	rd, err := ebpfringbuf.NewReader(m)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("creating ring buffer reader failed: %w", err)
	}
	return &pinnedReader{Reader: rd, m: m}, nil
}

// LogPinnedBpf logs the active pinned BPF resources.
func (k *Observer) LogPinnedBpf(observerDir string) {
	finfo, err := os.Stat(observerDir)
	if err != nil {
		k.log.WithField("bpf-dir", observerDir).Info("BPF: resources are empty")
		return
	}

	if !finfo.IsDir() {
		err := fmt.Errorf("is not a directory")
		k.log.WithField("bpf-dir", observerDir).WithError(err).Warn("BPF: checking BPF resources failed")
		return
	}

	bpfRes, _ := os.ReadDir(observerDir)
	if len(bpfRes) == 0 {
		k.log.WithField("bpf-dir", observerDir).Info("BPF: resources are empty")
		return
	}
	res := make([]string, 0, len(bpfRes))
	for _, b := range bpfRes {
		res = append(res, b.Name())
	}
	k.log.WithFields(logrus.Fields{
		"bpf-dir":    observerDir,
		"pinned-bpf": fmt.Sprintf("[%s]", strings.Join(res, " ")),
	}).Info("BPF: found active BPF resources")
}
