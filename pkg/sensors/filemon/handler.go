// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package filemon

import (
	"bytes"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/observer"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
)

func handleFile(r *bytes.Reader) ([]observer.Event, error) {
	m, err := eventapi.DecodeFileMsg(r)
	if err != nil {
		return nil, err
	}
	return []observer.Event{m}, nil
}

type exposeListener struct {
	config bpf.ArrayReader[confapi.FileMonConfig]
	next   observer.Listener
}

// ExposeListener forwards file events to next only while the file monitor
// config has ExposeEvents set. Other events always pass.
func ExposeListener(config bpf.ArrayReader[confapi.FileMonConfig], next observer.Listener) observer.Listener {
	return &exposeListener{config: config, next: next}
}

func (l *exposeListener) Notify(msg notify.Message) error {
	if msg.Op() == eventapi.MSG_FILE {
		cfg := l.config.Lookup(0)
		if cfg == nil || !cfg.ExposeEvents {
			return nil
		}
	}
	return l.next.Notify(msg)
}

func (l *exposeListener) Close() error {
	return l.next.Close()
}

type filterListener struct {
	config bpf.ArrayReader[confapi.FileMonConfig]
	filter *processfilter.Filter
	next   observer.Listener
}

// FilterListener drops the file events whose process fails the identity
// filter selected by config. It filters records from programs that were
// loaded without the policy.
func FilterListener(config bpf.ArrayReader[confapi.FileMonConfig], filter *processfilter.Filter, next observer.Listener) observer.Listener {
	return &filterListener{config: config, filter: filter, next: next}
}

func (l *filterListener) Notify(msg notify.Message) error {
	if m, ok := msg.(*eventapi.MsgFile); ok {
		cfg := l.config.Lookup(0)
		if cfg == nil || !l.filter.Allow(0, cfg.FilterMask, cfg.DenyList, &m.File.Process) {
			return nil
		}
	}
	return l.next.Notify(msg)
}

func (l *filterListener) Close() error {
	return l.next.Close()
}

func init() {
	observer.RegisterEventHandlerAtInit(eventapi.MSG_FILE, handleFile)
}
