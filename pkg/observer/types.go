// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package observer drains the event ring, decodes records by their variant
// tag and hands the decoded messages to listeners.
package observer

import (
	"io"

	ebpfringbuf "github.com/cilium/ebpf/ringbuf"

	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
)

// Listener defines the interface to receive events from Observer.
type Listener interface {
	// Notify gets called for each decoded event.
	Notify(msg notify.Message) error

	// Close the listener.
	io.Closer
}

// RecordReader is the consumer side of a ring buffer. It is implemented by
// the host ring reader and by the cilium/ebpf ring buffer reader.
type RecordReader interface {
	Read() (ebpfringbuf.Record, error)
	io.Closer
}

type funcListener struct {
	notify func(msg notify.Message) error
}

func (f *funcListener) Notify(msg notify.Message) error { return f.notify(msg) }

func (f *funcListener) Close() error { return nil }

// ListenerFunc adapts a function to a Listener with a no-op Close.
func ListenerFunc(f func(msg notify.Message) error) Listener {
	return &funcListener{notify: f}
}
