// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package encoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/observer"
	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
)

const rfc3339Nano = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrInvalidEvent       = errors.New("invalid event")
	ErrMissingProcessInfo = errors.New("process field is not set")
	ErrUnknownEventType   = errors.New("unknown event type")
)

// EventEncoder is an interface for encoding *Event values.
type EventEncoder interface {
	Encode(v interface{}) error
}

// ColorMode defines color mode flags for compact output.
type ColorMode string

const (
	Always ColorMode = "always" // always enable colored output.
	Never  ColorMode = "never"  // disable colored output.
	Auto   ColorMode = "auto"   // automatically enable / disable colored output based on terminal settings.
)

// CompactEncoder encodes events in a short format with emojis and colors.
type CompactEncoder struct {
	Writer     io.Writer
	Colorer    *Colorer
	Timestamps bool
}

// NewCompactEncoder initializes and returns a pointer to CompactEncoder.
func NewCompactEncoder(w io.Writer, colorMode ColorMode, timestamps bool) *CompactEncoder {
	return &CompactEncoder{
		Writer:     w,
		Colorer:    NewColorer(colorMode),
		Timestamps: timestamps,
	}
}

// Encode implements EventEncoder.Encode.
func (p *CompactEncoder) Encode(v interface{}) error {
	event, ok := v.(*Event)
	if !ok {
		return ErrInvalidEvent
	}
	logger.GetLogger().WithField("event", v).Debug("Processing event")
	str, err := p.EventToString(event)
	if err != nil {
		return err
	}
	if p.Timestamps {
		ts := event.Time.UTC().Format(rfc3339Nano)
		str = fmt.Sprintf("%s %s", ts, str)
	}
	_, err = fmt.Fprintln(p.Writer, str)
	return err
}

const (
	capsPad = 120
)

func CapTrailorPrinter(str string, caps string) string {
	if len(caps) == 0 {
		return str
	}
	padding := 0
	if len(str) < capsPad {
		padding = capsPad - len(str)
	}
	return fmt.Sprintf("%s %*s", str, padding, caps)
}

func (p *CompactEncoder) EventToString(event *Event) (string, error) {
	switch {
	case event.ProcessExec != nil:
		exec := event.ProcessExec
		if exec.Process == nil {
			return "", ErrMissingProcessInfo
		}
		kind := p.Colorer.Blue.Sprintf("🚀 %-7s", "process")
		processInfo, caps := p.Colorer.ProcessInfo(event.NodeName, exec.Process)
		args := p.Colorer.Cyan.Sprint(exec.Process.Arguments)
		return CapTrailorPrinter(fmt.Sprintf("%s %s %s", kind, processInfo, args), caps), nil
	case event.ProcessExit != nil:
		exit := event.ProcessExit
		if exit.Process == nil {
			return "", ErrMissingProcessInfo
		}
		kind := p.Colorer.Blue.Sprintf("💥 %-7s", "exit")
		processInfo, caps := p.Colorer.ProcessInfo(event.NodeName, exit.Process)
		args := p.Colorer.Cyan.Sprint(exit.Process.Arguments)
		return CapTrailorPrinter(fmt.Sprintf("%s %s %s", kind, processInfo, args), caps), nil
	case event.File != nil:
		file := event.File
		if file.Process == nil {
			return "", ErrMissingProcessInfo
		}
		kind := p.Colorer.Blue.Sprintf("📂 %-7s", "open")
		processInfo, caps := p.Colorer.ProcessInfo(event.NodeName, file.Process)
		path := p.Colorer.Yellow.Sprint(file.Path)
		owner := p.Colorer.Cyan.Sprintf("%d:%d %s", file.UID, file.GID, file.Mode)
		return CapTrailorPrinter(fmt.Sprintf("%s %s %s %s", kind, processInfo, path, owner), caps), nil
	}
	return "", ErrUnknownEventType
}

// JSONEncoder writes one JSON object per line.
type JSONEncoder struct {
	enc *json.Encoder
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{enc: json.NewEncoder(w)}
}

// Encode implements EventEncoder.Encode.
func (e *JSONEncoder) Encode(v interface{}) error {
	event, ok := v.(*Event)
	if !ok {
		return ErrInvalidEvent
	}
	return e.enc.Encode(event)
}

// Listener adapts an EventEncoder to the observer. Notify is serialized
// so that lines from concurrent producers never interleave.
type Listener struct {
	mu       sync.Mutex
	enc      EventEncoder
	nodeName string
	closer   io.Closer
}

var _ observer.Listener = (*Listener)(nil)

// NewListener returns a listener encoding every message with enc. If w is
// an io.Closer it is closed together with the listener.
func NewListener(enc EventEncoder, nodeName string, w io.Writer) *Listener {
	l := &Listener{enc: enc, nodeName: nodeName}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l
}

func (l *Listener) Notify(msg notify.Message) error {
	ev, err := ToEvent(msg, l.nodeName)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(ev)
}

func (l *Listener) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
