// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package observer

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/ops"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/errormetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
)

var (
	eventHandler = make(map[uint8]func(r *bytes.Reader) ([]Event, error))

	errShortRecord = errors.New("record shorter than header")
)

type Event notify.Message

// RegisterEventHandlerAtInit registers the decoder of one variant tag. It
// must only be called from init functions.
func RegisterEventHandlerAtInit(op uint8, handler func(r *bytes.Reader) ([]Event, error)) {
	eventHandler[op] = handler
}

type handlePerfUnknownOp struct {
	op byte
}

func (e handlePerfUnknownOp) Error() string {
	return fmt.Sprintf("unknown op: %d", e.op)
}

type handlePerfHandlerErr struct {
	op  byte
	err error
}

func (e *handlePerfHandlerErr) Error() string {
	return fmt.Sprintf("handler for op %d failed: %s", e.op, e.err)
}

func (e *handlePerfHandlerErr) Unwrap() error {
	return e.err
}

func (e *handlePerfHandlerErr) Cause() error {
	return e.err
}

// HandlePerfData decodes one raw record. The variant tag sits after the
// ktime header.
func HandlePerfData(data []byte) (byte, []Event, error) {
	if len(data) <= eventapi.OpOffset {
		return 0, nil, errShortRecord
	}
	op := data[eventapi.OpOffset]
	r := bytes.NewReader(data)
	// These ops handlers are registered by RegisterEventHandlerAtInit().
	handler, ok := eventHandler[op]
	if !ok {
		return op, nil, handlePerfUnknownOp{op: op}
	}

	events, err := handler(r)
	if err != nil {
		err = &handlePerfHandlerErr{op: op, err: err}
	}
	return op, events, err
}

// Observer represents the link between the event ring and the listeners.
type Observer struct {
	mu        sync.RWMutex
	listeners map[Listener]struct{}

	/* Statistics */
	recvCntr   atomic.Uint64
	errorCntr  atomic.Uint64
	lostCntr   atomic.Uint64
	queueLost  atomic.Uint64
	decodeErrs atomic.Uint64

	// lost reports the producer side drops, nil when the ring does not
	// expose them.
	lost      func() uint64
	queueSize int

	log logrus.FieldLogger
}

type Option func(*Observer)

// WithLostCounter sets the source of producer side drop counts.
func WithLostCounter(lost func() uint64) Option {
	return func(o *Observer) { o.lost = lost }
}

// WithQueueSize sets the size of the channel between the ring reader and
// the decoders.
func WithQueueSize(n int) Option {
	return func(o *Observer) { o.queueSize = n }
}

func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		listeners: make(map[Listener]struct{}),
		queueSize: 1,
		log:       logger.GetLogger().WithField(logfields.LogSubsys, "observer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.queueSize < 1 {
		o.queueSize = 1
	}
	return o
}

func (k *Observer) AddListener(listener Listener) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.log.WithField("listener", fmt.Sprintf("%T", listener)).Debug("Add listener")
	k.listeners[listener] = struct{}{}
}

func (k *Observer) RemoveListener(listener Listener) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.removeListenerLocked(listener)
}

func (k *Observer) removeListenerLocked(listener Listener) {
	if _, ok := k.listeners[listener]; !ok {
		return
	}
	k.log.WithField("listener", fmt.Sprintf("%T", listener)).Debug("Delete listener")
	delete(k.listeners, listener)
	if err := listener.Close(); err != nil {
		k.log.WithError(err).Warn("failed to close listener")
	}
}

func (k *Observer) observerListeners(msg notify.Message) {
	var failed []Listener
	k.mu.RLock()
	for listener := range k.listeners {
		if err := listener.Notify(msg); err != nil {
			k.log.WithError(err).Debug("Write failure removing Listener")
			failed = append(failed, listener)
		}
	}
	k.mu.RUnlock()
	if len(failed) == 0 {
		return
	}
	k.mu.Lock()
	for _, listener := range failed {
		k.removeListenerLocked(listener)
	}
	k.mu.Unlock()
}

// CloseListeners closes and removes every listener.
func (k *Observer) CloseListeners() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for listener := range k.listeners {
		k.removeListenerLocked(listener)
	}
}

func (k *Observer) receiveEvent(data []byte) {
	k.recvCntr.Inc()
	op, events, err := HandlePerfData(data)
	if err != nil {
		k.decodeErrs.Inc()
		var herr *handlePerfHandlerErr
		var uerr handlePerfUnknownOp
		switch {
		case errors.As(err, &uerr):
			errormetrics.HandlerErrorsInc(ops.OpCode(uerr.op), errormetrics.HandlePerfUnknownOp)
			k.log.WithField(logfields.Op, uerr.op).Debug("unknown opcode ignored")
		case errors.As(err, &herr):
			errormetrics.HandlerErrorsInc(ops.OpCode(herr.op), errormetrics.HandlePerfHandlerError)
			k.log.WithError(herr.err).WithField(logfields.Op, ops.OpCode(herr.op)).Debug("error occurred in event handler")
		default:
			errormetrics.ErrorTotalInc(errormetrics.RecordTruncated)
			k.log.WithError(err).WithField(logfields.Op, op).Debug("error occurred in event handler")
		}
	}
	for _, event := range events {
		k.observerListeners(event)
	}
}

func (k *Observer) ReadLostEvents() uint64 {
	return k.lostCntr.Load()
}

func (k *Observer) ReadErrorEvents() uint64 {
	return k.errorCntr.Load()
}

func (k *Observer) ReadReceivedEvents() uint64 {
	return k.recvCntr.Load()
}

func (k *Observer) ReadQueueLostEvents() uint64 {
	return k.queueLost.Load()
}

func (k *Observer) ReadDecodeErrors() uint64 {
	return k.decodeErrs.Load()
}

func (k *Observer) PrintStats() {
	recvCntr := k.ReadReceivedEvents()
	lostCntr := k.ReadLostEvents() + k.ReadQueueLostEvents()
	total := float64(recvCntr + lostCntr)
	loss := float64(0)
	if total > 0 {
		loss = (float64(lostCntr) * 100.0) / total
	}
	k.log.Infof("Ring buffer events statistics: %d received, %.2g%% events loss", recvCntr, loss)

	k.log.WithFields(logrus.Fields{
		"received":     recvCntr,
		"lost":         k.ReadLostEvents(),
		"queueLost":    k.ReadQueueLostEvents(),
		"errors":       k.ReadErrorEvents(),
		"decodeErrors": k.ReadDecodeErrors(),
	}).Info("Observer events statistics")
}
