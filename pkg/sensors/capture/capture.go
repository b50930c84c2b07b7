// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package capture runs a probe body inside a ring reservation and commits
// or releases the reservation exactly once.
package capture

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/ops"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/capturemetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/ringbuf"
)

type Outcome int

const (
	// Dropped means no reservation could be made, the handler did not run.
	Dropped Outcome = iota
	Submitted
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Submitted:
		return "submitted"
	case Discarded:
		return "discarded"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) metric() capturemetrics.Outcome {
	switch o {
	case Submitted:
		return capturemetrics.OutcomeSubmitted
	case Discarded:
		return capturemetrics.OutcomeDiscarded
	}
	return capturemetrics.OutcomeDropped
}

// Reserver hands out ring reservations.
type Reserver interface {
	Reserve(op uint8, zero bool) (ringbuf.Entry, error)
}

// Handler fills the reserved event. A nil return submits the record, any
// error discards it.
type Handler[C any] func(ctx C, ev *eventapi.Event) error

// Capture reserves a record tagged op, runs handler on it and submits or
// discards it. The returned error is the reason the record was not
// submitted: ringbuf.ErrDropped, the handler error, or ErrVariantMismatch
// when the handler left the record with a different tag.
func Capture[C any](rb Reserver, ctx C, op uint8, zero bool, handler Handler[C]) (out Outcome, err error) {
	entry, err := rb.Reserve(op, zero)
	if err != nil {
		capturemetrics.CaptureTotalInc(ops.OpCode(op), capturemetrics.OutcomeDropped)
		return Dropped, err
	}

	defer func() {
		if r := recover(); r != nil {
			entry.Discard()
			logger.GetLogger().WithFields(logrus.Fields{
				logfields.Op: ops.OpCode(op).String(),
				"panic":      r,
			}).Error("capture handler panicked, record discarded")
			out, err = Discarded, fmt.Errorf("%w: %v", errPanic, r)
		}
		capturemetrics.CaptureTotalInc(ops.OpCode(op), out.metric())
		if out == Discarded {
			capturemetrics.DiscardTotalInc(ops.OpCode(op), discardReason(err))
		}
	}()

	ev := &entry.Event().Event
	if err := handler(ctx, ev); err != nil {
		entry.Discard()
		return Discarded, err
	}
	if ev.Op() != op {
		entry.Discard()
		return Discarded, fmt.Errorf("record tagged %d, reserved as %d: %w", ev.Op(), op, ErrVariantMismatch)
	}
	entry.Submit()
	return Submitted, nil
}
