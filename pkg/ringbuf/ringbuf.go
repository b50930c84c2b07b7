// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package ringbuf implements the event ring shared by all capture
// producers. Producers reserve a fixed-size record, fill it in place and
// then either submit or discard it. The single consumer observes committed
// records in reservation order; discarded records are never observed.
package ringbuf

import (
	"errors"
	"fmt"
	"sync"

	ebpfringbuf "github.com/cilium/ebpf/ringbuf"
	"go.uber.org/atomic"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/ktime"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/ringbufmetrics"
)

var (
	// ErrDropped is returned by Reserve when no record is available. The
	// event is lost and counted.
	ErrDropped = errors.New("ring buffer full: event dropped")
	// ErrClosed is returned by the reader once the ring is closed and
	// drained.
	ErrClosed = ebpfringbuf.ErrClosed
)

const (
	slotFree uint64 = iota
	slotBusy
	slotCommitted
	slotDiscarded

	stateBits = 2
	stateMask = 1<<stateBits - 1
)

// slotState tags st with the ring position of the reservation it belongs to.
func slotState(pos, st uint64) uint64 {
	return pos<<stateBits | st
}

type slot struct {
	// reservation position and state, see slotState
	state atomic.Uint64
	event eventapi.GenericEvent
	raw   [eventapi.RecordSize]byte
}

// Stats are the cumulative ring counters.
type Stats struct {
	Reserved  uint64
	Submitted uint64
	Discarded uint64
	Lost      uint64
	Received  uint64
}

type Option func(*RingBuffer)

// WithClock replaces the monotonic clock stamped into reserved records.
func WithClock(clock func() uint64) Option {
	return func(rb *RingBuffer) { rb.clock = clock }
}

// RingBuffer is a multi-producer, single-consumer ring of event records.
type RingBuffer struct {
	name  string
	slots []slot
	clock func() uint64

	// mu serializes reservations, the rest of the producer path is lock free
	mu      sync.Mutex
	prodPos atomic.Uint64
	consPos atomic.Uint64
	closed  atomic.Bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	reserved  atomic.Uint64
	submitted atomic.Uint64
	discarded atomic.Uint64
	lost      atomic.Uint64
	received  atomic.Uint64
}

// New creates a ring holding up to entries in-flight records.
func New(name string, entries int, opts ...Option) (*RingBuffer, error) {
	if entries <= 0 {
		return nil, fmt.Errorf("ring %s: invalid number of entries %d", name, entries)
	}
	rb := &RingBuffer{
		name:  name,
		slots: make([]slot, entries),
		clock: ktime.NowNs,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rb)
	}
	return rb, nil
}

func (rb *RingBuffer) Name() string { return rb.name }

// Len is the number of records reserved but not yet consumed.
func (rb *RingBuffer) Len() int {
	return int(rb.prodPos.Load() - rb.consPos.Load())
}

func (rb *RingBuffer) Cap() int { return len(rb.slots) }

// Entry is an exclusive reservation. Exactly one of Submit or Discard must
// be called; later calls are no-ops, also once the slot has been reused by
// another reservation.
type Entry struct {
	rb  *RingBuffer
	s   *slot
	pos uint64
}

// Event returns the reserved record. It must not be used after Submit or
// Discard.
func (e Entry) Event() *eventapi.GenericEvent {
	return &e.s.event
}

// Submit encodes the record and makes it visible to the consumer.
func (e Entry) Submit() {
	busy := slotState(e.pos, slotBusy)
	if e.s.state.Load() != busy {
		return
	}
	e.s.event.MarshalTo(e.s.raw[:])
	if e.s.state.CompareAndSwap(busy, slotState(e.pos, slotCommitted)) {
		e.rb.submitted.Inc()
		e.rb.notify()
	}
}

// Discard releases the record, the consumer skips it.
func (e Entry) Discard() {
	if e.s.state.CompareAndSwap(slotState(e.pos, slotBusy), slotState(e.pos, slotDiscarded)) {
		e.rb.discarded.Inc()
		e.rb.notify()
	}
}

// Reserve claims the next record and stamps it with the current ktime and
// the variant tag op. With zero set the record is cleared first, otherwise
// it holds whatever the previous occupant left. ErrDropped is returned when
// the ring is full or closed.
func (rb *RingBuffer) Reserve(op uint8, zero bool) (Entry, error) {
	rb.mu.Lock()
	pos := rb.prodPos.Load()
	if rb.closed.Load() || pos-rb.consPos.Load() >= uint64(len(rb.slots)) {
		rb.mu.Unlock()
		rb.lost.Inc()
		return Entry{}, ErrDropped
	}
	s := &rb.slots[pos%uint64(len(rb.slots))]
	s.state.Store(slotState(pos, slotBusy))
	rb.prodPos.Store(pos + 1)
	rb.mu.Unlock()

	if zero {
		s.event = eventapi.GenericEvent{}
	}
	s.event.Stamp(rb.clock(), op)
	rb.reserved.Inc()
	return Entry{rb: rb, s: s, pos: pos}, nil
}

func (rb *RingBuffer) notify() {
	select {
	case rb.wake <- struct{}{}:
	default:
	}
}

// Close stops reservations and wakes the reader. Records reserved before
// Close are still delivered once their producers submit them.
func (rb *RingBuffer) Close() error {
	rb.closeOnce.Do(func() {
		rb.mu.Lock()
		rb.closed.Store(true)
		rb.mu.Unlock()
		close(rb.done)
	})
	return nil
}

func (rb *RingBuffer) Stats() Stats {
	return Stats{
		Reserved:  rb.reserved.Load(),
		Submitted: rb.submitted.Load(),
		Discarded: rb.discarded.Load(),
		Lost:      rb.lost.Load(),
		Received:  rb.received.Load(),
	}
}

// UpdateMetrics publishes the ring counters.
func (rb *RingBuffer) UpdateMetrics() {
	st := rb.Stats()
	ringbufmetrics.ReservedSet(float64(st.Reserved))
	ringbufmetrics.SubmittedSet(float64(st.Submitted))
	ringbufmetrics.DiscardedSet(float64(st.Discarded))
	ringbufmetrics.LostSet(float64(st.Lost))
	ringbufmetrics.ReceivedSet(float64(st.Received))
}
