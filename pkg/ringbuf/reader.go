// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ringbuf

import (
	"sync"

	ebpfringbuf "github.com/cilium/ebpf/ringbuf"
)

// Reader consumes records in reservation order. Its method set matches the
// cilium/ebpf ring buffer reader, so the observer can drain either.
type Reader struct {
	rb *RingBuffer
	mu sync.Mutex
}

// NewReader returns the consumer of rb. A ring has a single consumer, using
// two readers at once is serialized.
func NewReader(rb *RingBuffer) *Reader {
	return &Reader{rb: rb}
}

// Read blocks until the next committed record.
func (r *Reader) Read() (ebpfringbuf.Record, error) {
	var rec ebpfringbuf.Record
	err := r.ReadInto(&rec)
	return rec, err
}

// ReadInto is like Read but reuses the RawSample buffer of rec.
func (r *Reader) ReadInto(rec *ebpfringbuf.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rb := r.rb
	for {
		pos := rb.consPos.Load()
		if pos < rb.prodPos.Load() {
			s := &rb.slots[pos%uint64(len(rb.slots))]
			switch s.state.Load() & stateMask {
			case slotCommitted:
				rec.RawSample = append(rec.RawSample[:0], s.raw[:]...)
				rec.Remaining = int(rb.prodPos.Load() - pos - 1)
				s.state.Store(slotState(pos, slotFree))
				rb.consPos.Store(pos + 1)
				rb.received.Inc()
				return nil
			case slotDiscarded:
				s.state.Store(slotState(pos, slotFree))
				rb.consPos.Store(pos + 1)
				continue
			}
			// head is still being filled by its producer
		}

		select {
		case <-rb.wake:
		case <-rb.done:
			if r.drained() {
				return ErrClosed
			}
			if r.headBusy() {
				// no reservation happens after Close, only the head
				// producer can wake us now
				<-rb.wake
			}
		}
	}
}

// drained reports whether every reserved record has been consumed.
func (r *Reader) drained() bool {
	return r.rb.consPos.Load() >= r.rb.prodPos.Load()
}

// headBusy reports whether the head record is still held by its producer.
func (r *Reader) headBusy() bool {
	rb := r.rb
	pos := rb.consPos.Load()
	return rb.slots[pos%uint64(len(rb.slots))].state.Load()&stateMask == slotBusy
}

// Close closes the underlying ring.
func (r *Reader) Close() error {
	return r.rb.Close()
}
