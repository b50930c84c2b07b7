// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ringbuf

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
)

func fixedClock(ns uint64) Option {
	return WithClock(func() uint64 { return ns })
}

func reserveFile(t *testing.T, rb *RingBuffer, pid uint32) Entry {
	t.Helper()
	e, err := rb.Reserve(eventapi.MSG_FILE, true)
	require.NoError(t, err)
	f, ok := e.Event().Event.File()
	require.True(t, ok)
	f.Process.PID = pid
	return e
}

func decodePID(t *testing.T, raw []byte) uint32 {
	t.Helper()
	msg, err := eventapi.DecodeFileMsg(bytes.NewReader(raw))
	require.NoError(t, err)
	return msg.File.Process.PID
}

func TestReserveStampsHeader(t *testing.T) {
	rb, err := New("test", 4, fixedClock(42))
	require.NoError(t, err)

	e := reserveFile(t, rb, 7)
	assert.Equal(t, uint64(42), e.Event().Ktime)
	assert.Equal(t, eventapi.MSG_FILE, e.Event().Event.Op())
	e.Submit()

	rec, err := NewReader(rb).Read()
	require.NoError(t, err)
	require.Len(t, rec.RawSample, eventapi.RecordSize)
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(rec.RawSample[eventapi.KtimeOffset:]))
	assert.Equal(t, eventapi.MSG_FILE, rec.RawSample[eventapi.OpOffset])
	assert.Equal(t, uint32(7), decodePID(t, rec.RawSample))
}

func TestDiscardedRecordsAreSkipped(t *testing.T) {
	rb, err := New("test", 4)
	require.NoError(t, err)

	reserveFile(t, rb, 1).Submit()
	reserveFile(t, rb, 2).Discard()
	reserveFile(t, rb, 3).Submit()

	r := NewReader(rb)
	rec, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), decodePID(t, rec.RawSample))
	rec, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), decodePID(t, rec.RawSample))

	st := rb.Stats()
	assert.Equal(t, uint64(3), st.Reserved)
	assert.Equal(t, uint64(2), st.Submitted)
	assert.Equal(t, uint64(1), st.Discarded)
	assert.Equal(t, uint64(2), st.Received)
	assert.Equal(t, 0, rb.Len())
}

func TestCommitOrderFollowsReservation(t *testing.T) {
	rb, err := New("test", 4)
	require.NoError(t, err)

	first := reserveFile(t, rb, 1)
	second := reserveFile(t, rb, 2)
	second.Submit()
	first.Submit()

	r := NewReader(rb)
	for _, want := range []uint32{1, 2} {
		rec, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, want, decodePID(t, rec.RawSample))
	}
}

func TestFullRingDrops(t *testing.T) {
	rb, err := New("test", 2)
	require.NoError(t, err)

	reserveFile(t, rb, 1).Submit()
	reserveFile(t, rb, 2).Discard()
	_, err = rb.Reserve(eventapi.MSG_FILE, true)
	require.ErrorIs(t, err, ErrDropped)
	assert.Equal(t, uint64(1), rb.Stats().Lost)

	_, err = NewReader(rb).Read()
	require.NoError(t, err)
	e, err := rb.Reserve(eventapi.MSG_FILE, true)
	require.NoError(t, err, "consumed slots are reusable")
	e.Discard()
}

func TestZeroReservation(t *testing.T) {
	rb, err := New("test", 1)
	require.NoError(t, err)
	r := NewReader(rb)

	e := reserveFile(t, rb, 99)
	e.Submit()
	_, err = r.Read()
	require.NoError(t, err)

	// without zeroing the previous occupant is still visible
	e, err = rb.Reserve(eventapi.MSG_FILE, false)
	require.NoError(t, err)
	f, _ := e.Event().Event.File()
	assert.Equal(t, uint32(99), f.Process.PID)
	e.Submit()
	_, err = r.Read()
	require.NoError(t, err)

	e, err = rb.Reserve(eventapi.MSG_FILE, true)
	require.NoError(t, err)
	f, _ = e.Event().Event.File()
	assert.Equal(t, eventapi.FileMsg{}, *f)
	e.Discard()
}

func TestEntryReleaseIsOnce(t *testing.T) {
	rb, err := New("test", 2)
	require.NoError(t, err)

	e := reserveFile(t, rb, 1)
	e.Submit()
	e.Submit()
	e.Discard()
	st := rb.Stats()
	assert.Equal(t, uint64(1), st.Submitted)
	assert.Equal(t, uint64(0), st.Discarded)
}

func TestConcurrentProducers(t *testing.T) {
	const producers, perProducer = 4, 200
	rb, err := New("test", 64)
	require.NoError(t, err)
	r := NewReader(rb)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p uint32) {
			defer wg.Done()
			for i := uint32(0); i < perProducer; {
				e, err := rb.Reserve(eventapi.MSG_FILE, true)
				if err != nil {
					continue
				}
				f, _ := e.Event().Event.File()
				f.Process.PID = p
				f.Process.TID = i
				if i%5 == 4 {
					e.Discard()
				} else {
					e.Submit()
				}
				i++
			}
		}(uint32(p))
	}

	last := make(map[uint32]int64)
	for p := uint32(0); p < producers; p++ {
		last[p] = -1
	}
	want := producers * perProducer * 4 / 5
	for n := 0; n < want; n++ {
		rec, err := r.Read()
		require.NoError(t, err)
		msg, err := eventapi.DecodeFileMsg(bytes.NewReader(rec.RawSample))
		require.NoError(t, err)
		pid, tid := msg.File.Process.PID, int64(msg.File.Process.TID)
		assert.Greater(t, tid, last[pid], "per-producer order")
		assert.NotEqual(t, int64(4), tid%5, "discarded record observed")
		last[pid] = tid
	}
	wg.Wait()
	assert.Equal(t, uint64(want), rb.Stats().Submitted)
}

func TestCloseDrainsThenFails(t *testing.T) {
	rb, err := New("test", 4)
	require.NoError(t, err)
	reserveFile(t, rb, 1).Submit()
	r := NewReader(rb)
	require.NoError(t, r.Close())

	_, err = rb.Reserve(eventapi.MSG_FILE, true)
	assert.ErrorIs(t, err, ErrDropped)

	_, err = r.Read()
	require.NoError(t, err)
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseWaitsForHeldHead(t *testing.T) {
	rb, err := New("test", 4)
	require.NoError(t, err)
	head := reserveFile(t, rb, 1)
	reserveFile(t, rb, 2).Submit()
	require.NoError(t, rb.Close())

	r := NewReader(rb)
	samples := make(chan []byte, 2)
	errs := make(chan error, 1)
	go func() {
		for {
			rec, err := r.Read()
			if err != nil {
				errs <- err
				return
			}
			samples <- rec.RawSample
		}
	}()

	head.Submit()
	assert.Equal(t, uint32(1), decodePID(t, <-samples))
	assert.Equal(t, uint32(2), decodePID(t, <-samples))
	assert.ErrorIs(t, <-errs, ErrClosed)
}

func TestCloseWaitsForHeldHeadDiscard(t *testing.T) {
	rb, err := New("test", 2)
	require.NoError(t, err)
	head := reserveFile(t, rb, 1)
	require.NoError(t, rb.Close())

	errs := make(chan error, 1)
	go func() {
		_, err := NewReader(rb).Read()
		errs <- err
	}()
	head.Discard()
	assert.ErrorIs(t, <-errs, ErrClosed)
	assert.Equal(t, uint64(1), rb.Stats().Discarded)
}

func TestStaleEntryAfterSlotReuse(t *testing.T) {
	rb, err := New("test", 1)
	require.NoError(t, err)
	r := NewReader(rb)

	stale := reserveFile(t, rb, 1)
	stale.Submit()
	rec, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), decodePID(t, rec.RawSample))

	// the single slot now belongs to a new reservation
	fresh := reserveFile(t, rb, 2)
	stale.Discard()
	stale.Submit()
	fresh.Submit()

	rec, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), decodePID(t, rec.RawSample))
	st := rb.Stats()
	assert.Equal(t, uint64(2), st.Submitted)
	assert.Zero(t, st.Discarded)
}

func TestNewRejectsEmptyRing(t *testing.T) {
	_, err := New("test", 0)
	assert.Error(t, err)
}
