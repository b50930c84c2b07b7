// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package observer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ebpfringbuf "github.com/cilium/ebpf/ringbuf"
	"golang.org/x/time/rate"

	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/ringbufmetrics"
)

const lostPollInterval = time.Second

// RunEvents reads records from rd until stopCtx is done or rd is closed,
// and dispatches them to the listeners. rd is closed on return.
func (k *Observer) RunEvents(stopCtx context.Context, rd RecordReader, ready func()) error {
	// Records are moved from the reader goroutine to the decoding
	// goroutine through eventsQueue so a slow listener never stalls the ring.
	eventsQueue := make(chan []byte, k.queueSize)
	readerDone := make(chan struct{})

	if ready != nil {
		ready()
	}
	k.log.WithField("queueSize", k.queueSize).Info("Listening for events...")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(readerDone)
		for stopCtx.Err() == nil {
			record, err := rd.Read()
			if err != nil {
				if errors.Is(err, ebpfringbuf.ErrClosed) {
					return
				}
				// count and log errors while excluding the stopping context
				if stopCtx.Err() == nil {
					errorCnt := k.errorCntr.Inc()
					ringbufmetrics.ErrorsSet(float64(errorCnt))
					k.log.WithField("errors", errorCnt).WithError(err).Warn("Reading events failed")
				}
				continue
			}
			if len(record.RawSample) > 0 {
				select {
				case eventsQueue <- record.RawSample:
				default:
					// eventsQueue channel is full, drop the event
					k.queueLost.Inc()
					queueLost.Inc()
				}
				eventsReceived.Inc()
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case raw := <-eventsQueue:
				k.receiveEvent(raw)
				queueReceived.Inc()
			case <-readerDone:
				// the reader is gone, drain what it queued
				for {
					select {
					case raw := <-eventsQueue:
						k.receiveEvent(raw)
						queueReceived.Inc()
					default:
						return
					}
				}
			case <-stopCtx.Done():
				k.log.WithField(logfields.Error, stopCtx.Err()).Info("Listening for events completed.")
				k.log.Debug(fmt.Sprintf("Unprocessed events in RB queue: %d", len(eventsQueue)))
				return
			}
		}
	}()

	if k.lost != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.pollLost(stopCtx, readerDone)
		}()
	}

	select {
	case <-stopCtx.Done():
	case <-readerDone:
	}
	err := rd.Close()
	wg.Wait()
	if errors.Is(err, ebpfringbuf.ErrClosed) {
		err = nil
	}
	return err
}

// pollLost mirrors the producer side drop counter and warns when it grows.
func (k *Observer) pollLost(stopCtx context.Context, done <-chan struct{}) {
	limiter := rate.NewLimiter(rate.Every(10*time.Second), 1)
	ticker := time.NewTicker(lostPollInterval)
	defer ticker.Stop()

	update := func() {
		cur := k.lost()
		prev := k.lostCntr.Swap(cur)
		if cur <= prev {
			return
		}
		ringbufmetrics.LostSet(float64(cur))
		if limiter.Allow() {
			k.log.WithField("lost", cur).WithField("new", cur-prev).Warn("Ring buffer full, events lost")
		}
	}

	for {
		select {
		case <-ticker.C:
			update()
		case <-done:
			update()
			return
		case <-stopCtx.Done():
			update()
			return
		}
	}
}
