// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ringbufmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

var (
	ringbufReserved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_reserved",
		Help:      "The total number of ring buffer slots reserved by producers.",
	})
	ringbufSubmitted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_submitted",
		Help:      "The total number of records submitted to the ring buffer.",
	})
	ringbufDiscarded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_discarded",
		Help:      "The total number of reservations discarded by producers.",
	})
	ringbufLost = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_lost",
		Help:      "The total number of events dropped because the ring buffer was full.",
	})
	ringbufReceived = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_received",
		Help:      "The total number of records read by the consumer.",
	})
	ringbufErrors = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "ringbuf_errors",
		Help:      "The total number of ring buffer read errors.",
	})
)

func RegisterMetrics(group metrics.Group) {
	group.MustRegister(
		ringbufReserved,
		ringbufSubmitted,
		ringbufDiscarded,
		ringbufLost,
		ringbufReceived,
		ringbufErrors,
	)
}

func ReservedSet(val float64)  { ringbufReserved.Set(val) }
func SubmittedSet(val float64) { ringbufSubmitted.Set(val) }
func DiscardedSet(val float64) { ringbufDiscarded.Set(val) }
func LostSet(val float64)      { ringbufLost.Set(val) }
func ReceivedSet(val float64)  { ringbufReceived.Set(val) }
func ErrorsSet(val float64)    { ringbufErrors.Set(val) }

// Lost returns the lost gauge, for tests.
func Lost() prometheus.Gauge { return ringbufLost }

// Received returns the received gauge, for tests.
func Received() prometheus.Gauge { return ringbufReceived }
