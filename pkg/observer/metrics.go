// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package observer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

const (
	subsystem = "observer"
)

var (
	eventsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "events_received_total",
		Help:      "Number of records the observer read from the ring buffer.",
	})
	queueReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "queue_events_received_total",
		Help:      "Number of records the observer events queue received.",
	})
	queueLost = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "queue_events_lost_total",
		Help:      "Number of records dropped because the observer events queue was full.",
	})
)

func RegisterHealthMetrics(group metrics.Group) {
	group.MustRegister(eventsReceived, queueReceived, queueLost)
}
