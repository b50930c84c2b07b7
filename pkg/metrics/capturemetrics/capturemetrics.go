// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package capturemetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/ops"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeSubmitted
	OutcomeDiscarded
)

var outcomeLabelValues = map[Outcome]string{
	OutcomeDropped:   "dropped",
	OutcomeSubmitted: "submitted",
	OutcomeDiscarded: "discarded",
}

func (o Outcome) String() string {
	return outcomeLabelValues[o]
}

type DiscardReason int

const (
	ReasonConfigMissing DiscardReason = iota
	ReasonVariantMismatch
	ReasonProcessMissing
	ReasonFiltered
	ReasonExecOpen
	ReasonKernelRead
	ReasonPanic
	ReasonOther
)

var reasonLabelValues = map[DiscardReason]string{
	ReasonConfigMissing:   "config_missing",
	ReasonVariantMismatch: "variant_mismatch",
	ReasonProcessMissing:  "process_missing",
	ReasonFiltered:        "filtered",
	ReasonExecOpen:        "exec_open",
	ReasonKernelRead:      "kernel_read",
	ReasonPanic:           "panic",
	ReasonOther:           "other",
}

func (r DiscardReason) String() string {
	return reasonLabelValues[r]
}

var (
	CaptureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "capture_total",
		Help:      "The total number of capture attempts per message type and outcome.",
	}, []string{"msg_op", "outcome"})

	DiscardTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "capture_discards_total",
		Help:      "The total number of discarded captures per message type and reason.",
	}, []string{"msg_op", "reason"})
)

func RegisterMetrics(group metrics.Group) {
	group.MustRegister(CaptureTotal, DiscardTotal)
	group.ExtendInit(InitMetrics)
}

func InitMetrics() {
	for op := range ops.OpCodeStrings {
		for o := range outcomeLabelValues {
			GetCaptureTotal(op, o).Add(0)
		}
	}
}

func GetCaptureTotal(op ops.OpCode, o Outcome) prometheus.Counter {
	return CaptureTotal.WithLabelValues(op.String(), o.String())
}

func CaptureTotalInc(op ops.OpCode, o Outcome) {
	GetCaptureTotal(op, o).Inc()
}

func GetDiscardTotal(op ops.OpCode, r DiscardReason) prometheus.Counter {
	return DiscardTotal.WithLabelValues(op.String(), r.String())
}

func DiscardTotalInc(op ops.OpCode, r DiscardReason) {
	GetDiscardTotal(op, r).Inc()
}
