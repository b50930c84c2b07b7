// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package errormetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/ops"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

type ErrorType int

const (
	// A record shorter than the fixed record size reached the observer
	RecordTruncated ErrorType = iota
	// The procfs scanner could not read a process
	ProcfsReadFailed
	// The host event source could not resolve an fd path
	EventSourceResolveFailed
)

var errorTypeLabelValues = map[ErrorType]string{
	RecordTruncated:          "record_truncated",
	ProcfsReadFailed:         "procfs_read_failed",
	EventSourceResolveFailed: "event_source_resolve_failed",
}

func (e ErrorType) String() string {
	return errorTypeLabelValues[e]
}

type EventHandlerError int

const (
	HandlePerfUnknownOp EventHandlerError = iota
	HandlePerfHandlerError
)

var eventHandlerErrorLabelValues = map[EventHandlerError]string{
	HandlePerfUnknownOp:    "unknown_opcode",
	HandlePerfHandlerError: "event_handler_failed",
}

func (e EventHandlerError) String() string {
	return eventHandlerErrorLabelValues[e]
}

var (
	ErrorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "errors_total",
		Help:      "The total number of sysmond errors. For internal use only.",
	}, []string{"type"})

	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: consts.MetricsNamespace,
		Name:      "handler_errors_total",
		Help:      "The total number of event handler errors. For internal use only.",
	}, []string{"opcode", "error_type"})
)

func RegisterMetrics(group metrics.Group) {
	group.MustRegister(ErrorTotal, HandlerErrors)
	group.ExtendInit(InitMetrics)
}

func InitMetrics() {
	for er := range errorTypeLabelValues {
		GetErrorTotal(er).Add(0)
	}
	for opcode := range ops.OpCodeStrings {
		GetHandlerErrors(opcode, HandlePerfHandlerError).Add(0)
	}
}

func GetErrorTotal(er ErrorType) prometheus.Counter {
	return ErrorTotal.WithLabelValues(er.String())
}

func ErrorTotalInc(er ErrorType) {
	GetErrorTotal(er).Inc()
}

func GetHandlerErrors(opcode ops.OpCode, er EventHandlerError) prometheus.Counter {
	return HandlerErrors.WithLabelValues(opcode.String(), er.String())
}

func HandlerErrorsInc(opcode ops.OpCode, er EventHandlerError) {
	GetHandlerErrors(opcode, er).Inc()
}
