// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package metrics

import "github.com/prometheus/client_golang/prometheus"

// BPFMetric is a metric whose value is read from a map at collection time.
// It is meant for custom collectors, which own the consistency of the label
// values they pass.
type BPFMetric interface {
	Desc() *prometheus.Desc
	MustMetric(value float64, labelValues ...string) prometheus.Metric
}

type bpfMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
}

func NewBPFCounter(desc *prometheus.Desc) BPFMetric {
	return &bpfMetric{desc: desc, valueType: prometheus.CounterValue}
}

func NewBPFGauge(desc *prometheus.Desc) BPFMetric {
	return &bpfMetric{desc: desc, valueType: prometheus.GaugeValue}
}

func (m *bpfMetric) Desc() *prometheus.Desc {
	return m.desc
}

func (m *bpfMetric) MustMetric(value float64, labelValues ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(m.desc, m.valueType, value, labelValues...)
}
