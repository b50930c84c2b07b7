// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package version

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

// buildInfoCollector is a constant gauge collecting itself.
type buildInfoCollector struct {
	self prometheus.Metric
}

func (b *buildInfoCollector) init(self prometheus.Metric) {
	b.self = self
}

// Describe implements Collector.
func (b *buildInfoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- b.self.Desc()
}

// Collect implements Collector.
func (b *buildInfoCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- b.self
}

func NewBuildInfoCollector() prometheus.Collector {
	buildInfo := ReadBuildInfo()
	c := &buildInfoCollector{
		prometheus.MustNewConstMetric(
			prometheus.NewDesc(
				prometheus.BuildFQName(consts.MetricsNamespace, "", "build_info"),
				"Build information about sysmond",
				nil,
				prometheus.Labels{
					"version":    Version,
					"go_version": buildInfo.GoVersion,
					"commit":     buildInfo.Commit,
					"time":       buildInfo.Time,
					"modified":   buildInfo.Modified,
				},
			),
			prometheus.GaugeValue,
			1),
	}
	c.init(c.self)
	return c
}
