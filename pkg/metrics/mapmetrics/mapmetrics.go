// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package mapmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/consts"
)

var MapSize = metrics.NewBPFGauge(prometheus.NewDesc(
	prometheus.BuildFQName(consts.MetricsNamespace, "", "map_entries"),
	"The number of in-use entries per map.",
	[]string{"map"}, nil,
))

// Sized is a map that can report how many entries it holds.
type Sized interface {
	Name() string
	Len() int
}

// mapCollector reads map sizes at scrape time. All maps share one
// descriptor, so they are served by a single collector.
type mapCollector struct {
	mu   sync.Mutex
	maps []Sized
}

var collector = &mapCollector{}

func RegisterMetrics(group metrics.Group) {
	group.MustRegister(collector)
}

// Watch adds maps to the entries collector.
func Watch(maps ...Sized) {
	collector.mu.Lock()
	defer collector.mu.Unlock()
	collector.maps = append(collector.maps, maps...)
}

func (c *mapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- MapSize.Desc()
}

func (c *mapCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.maps {
		ch <- MapSize.MustMetric(float64(m.Len()), m.Name())
	}
}
