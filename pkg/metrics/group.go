// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Group is a sub-registry of the root registry. Packages register their
// collectors into a group together with a function initializing the label
// combinations that must be exported even before the first event.
type Group interface {
	prometheus.Registerer
	prometheus.Collector
	ExtendInit(func())
	Init()
}

type metricsGroup struct {
	registry *prometheus.Registry
	initFunc func()
}

// NewMetricsGroup creates a new Group.
func NewMetricsGroup() Group {
	return &metricsGroup{
		registry: prometheus.NewPedanticRegistry(),
		initFunc: func() {},
	}
}

func (r *metricsGroup) Describe(ch chan<- *prometheus.Desc) {
	r.registry.Describe(ch)
}

func (r *metricsGroup) Collect(ch chan<- prometheus.Metric) {
	r.registry.Collect(ch)
}

func (r *metricsGroup) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

func (r *metricsGroup) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *metricsGroup) Unregister(c prometheus.Collector) bool {
	return r.registry.Unregister(c)
}

func (r *metricsGroup) Init() {
	r.initFunc()
}

// ExtendInit chains init after the group's current initialization.
func (r *metricsGroup) ExtendInit(init func()) {
	if init == nil {
		return
	}
	oldInit := r.initFunc
	r.initFunc = func() {
		oldInit()
		init()
	}
}
