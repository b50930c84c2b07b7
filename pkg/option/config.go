// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"time"

	"github.com/ruidanwang/docker-sys-monitor/pkg/defaults"
)

// Config contains all the configuration used by sysmond.
var Config = config{
	// Initialize global defaults below.

	// ProcFS defaults to /proc.
	ProcFS: defaults.DefaultProcFS,

	RBEntries:        defaults.DefaultRBEntries,
	RBQueueSize:      defaults.DefaultRBQueueSize,
	ProcMapEntries:   defaults.DefaultProcMapEntries,
	ProcScanInterval: defaults.DefaultProcScanInterval,
	Output:           OutputJSON,
	Color:            "auto",

	// LogOpts contains logger parameters
	LogOpts: make(map[string]string),
}

type config struct {
	Debug  bool
	ProcFS string

	// BpfDir is the bpffs directory holding the maps pinned by the
	// kernel-resident programs. Empty means the host pipeline is used.
	BpfDir string

	RBEntries      int
	RBQueueSize    int
	ProcMapEntries int
	CPUs           int

	ProcScanInterval time.Duration
	ProcMonDebug     bool
	FilterPolicy     string
	WatchPaths       []string
	ExposeEvents     bool

	Output string
	Color  string

	MetricsServer string
	GopsAddr      string

	LogOpts map[string]string
}

const (
	OutputJSON    = "json"
	OutputCompact = "compact"
)
