// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package defaults

import "time"

const (
	// DefaultMapRoot is the default path where BPFFS should be mounted
	DefaultMapRoot = "/sys/fs/bpf"

	// DefaultMapPrefix is the default path prefix where sysmond maps should be pinned
	DefaultMapPrefix = "sysmond"

	// DefaultEventMap is the default name of the event ring buffer map
	DefaultEventMap = "EVENT_MAP"

	DefaultProcFS = "/proc"

	// DefaultRBEntries is the number of records the host ring buffer holds
	DefaultRBEntries = 4096

	// DefaultRBQueueSize is the size of the channel between the ring
	// buffer reader and the event handlers
	DefaultRBQueueSize = 65535

	// DefaultProcMapEntries bounds the process info table
	DefaultProcMapEntries = 32768

	DefaultProcScanInterval = 30 * time.Second
)
