// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package logfields

const (
	// LogSubsys is the field denoting the subsystem when logging
	LogSubsys = "subsys"

	// Error is the Go error
	Error = "error"

	Op     = "op"
	Hook   = "hook"
	Map    = "map"
	PID    = "pid"
	Path   = "path"
	Policy = "policy"
	Reason = "reason"
)
