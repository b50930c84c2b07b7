// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package utils

import (
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
)

// CopyProc copies a process snapshot owned by the kernel into dst. Fixed
// fields are copied by value, the string buffers are re-read with bounded
// reads into the capacity of dst. Read failures are ignored: the affected
// buffer is left zeroed and the copy carries on.
func CopyProc(h kernel.Helpers, src *eventapi.ProcInfo, dst *eventapi.ProcInfo) {
	dst.PID = src.PID
	dst.TID = src.TID
	dst.PPID = src.PPID
	dst.Creds = src.Creds
	dst.AUID = src.AUID
	dst.Clonned = src.Clonned
	dst.Cgroup = src.Cgroup

	_ = kernel.ReadKernelBuf(h, dst.Filename[:], src.Filename[:])
	_ = kernel.ReadKernelBuf(h, dst.Args[:], src.Args[:])
	_ = kernel.ReadKernelBuf(h, dst.BinaryPath[:], src.BinaryPath[:])
}

