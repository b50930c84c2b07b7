// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package filemon implements the file-open probe: it resolves the calling
// process, applies the process filter and emits one File record per open.
package filemon

import (
	"fmt"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/capture"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/utils"
)

type Sensor struct {
	rb      capture.Reserver
	maps    Maps
	filter  *processfilter.Filter
	helpers kernel.Helpers
}

// New creates the probe. scratch holds the per-CPU prefix keys, h the kernel
// read helpers (nil means the host helpers).
func New(rb capture.Reserver, maps Maps, scratch *bpf.PerCPUArray[processfilter.PrefixKey], h kernel.Helpers) *Sensor {
	if h == nil {
		h = kernel.Host{}
	}
	return &Sensor{
		rb:      rb,
		maps:    maps,
		filter:  processfilter.New(maps.Filter, scratch, h),
		helpers: h,
	}
}

// FileOpen is the file_open hook. Argument 0 of ctx is the opened
// *kernel.File.
func (s *Sensor) FileOpen(ctx *kernel.LsmContext) (capture.Outcome, error) {
	// The name buffer and the tail of the path are never written by the
	// body, the record is cleared on reservation.
	return capture.Capture(s.rb, ctx, eventapi.MSG_FILE, true, s.tryOpen)
}

func (s *Sensor) tryOpen(ctx *kernel.LsmContext, ev *eventapi.Event) error {
	config := s.maps.Config.Lookup(0)
	if config == nil {
		return capture.ErrConfigMissing
	}
	msg, ok := ev.File()
	if !ok {
		return capture.ErrVariantMismatch
	}

	pid := ctx.Pid()
	proc, ok := s.maps.Procs.Lookup(pid)
	if !ok {
		return fmt.Errorf("pid %d: %w", pid, capture.ErrProcessMissing)
	}

	// filtered events skip every further kernel read
	if !s.filter.Allow(ctx.CPU, config.FilterMask, config.DenyList, proc) {
		return capture.ErrFilterReject
	}

	msg.Hook = eventapi.HOOK_FILE_OPEN

	fp, _ := ctx.Arg(0).(*kernel.File)
	if fp == nil {
		return fmt.Errorf("file argument: %w", capture.ErrKernelRead)
	}
	fmode, err := kernel.ReadKernel(s.helpers, &fp.FMode)
	if err != nil {
		return fmt.Errorf("f_mode: %w: %w", capture.ErrKernelRead, err)
	}
	// exec opens are reported by the process monitor
	if fmode&kernel.FMODE_EXEC != 0 {
		return capture.ErrExecOpen
	}

	// a truncated or unresolved path is kept as is
	_, _ = s.helpers.DPath(&fp.FPath, msg.Path[:])

	if msg.Flags, err = kernel.ReadKernel(s.helpers, &fp.FFlags); err != nil {
		return fmt.Errorf("f_flags: %w: %w", capture.ErrKernelRead, err)
	}
	inode, err := kernel.ReadKernel(s.helpers, &fp.FInode)
	if err != nil {
		return fmt.Errorf("f_inode: %w: %w", capture.ErrKernelRead, err)
	}
	if inode == nil {
		return fmt.Errorf("f_inode: %w: %w", capture.ErrKernelRead, kernel.ErrFault)
	}
	if msg.IMode, err = kernel.ReadKernel(s.helpers, &inode.IMode); err != nil {
		return fmt.Errorf("i_mode: %w: %w", capture.ErrKernelRead, err)
	}
	uid, err := kernel.ReadKernel(s.helpers, &inode.IUID)
	if err != nil {
		return fmt.Errorf("i_uid: %w: %w", capture.ErrKernelRead, err)
	}
	gid, err := kernel.ReadKernel(s.helpers, &inode.IGID)
	if err != nil {
		return fmt.Errorf("i_gid: %w: %w", capture.ErrKernelRead, err)
	}
	msg.UID = uid.Val
	msg.GID = gid.Val

	utils.CopyProc(s.helpers, proc, &msg.Process)
	return nil
}
