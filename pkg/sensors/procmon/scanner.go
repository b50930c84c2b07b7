// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package procmon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cilium/ebpf"
	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/bpf"
	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/errormetrics"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/capture"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/utils"
)

// Scanner seeds the process table from procfs. Each scan inserts the
// processes not seen before and removes the ones that are gone.
type Scanner struct {
	fs      procfs.FS
	procDir string
	table   Table

	// optional event emission
	rb     capture.Reserver
	config bpf.ArrayReader[confapi.ProcMonConfig]
	filter *processfilter.Filter

	log   logrus.FieldLogger
	debug *logger.DebugLogger
}

type ScannerOption func(*Scanner)

// WithEvents makes the scanner emit an exec record for every new process
// and an exit record for every removed one, filtered by the process
// monitor config.
func WithEvents(rb capture.Reserver, config bpf.ArrayReader[confapi.ProcMonConfig], filterMaps processfilter.Maps) ScannerOption {
	return func(s *Scanner) {
		s.rb = rb
		s.config = config
		// the scanner owns its scratch slot, it runs beside the event sources
		s.filter = processfilter.New(filterMaps, processfilter.NewScratch(1), kernel.Host{})
	}
}

// WithDebug logs every scan at info level.
func WithDebug(enabled bool) ScannerOption {
	return func(s *Scanner) {
		s.debug = logger.NewDebugLogger(s.log, enabled)
	}
}

func NewScanner(procDir string, table Table, opts ...ScannerOption) (*Scanner, error) {
	fs, err := procfs.NewFS(procDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs %s: %w", procDir, err)
	}
	s := &Scanner{
		fs:      fs,
		procDir: procDir,
		table:   table,
		log:     logger.GetLogger().WithField(logfields.LogSubsys, "procmon"),
	}
	s.debug = logger.NewDebugLogger(s.log, false)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan walks procfs once and returns the number of inserted and removed
// processes.
func (s *Scanner) Scan() (added, removed int, err error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list processes: %w", err)
	}

	alive := make(map[uint32]struct{}, len(procs))
	for _, p := range procs {
		alive[uint32(p.PID)] = struct{}{}
	}

	for _, pid := range s.table.Keys() {
		if _, ok := alive[pid]; ok {
			continue
		}
		if proc, ok := s.table.Lookup(pid); ok {
			s.emit(eventapi.MSG_PROCEXIT, *proc)
		}
		if err := s.table.Delete(pid); err == nil {
			removed++
		}
	}

	for _, p := range procs {
		pid := uint32(p.PID)
		if _, ok := s.table.Lookup(pid); ok {
			continue
		}
		info, err := s.procInfo(p)
		if err != nil {
			// raced with exit
			if !errors.Is(err, os.ErrNotExist) {
				errormetrics.ErrorTotalInc(errormetrics.ProcfsReadFailed)
				s.log.WithError(err).WithField(logfields.PID, pid).Debug("failed to read process")
			}
			continue
		}
		if err := s.table.Update(pid, info, ebpf.UpdateNoExist); err != nil {
			s.log.WithError(err).WithField(logfields.PID, pid).Debug("failed to insert process")
			continue
		}
		added++
		s.emit(eventapi.MSG_PROCEXEC, info)
	}
	return added, removed, nil
}

// Run scans once, then every interval until ctx is done. A zero interval
// only does the initial scan.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	scan := func() {
		added, removed, err := s.Scan()
		if err != nil {
			s.log.WithError(err).Warn("procfs scan failed")
			return
		}
		s.debug.Debugf("procfs scan done: added %d removed %d entries %d", added, removed, s.table.Len())
	}

	scan()
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scan()
		}
	}
}

func (s *Scanner) emit(op uint8, proc eventapi.ProcInfo) {
	if s.rb == nil {
		return
	}
	_, _ = capture.Capture(s.rb, &proc, op, true, s.fill)
}

func (s *Scanner) fill(proc *eventapi.ProcInfo, ev *eventapi.Event) error {
	cfg := s.config.Lookup(0)
	if cfg == nil {
		return capture.ErrConfigMissing
	}
	if !s.filter.Allow(0, cfg.FilterMask, cfg.DenyList, proc) {
		return capture.ErrFilterReject
	}
	var dst *eventapi.ProcInfo
	var ok bool
	if ev.Op() == eventapi.MSG_PROCEXIT {
		dst, ok = ev.ProcessExit()
	} else {
		dst, ok = ev.ProcessExec()
	}
	if !ok {
		return capture.ErrVariantMismatch
	}
	utils.CopyProc(kernel.Host{}, proc, dst)
	return nil
}

func (s *Scanner) procInfo(p procfs.Proc) (eventapi.ProcInfo, error) {
	var info eventapi.ProcInfo

	stat, err := p.Stat()
	if err != nil {
		return info, err
	}
	status, err := p.NewStatus()
	if err != nil {
		return info, err
	}
	inh, prm, eff, err := readCaps(filepath.Join(s.procDir, strconv.Itoa(p.PID), "status"))
	if err != nil {
		return info, err
	}

	info.PID = uint32(p.PID)
	info.TID = uint32(p.PID)
	info.PPID = uint32(stat.PPID)
	info.Creds = eventapi.Cred{
		UID:            uint32(status.UIDs[0]),
		EUID:           uint32(status.UIDs[1]),
		CapInheritable: inh,
		CapPermitted:   prm,
		CapEffective:   eff,
	}
	info.AUID = s.loginUID(p.PID)
	eventapi.SetCString(info.Filename[:], stat.Comm)

	// kernel threads have neither an executable nor a command line
	if exe, err := p.Executable(); err == nil {
		eventapi.SetCString(info.BinaryPath[:], exe)
	}
	if args, err := p.CmdLine(); err == nil && len(args) > 1 {
		eventapi.SetCString(info.Args[:], strings.Join(args[1:], " "))
	}
	if cgroups, err := p.Cgroups(); err == nil {
		for _, cg := range cgroups {
			// the unified hierarchy
			if cg.HierarchyID != 0 {
				continue
			}
			info.Cgroup.CgroupID = cgroupID(cg.Path)
			eventapi.SetCString(info.Cgroup.CgroupName[:], cgroupName(cg.Path))
		}
	}
	return info, nil
}

// loginUID returns the audit login uid, unset (-1) when unavailable.
func (s *Scanner) loginUID(pid int) uint32 {
	data, err := os.ReadFile(filepath.Join(s.procDir, strconv.Itoa(pid), "loginuid"))
	if err != nil {
		return ^uint32(0)
	}
	auid, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return ^uint32(0)
	}
	return uint32(auid)
}

// cgroupName is the last element of a cgroup path with the container
// runtime decoration removed, the container id for docker scopes.
func cgroupName(path string) string {
	name := filepath.Base(path)
	if name == "/" || name == "." {
		return ""
	}
	name = strings.TrimSuffix(name, ".scope")
	for _, prefix := range []string{"docker-", "cri-containerd-", "crio-", "libpod-"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return name
}
