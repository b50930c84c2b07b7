// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package procmon

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cilium/ebpf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/observer"
	"github.com/ruidanwang/docker-sys-monitor/pkg/processfilter"
	"github.com/ruidanwang/docker-sys-monitor/pkg/ringbuf"
)

// beyond any pid_max
const stalePid = 1 << 30

func requireProcFS(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("procfs not available")
	}
}

func newTable(t *testing.T) Table {
	t.Helper()
	table, err := NewTable(1 << 16)
	require.NoError(t, err)
	return table
}

func staleProc() eventapi.ProcInfo {
	var p eventapi.ProcInfo
	p.PID = stalePid
	p.TID = stalePid
	eventapi.SetCString(p.Filename[:], "gone")
	return p
}

func TestCgroupName(t *testing.T) {
	for path, want := range map[string]string{
		"/":                                 "",
		"/user.slice/user-1000.slice":       "user-1000.slice",
		"/system.slice/docker-abc123.scope": "abc123",
		"/kubepods/besteffort/pod1/cri-containerd-f00.scope": "f00",
		"/docker/0123456789ab":                               "0123456789ab",
	} {
		assert.Equal(t, want, cgroupName(path), path)
	}
}

func TestScanSelf(t *testing.T) {
	requireProcFS(t)
	table := newTable(t)
	require.NoError(t, table.Update(stalePid, staleProc(), ebpf.UpdateAny))

	s, err := NewScanner("/proc", table)
	require.NoError(t, err)
	added, removed, err := s.Scan()
	require.NoError(t, err)
	assert.Positive(t, added)
	assert.Equal(t, 1, removed)

	_, ok := table.Lookup(stalePid)
	assert.False(t, ok)

	self, ok := table.Lookup(uint32(os.Getpid()))
	require.True(t, ok)
	assert.Equal(t, uint32(os.Getpid()), self.PID)
	assert.Equal(t, uint32(os.Getppid()), self.PPID)
	assert.Equal(t, uint32(os.Getuid()), self.Creds.UID)
	assert.Equal(t, uint32(os.Geteuid()), self.Creds.EUID)
	assert.NotEmpty(t, eventapi.CString(self.Filename[:]))
	assert.NotEmpty(t, eventapi.CString(self.BinaryPath[:]))

	// a rescan keeps known processes
	_, _, err = s.Scan()
	require.NoError(t, err)
	_, ok = table.Lookup(uint32(os.Getpid()))
	assert.True(t, ok)
}

func TestScanEmitsExit(t *testing.T) {
	requireProcFS(t)
	table := newTable(t)
	require.NoError(t, table.Update(stalePid, staleProc(), ebpf.UpdateAny))

	rb, err := ringbuf.New("test", 4)
	require.NoError(t, err)
	config := NewConfig()
	require.NoError(t, config.Update(0, confapi.ProcMonConfig{}))

	s, err := NewScanner("/proc", table, WithEvents(rb, config, processfilter.Maps{}))
	require.NoError(t, err)
	_, _, err = s.Scan()
	require.NoError(t, err)
	require.NoError(t, rb.Close())

	rd := ringbuf.NewReader(rb)
	rec, err := rd.Read()
	require.NoError(t, err)
	op, events, err := observer.HandlePerfData(rec.RawSample)
	require.NoError(t, err)
	assert.Equal(t, eventapi.MSG_PROCEXIT, op)
	require.Len(t, events, 1)
	exit, ok := events[0].(*eventapi.MsgProcessExit)
	require.True(t, ok)
	assert.Equal(t, uint32(stalePid), exit.Process.PID)
	assert.Equal(t, "gone", eventapi.CString(exit.Process.Filename[:]))

	// the remaining records are execs
	for {
		rec, err := rd.Read()
		if errors.Is(err, ringbuf.ErrClosed) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, eventapi.MSG_PROCEXEC, rec.RawSample[eventapi.OpOffset])
	}
}

func TestScanEventsNeedConfig(t *testing.T) {
	requireProcFS(t)
	table := newTable(t)
	rb, err := ringbuf.New("test", 4)
	require.NoError(t, err)

	s, err := NewScanner("/proc", table, WithEvents(rb, NewConfig(), processfilter.Maps{}))
	require.NoError(t, err)
	added, _, err := s.Scan()
	require.NoError(t, err)
	assert.Positive(t, added, "the table is seeded regardless")
	require.NoError(t, rb.Close())

	_, err = ringbuf.NewReader(rb).Read()
	assert.ErrorIs(t, err, ringbuf.ErrClosed)
	assert.Zero(t, rb.Stats().Submitted)
}

func TestRunOnce(t *testing.T) {
	requireProcFS(t)
	table := newTable(t)
	s, err := NewScanner("/proc", table)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), 0))
	assert.Positive(t, table.Len())
}

func TestDecodeProcessRecords(t *testing.T) {
	rb, err := ringbuf.New("test", 2)
	require.NoError(t, err)
	for _, op := range []uint8{eventapi.MSG_PROCEXEC, eventapi.MSG_PROCEXIT} {
		e, err := rb.Reserve(op, true)
		require.NoError(t, err)
		var p *eventapi.ProcInfo
		if op == eventapi.MSG_PROCEXEC {
			p, _ = e.Event().Event.ProcessExec()
		} else {
			p, _ = e.Event().Event.ProcessExit()
		}
		p.PID = 7
		e.Submit()
	}
	require.NoError(t, rb.Close())

	rd := ringbuf.NewReader(rb)
	rec, err := rd.Read()
	require.NoError(t, err)
	_, events, err := observer.HandlePerfData(rec.RawSample)
	require.NoError(t, err)
	require.IsType(t, &eventapi.MsgProcessExec{}, events[0])
	assert.Equal(t, uint32(7), events[0].(*eventapi.MsgProcessExec).Process.PID)

	rec, err = rd.Read()
	require.NoError(t, err)
	_, events, err = observer.HandlePerfData(rec.RawSample)
	require.NoError(t, err)
	require.IsType(t, &eventapi.MsgProcessExit{}, events[0])
}
