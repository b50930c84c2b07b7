// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package encoder

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
)

type unknownMsg struct{}

func (unknownMsg) Op() uint8       { return 200 }
func (unknownMsg) KtimeNs() uint64 { return 0 }

func testProc() eventapi.ProcInfo {
	var p eventapi.ProcInfo
	p.PID = 4242
	p.TID = 4242
	p.PPID = 1
	p.Creds.UID = 1000
	p.Creds.EUID = 1000
	p.AUID = 1000
	eventapi.SetCString(p.Filename[:], "curl")
	eventapi.SetCString(p.BinaryPath[:], "/usr/bin/curl")
	eventapi.SetCString(p.Args[:], "example.com")
	return p
}

func TestCompactEncoder_ExecEventToString(t *testing.T) {
	p := NewCompactEncoder(os.Stdout, Never, false)

	_, err := p.EventToString(&Event{ProcessExec: &ProcessEvent{}})
	assert.ErrorIs(t, err, ErrMissingProcessInfo)

	msg := &eventapi.MsgProcessExec{Ktime: 1, Process: testProc()}
	ev, err := ToEvent(msg, "my-node")
	require.NoError(t, err)
	result, err := p.EventToString(ev)
	require.NoError(t, err)
	assert.Equal(t, "🚀 process my-node /usr/bin/curl example.com", result)

	// containerized process
	msg.Process.Cgroup.CgroupID = 77
	eventapi.SetCString(msg.Process.Cgroup.CgroupName[:], "abcdef")
	ev, err = ToEvent(msg, "my-node")
	require.NoError(t, err)
	result, err = p.EventToString(ev)
	require.NoError(t, err)
	assert.Equal(t, "🚀 process my-node/abcdef /usr/bin/curl example.com", result)
}

func TestCompactEncoder_ExitEventToString(t *testing.T) {
	p := NewCompactEncoder(os.Stdout, Never, false)

	_, err := p.EventToString(&Event{ProcessExit: &ProcessEvent{}})
	assert.ErrorIs(t, err, ErrMissingProcessInfo)

	ev, err := ToEvent(&eventapi.MsgProcessExit{Process: testProc()}, "my-node")
	require.NoError(t, err)
	result, err := p.EventToString(ev)
	require.NoError(t, err)
	assert.Equal(t, "💥 exit    my-node /usr/bin/curl example.com", result)
}

func TestCompactEncoder_FileEventToString(t *testing.T) {
	p := NewCompactEncoder(os.Stdout, Never, false)

	_, err := p.EventToString(&Event{File: &FileEvent{}})
	assert.ErrorIs(t, err, ErrMissingProcessInfo)

	msg := &eventapi.MsgFile{}
	msg.File.Process = testProc()
	msg.File.Hook = eventapi.HOOK_FILE_OPEN
	msg.File.UID = 0
	msg.File.GID = 0
	msg.File.IMode = 0o100644
	eventapi.SetCString(msg.File.Path[:], "/etc/passwd")

	ev, err := ToEvent(msg, "my-node")
	require.NoError(t, err)
	assert.Equal(t, "file_open", ev.File.Hook)
	result, err := p.EventToString(ev)
	require.NoError(t, err)
	assert.Equal(t, "📂 open    my-node /usr/bin/curl /etc/passwd 0:0 0100644", result)
}

func TestCompactEncoder_Caps(t *testing.T) {
	p := NewCompactEncoder(os.Stdout, Never, false)

	proc := testProc()
	proc.Creds.CapEffective = 1<<capSysAdmin | 1<<0
	ev, err := ToEvent(&eventapi.MsgProcessExec{Process: proc}, "my-node")
	require.NoError(t, err)
	assert.Equal(t, []string{"CAP_CHOWN", "CAP_SYS_ADMIN"}, ev.ProcessExec.Process.Caps.Effective)

	result, err := p.EventToString(ev)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result, "🚀 process my-node /usr/bin/curl example.com "))
	assert.True(t, strings.HasSuffix(result, "🛑 CAP_SYS_ADMIN"))
}

func TestCompactEncoder_Encode(t *testing.T) {
	var buf bytes.Buffer
	p := NewCompactEncoder(&buf, Never, true)

	assert.ErrorIs(t, p.Encode("not an event"), ErrInvalidEvent)

	ev, err := ToEvent(&eventapi.MsgProcessExit{Process: testProc()}, "n")
	require.NoError(t, err)
	require.NoError(t, p.Encode(ev))
	line := strings.TrimSuffix(buf.String(), "\n")
	assert.True(t, strings.HasSuffix(line, "💥 exit    n /usr/bin/curl example.com"))
	assert.NotEqual(t, "💥 exit    n /usr/bin/curl example.com", line)
}

func TestToEventUnknown(t *testing.T) {
	_, err := ToEvent(unknownMsg{}, "")
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestCapNames(t *testing.T) {
	assert.Nil(t, capNames(0))
	assert.Equal(t, []string{"CAP_BPF", "CAP_63"}, capNames(1<<39|1<<63))
}

func TestJSONListener(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(NewJSONEncoder(&buf), "my-node", &buf)

	proc := testProc()
	proc.Creds.SecureExec = eventapi.SecureExecSetuid
	require.NoError(t, l.Notify(&eventapi.MsgProcessExec{Ktime: 5, Process: proc}))

	msg := &eventapi.MsgFile{}
	msg.File.Process = testProc()
	eventapi.SetCString(msg.File.Path[:], "/tmp/x\xff")
	require.NoError(t, l.Notify(msg))

	assert.ErrorIs(t, l.Notify(unknownMsg{}), ErrUnknownEventType)
	assert.NoError(t, l.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var exec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &exec))
	assert.Equal(t, "my-node", exec["node_name"])
	pe := exec["process_exec"].(map[string]any)["process"].(map[string]any)
	assert.Equal(t, "/usr/bin/curl", pe["binary"])
	assert.Equal(t, "SETUID", pe["secure_exec"])
	assert.EqualValues(t, 4242, pe["pid"])

	var file Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &file))
	require.NotNil(t, file.File)
	assert.Equal(t, "/tmp/x�", file.File.Path)
	assert.Nil(t, file.ProcessExec)
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestListenerClosesWriter(t *testing.T) {
	w := &closeRecorder{}
	l := NewListener(NewCompactEncoder(w, Never, false), "", w)
	require.NoError(t, l.Close())
	assert.True(t, w.closed)
}
