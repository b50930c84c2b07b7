// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package encoder

import (
	"fmt"
	"time"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/ops"
	"github.com/ruidanwang/docker-sys-monitor/pkg/ktime"
	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
	"github.com/ruidanwang/docker-sys-monitor/pkg/strutils"
)

// Event is the exported form of a decoded record. Exactly one of the
// variant fields is set.
type Event struct {
	Time        time.Time     `json:"time"`
	NodeName    string        `json:"node_name,omitempty"`
	ProcessExec *ProcessEvent `json:"process_exec,omitempty"`
	ProcessExit *ProcessEvent `json:"process_exit,omitempty"`
	File        *FileEvent    `json:"file,omitempty"`
}

type ProcessEvent struct {
	Process *Process `json:"process"`
}

type FileEvent struct {
	Process *Process `json:"process"`
	Hook    string   `json:"hook"`
	Path    string   `json:"path"`
	Name    string   `json:"name,omitempty"`
	Flags   uint32   `json:"flags"`
	UID     uint32   `json:"uid"`
	GID     uint32   `json:"gid"`
	Mode    string   `json:"mode"`
}

type Process struct {
	PID        uint32        `json:"pid"`
	TID        uint32        `json:"tid"`
	PPID       uint32        `json:"ppid"`
	UID        uint32        `json:"uid"`
	EUID       uint32        `json:"euid"`
	AUID       uint32        `json:"auid"`
	Name       string        `json:"name"`
	Binary     string        `json:"binary"`
	Arguments  string        `json:"arguments,omitempty"`
	Clone      bool          `json:"clone,omitempty"`
	Cgroup     *Cgroup       `json:"cgroup,omitempty"`
	Caps       *Capabilities `json:"caps"`
	SecureExec string        `json:"secure_exec,omitempty"`
}

type Cgroup struct {
	ID   uint64 `json:"id"`
	Name string `json:"name,omitempty"`
}

type Capabilities struct {
	Effective   []string `json:"effective,omitempty"`
	Permitted   []string `json:"permitted,omitempty"`
	Inheritable []string `json:"inheritable,omitempty"`
}

// ToEvent converts a decoded message into its exported form.
func ToEvent(msg notify.Message, nodeName string) (*Event, error) {
	ev := &Event{
		Time:     ktime.ToTime(msg.KtimeNs()),
		NodeName: nodeName,
	}
	switch m := msg.(type) {
	case *eventapi.MsgProcessExec:
		ev.ProcessExec = &ProcessEvent{Process: toProcess(&m.Process)}
	case *eventapi.MsgProcessExit:
		ev.ProcessExit = &ProcessEvent{Process: toProcess(&m.Process)}
	case *eventapi.MsgFile:
		f := &m.File
		ev.File = &FileEvent{
			Process: toProcess(&f.Process),
			Hook:    ops.HookCode(f.Hook).String(),
			Path:    strutils.UTF8FromBPFBytes(f.Path[:]),
			Name:    strutils.UTF8FromBPFBytes(f.Name[:]),
			Flags:   f.Flags,
			UID:     f.UID,
			GID:     f.GID,
			Mode:    fmt.Sprintf("%#o", f.IMode),
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, ops.OpCode(msg.Op()))
	}
	return ev, nil
}

func toProcess(p *eventapi.ProcInfo) *Process {
	proc := &Process{
		PID:        p.PID,
		TID:        p.TID,
		PPID:       p.PPID,
		UID:        p.Creds.UID,
		EUID:       p.Creds.EUID,
		AUID:       p.AUID,
		Name:       strutils.UTF8FromBPFBytes(p.Filename[:]),
		Binary:     strutils.UTF8FromBPFBytes(p.BinaryPath[:]),
		Arguments:  strutils.UTF8FromBPFBytes(p.Args[:]),
		Clone:      p.Clonned,
		SecureExec: p.Creds.SecureExec.String(),
		Caps: &Capabilities{
			Effective:   capNames(p.Creds.CapEffective),
			Permitted:   capNames(p.Creds.CapPermitted),
			Inheritable: capNames(p.Creds.CapInheritable),
		},
	}
	if p.Cgroup.CgroupID != 0 || p.Cgroup.CgroupName[0] != 0 {
		proc.Cgroup = &Cgroup{
			ID:   p.Cgroup.CgroupID,
			Name: strutils.UTF8FromBPFBytes(p.Cgroup.CgroupName[:]),
		}
	}
	return proc
}
