// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventapi

import (
	"bytes"
	"strings"
)

// SecureExec marks exec transitions that changed privileges.
type SecureExec uint32

const (
	SecureExecSetuid   SecureExec = 0b001
	SecureExecSetgid   SecureExec = 0b010
	SecureExecFileCaps SecureExec = 0b100
)

func (s SecureExec) Contains(o SecureExec) bool { return s&o == o }

func (s SecureExec) String() string {
	var flags []string
	if s.Contains(SecureExecSetuid) {
		flags = append(flags, "SETUID")
	}
	if s.Contains(SecureExecSetgid) {
		flags = append(flags, "SETGID")
	}
	if s.Contains(SecureExecFileCaps) {
		flags = append(flags, "FILE_CAPS")
	}
	return strings.Join(flags, "|")
}

// Cred holds the task credentials captured at exec time.
type Cred struct {
	UID            uint32
	EUID           uint32
	CapInheritable uint64
	CapPermitted   uint64
	CapEffective   uint64
	SecureExec     SecureExec
}

type Cgroup struct {
	CgroupID   uint64
	CgroupName [DOCKER_ID_LENGTH]byte
}

// ProcInfo is a process snapshot. Buffers have fixed capacity, content
// beyond capacity is truncated.
type ProcInfo struct {
	PID     uint32
	TID     uint32
	PPID    uint32
	Creds   Cred
	AUID    uint32
	Clonned bool
	// executable name
	Filename [MAX_FILENAME_SIZE]byte
	// full binary path
	BinaryPath [MAX_FILE_PATH]byte
	// command line arguments without argv[0]
	Args   [MAX_ARGS_SIZE]byte
	Cgroup Cgroup
}

// FileMsg is a file hook record.
type FileMsg struct {
	Process ProcInfo
	Hook    uint8
	// full path, full dir path for unlink, or mount path
	Path [MAX_FILE_PATH]byte
	// file or device name
	Name [MAX_FILENAME_SIZE]byte
	// flags passed to open() or mount flags
	Flags uint32
	UID   uint32
	GID   uint32
	IMode uint16
}

// Event is a tagged variant. The storage is sized to the largest variant:
// process variants use the embedded ProcInfo of the file payload.
type Event struct {
	op      uint8
	payload FileMsg
}

func (e *Event) Op() uint8 { return e.op }

// SetOp writes the variant tag.
func (e *Event) SetOp(op uint8) { e.op = op }

func (e *Event) ProcessExec() (*ProcInfo, bool) {
	if e.op != MSG_PROCEXEC {
		return nil, false
	}
	return &e.payload.Process, true
}

func (e *Event) ProcessExit() (*ProcInfo, bool) {
	if e.op != MSG_PROCEXIT {
		return nil, false
	}
	return &e.payload.Process, true
}

func (e *Event) File() (*FileMsg, bool) {
	if e.op != MSG_FILE {
		return nil, false
	}
	return &e.payload, true
}

type GenericEvent struct {
	Ktime uint64
	Event Event
}

// Stamp writes the header of a freshly reserved record.
func (g *GenericEvent) Stamp(ktime uint64, op uint8) {
	g.Event.op = op
	g.Ktime = ktime
}

// CString returns the NUL terminated prefix of b.
func CString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// SetCString copies s into dst, truncating to capacity and clearing the tail.
func SetCString(dst []byte, s string) {
	n := copy(dst, s)
	clear(dst[n:])
}
