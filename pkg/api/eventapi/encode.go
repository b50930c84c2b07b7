// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventapi

import (
	"encoding/binary"
)

var le = binary.LittleEndian

type encoder struct {
	buf []byte
	off int
}

func (e *encoder) u8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u16(v uint16) {
	le.PutUint16(e.buf[e.off:], v)
	e.off += 2
}

func (e *encoder) u32(v uint32) {
	le.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *encoder) u64(v uint64) {
	le.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *encoder) bytes(b []byte) {
	e.off += copy(e.buf[e.off:], b)
}

func (e *encoder) cred(c *Cred) {
	e.u32(c.UID)
	e.u32(c.EUID)
	e.u64(c.CapInheritable)
	e.u64(c.CapPermitted)
	e.u64(c.CapEffective)
	e.u32(uint32(c.SecureExec))
}

func (e *encoder) proc(p *ProcInfo) {
	e.u32(p.PID)
	e.u32(p.TID)
	e.u32(p.PPID)
	e.cred(&p.Creds)
	e.u32(p.AUID)
	e.bool(p.Clonned)
	e.bytes(p.Filename[:])
	e.bytes(p.BinaryPath[:])
	e.bytes(p.Args[:])
	e.u64(p.Cgroup.CgroupID)
	e.bytes(p.Cgroup.CgroupName[:])
}

func (e *encoder) file(f *FileMsg) {
	e.proc(&f.Process)
	e.u8(f.Hook)
	e.bytes(f.Path[:])
	e.bytes(f.Name[:])
	e.u32(f.Flags)
	e.u32(f.UID)
	e.u32(f.GID)
	e.u16(f.IMode)
}

// MarshalTo encodes g into buf using the fixed record layout and returns
// RecordSize. buf must hold at least RecordSize bytes. The payload region
// past the encoded variant is zeroed, so a record never carries bytes that
// do not belong to its variant.
func (g *GenericEvent) MarshalTo(buf []byte) int {
	buf = buf[:RecordSize]
	e := encoder{buf: buf}
	e.u64(g.Ktime)
	e.u8(g.Event.op)
	switch g.Event.op {
	case MSG_PROCEXEC, MSG_PROCEXIT:
		e.proc(&g.Event.payload.Process)
	case MSG_FILE:
		e.file(&g.Event.payload)
	}
	clear(buf[e.off:])
	return RecordSize
}
