// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventapi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MsgHeader is the leading part of every record.
type MsgHeader struct {
	Ktime uint64
	Op    uint8
}

// MsgProcessExec is a decoded ProcessExec record.
type MsgProcessExec struct {
	Ktime   uint64
	Process ProcInfo
}

// MsgProcessExit is a decoded ProcessExit record.
type MsgProcessExit struct {
	Ktime   uint64
	Process ProcInfo
}

// MsgFile is a decoded File record.
type MsgFile struct {
	Ktime uint64
	File  FileMsg
}

func (m *MsgProcessExec) Op() uint8 { return MSG_PROCEXEC }
func (m *MsgProcessExit) Op() uint8 { return MSG_PROCEXIT }
func (m *MsgFile) Op() uint8        { return MSG_FILE }

func (m *MsgProcessExec) KtimeNs() uint64 { return m.Ktime }
func (m *MsgProcessExit) KtimeNs() uint64 { return m.Ktime }
func (m *MsgFile) KtimeNs() uint64        { return m.Ktime }

// ReadHeader decodes the record header and checks the tag.
func ReadHeader(r *bytes.Reader, op uint8) (MsgHeader, error) {
	var hdr MsgHeader
	if r.Len() < RecordSize {
		return hdr, fmt.Errorf("short record: %d bytes, want %d", r.Len(), RecordSize)
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("failed to read record header: %w", err)
	}
	if hdr.Op != op {
		return hdr, fmt.Errorf("unexpected tag %d, want %d", hdr.Op, op)
	}
	return hdr, nil
}

func DecodeProcInfo(r *bytes.Reader, op uint8) (uint64, *ProcInfo, error) {
	hdr, err := ReadHeader(r, op)
	if err != nil {
		return 0, nil, err
	}
	p := &ProcInfo{}
	if err := binary.Read(r, binary.LittleEndian, p); err != nil {
		return 0, nil, fmt.Errorf("failed to read process payload: %w", err)
	}
	return hdr.Ktime, p, nil
}

func DecodeFileMsg(r *bytes.Reader) (*MsgFile, error) {
	hdr, err := ReadHeader(r, MSG_FILE)
	if err != nil {
		return nil, err
	}
	m := &MsgFile{Ktime: hdr.Ktime}
	if err := binary.Read(r, binary.LittleEndian, &m.File); err != nil {
		return nil, fmt.Errorf("failed to read file payload: %w", err)
	}
	return m, nil
}
