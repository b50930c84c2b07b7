// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ops

import (
	"fmt"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
)

type OpCode int

// OpCodes must be in sync with the variant tags of eventapi.Event and
// should have a human-readable representation in OpCodeStrings.
const (
	MSG_OP_PROCEXEC OpCode = OpCode(eventapi.MSG_PROCEXEC)
	MSG_OP_PROCEXIT OpCode = OpCode(eventapi.MSG_PROCEXIT)
	MSG_OP_FILE     OpCode = OpCode(eventapi.MSG_FILE)
)

var OpCodeStrings = map[OpCode]string{
	MSG_OP_PROCEXEC: "ProcessExec",
	MSG_OP_PROCEXIT: "ProcessExit",
	MSG_OP_FILE:     "File",
}

func (op OpCode) String() string {
	s, ok := OpCodeStrings[op]
	if !ok {
		return fmt.Sprintf("Unknown(%d)", op)
	}
	return s
}

type HookCode uint8

const (
	HOOK_FILE_OPEN     = HookCode(eventapi.HOOK_FILE_OPEN)
	HOOK_PATH_TRUNCATE = HookCode(eventapi.HOOK_PATH_TRUNCATE)
	HOOK_PATH_UNLINK   = HookCode(eventapi.HOOK_PATH_UNLINK)
	HOOK_PATH_CHMOD    = HookCode(eventapi.HOOK_PATH_CHMOD)
	HOOK_PATH_CHOWN    = HookCode(eventapi.HOOK_PATH_CHOWN)
	HOOK_SB_MOUNT      = HookCode(eventapi.HOOK_SB_MOUNT)
	HOOK_FILE_IOCTL    = HookCode(eventapi.HOOK_FILE_IOCTL)
	HOOK_MMAP_FILE     = HookCode(eventapi.HOOK_MMAP_FILE)
	_HOOK_MAX          = HOOK_MMAP_FILE + 1
)

func (h HookCode) String() string {
	if h >= _HOOK_MAX {
		return fmt.Sprintf("Unknown(%d)", h)
	}
	return [...]string{
		HOOK_FILE_OPEN:     "file_open",
		HOOK_PATH_TRUNCATE: "path_truncate",
		HOOK_PATH_UNLINK:   "path_unlink",
		HOOK_PATH_CHMOD:    "path_chmod",
		HOOK_PATH_CHOWN:    "path_chown",
		HOOK_SB_MOUNT:      "sb_mount",
		HOOK_FILE_IOCTL:    "file_ioctl",
		HOOK_MMAP_FILE:     "mmap_file",
	}[h]
}
