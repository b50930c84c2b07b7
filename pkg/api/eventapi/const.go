// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventapi

// Buffer capacities shared with the kernel side. They are part of the wire
// format, changing any of them requires a format version bump.
const (
	MAX_FILENAME_SIZE = 32
	MAX_ARGS_SIZE     = 1024
	MAX_FILE_PATH     = 1024
	MAX_FILE_PREFIX   = 256
	DOCKER_ID_LENGTH  = 128
)

// Message codes, written as the variant tag of every record.
const (
	MSG_PROCEXEC uint8 = 0
	MSG_PROCEXIT uint8 = 1
	MSG_FILE     uint8 = 2
)

// File hook codes stored in FileMsg.Hook.
const (
	HOOK_FILE_OPEN     uint8 = 0
	HOOK_PATH_TRUNCATE uint8 = 1
	HOOK_PATH_UNLINK   uint8 = 2
	HOOK_PATH_CHMOD    uint8 = 3
	HOOK_PATH_CHOWN    uint8 = 4
	HOOK_SB_MOUNT      uint8 = 5
	HOOK_FILE_IOCTL    uint8 = 6
	HOOK_MMAP_FILE     uint8 = 7
)

// Wire sizes of the packed little-endian encoding.
const (
	CgroupSize   = 8 + DOCKER_ID_LENGTH
	CredSize     = 4 + 4 + 8 + 8 + 8 + 4
	ProcInfoSize = 4 + 4 + 4 + CredSize + 4 + 1 +
		MAX_FILENAME_SIZE + MAX_FILE_PATH + MAX_ARGS_SIZE + CgroupSize
	FileMsgSize = ProcInfoSize + 1 + MAX_FILE_PATH + MAX_FILENAME_SIZE +
		4 + 4 + 4 + 2

	// PayloadSize is the width of the variant storage, the largest variant.
	PayloadSize = FileMsgSize

	KtimeOffset   = 0
	OpOffset      = 8
	PayloadOffset = 9

	// RecordSize is the size of every record in the event ring.
	RecordSize = PayloadOffset + PayloadSize
)
