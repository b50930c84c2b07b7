// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package kernel

// Subset of kernel objects read by the sensors. Field names follow the
// kernel structures they model.

// FMODE_EXEC is set in file.f_mode for opens done on behalf of exec.
const FMODE_EXEC uint32 = 1 << 5

type KUID struct {
	Val uint32
}

type KGID struct {
	Val uint32
}

type Inode struct {
	IMode uint16
	IUID  KUID
	IGID  KGID
}

// Path stands for struct path. Name is what d_path resolves it to.
type Path struct {
	Name string
}

type File struct {
	FMode  uint32
	FFlags uint32
	FPath  Path
	FInode *Inode
}
