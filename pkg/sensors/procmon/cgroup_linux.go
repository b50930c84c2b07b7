// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package procmon

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

const cgroupRoot = "/sys/fs/cgroup"

// cgroupID returns the cgroup v2 id, the inode of the cgroup directory.
func cgroupID(path string) uint64 {
	var st unix.Stat_t
	if err := unix.Stat(filepath.Join(cgroupRoot, path), &st); err != nil {
		return 0
	}
	return st.Ino
}
