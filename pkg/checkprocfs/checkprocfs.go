// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

//go:build linux

package checkprocfs

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
)

// PROC_PID_INIT_INO, the inode of the initial pid namespace.
const hostPidNsIno = uint64(0xEFFFFFFC)

// IsHost reports whether procFS is the procfs of the host pid namespace.
// Inside a container without the host procfs mounted the process table
// only sees the container's processes.
func IsHost(procFS string) (bool, error) {
	var stat unix.Stat_t
	if err := unix.Stat(filepath.Join(procFS, "1", "ns", "pid"), &stat); err != nil {
		return false, err
	}
	return stat.Ino == hostPidNsIno, nil
}

// Check logs a warning when procFS does not appear to be the host's procfs.
func Check(procFS string) {
	log := logger.GetLogger().WithField(logfields.Path, procFS)
	host, err := IsHost(procFS)
	if err != nil {
		log.WithError(err).Info("Failed to check procfs pid namespace")
		return
	}
	if !host {
		log.WithFields(logrus.Fields{
			"expectedInode": hostPidNsIno,
		}).Warn("procfs does not appear to be host procfs")
	}
}
