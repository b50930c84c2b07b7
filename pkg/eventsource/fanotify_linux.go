// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger"
	"github.com/ruidanwang/docker-sys-monitor/pkg/logger/logfields"
	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/errormetrics"
)

const (
	fanMetaSize = int(unsafe.Sizeof(unix.FanotifyEventMetadata{}))

	// kernel f_mode bits
	fmodeRead  = 1 << 0
	fmodeWrite = 1 << 1

	pollTimeoutMs = 100
	jobQueueSize  = 4096
)

type job struct {
	pid  uint32
	file *kernel.File
}

// Fanotify watches mounts with fanotify and fires the file-open hook for
// every FAN_OPEN and FAN_OPEN_EXEC event.
type Fanotify struct {
	cfg  Config
	hook Hook
	self uint32
	log  logrus.FieldLogger
}

func NewFanotify(cfg Config, hook Hook) *Fanotify {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Fanotify{
		cfg:  cfg,
		hook: hook,
		self: uint32(os.Getpid()),
		log:  logger.GetLogger().WithField(logfields.LogSubsys, "eventsource"),
	}
}

func (f *Fanotify) init() (int, error) {
	fd, err := unix.FanotifyInit(unix.FAN_CLASS_NOTIF|unix.FAN_CLOEXEC|unix.FAN_NONBLOCK, unix.O_RDONLY|unix.O_LARGEFILE)
	if err != nil {
		return -1, fmt.Errorf("fanotify init: %w", err)
	}
	flags := uint(unix.FAN_MARK_ADD | unix.FAN_MARK_MOUNT)
	for _, p := range f.cfg.Paths {
		err := unix.FanotifyMark(fd, flags, unix.FAN_OPEN|unix.FAN_OPEN_EXEC, unix.AT_FDCWD, p)
		if errors.Is(err, unix.EINVAL) {
			// FAN_OPEN_EXEC needs linux 5.0
			f.log.WithField(logfields.Path, p).Info("FAN_OPEN_EXEC not supported, exec opens are not flagged")
			err = unix.FanotifyMark(fd, flags, unix.FAN_OPEN, unix.AT_FDCWD, p)
		}
		if err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("fanotify mark %s: %w", p, err)
		}
	}
	return fd, nil
}

// Run marks the configured mounts and dispatches events to the workers
// until ctx is done.
func (f *Fanotify) Run(ctx context.Context) error {
	fd, err := f.init()
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	f.log.WithFields(logrus.Fields{
		"paths":   f.cfg.Paths,
		"workers": f.cfg.Workers,
	}).Info("Watching file opens")

	jobs := make(chan job, jobQueueSize)
	var wg sync.WaitGroup
	for i := 0; i < f.cfg.Workers; i++ {
		wg.Add(1)
		go func(cpu uint32) {
			defer wg.Done()
			for j := range jobs {
				_, _ = f.hook(kernel.NewLsmContext(cpu, j.pid, j.pid, j.file))
			}
		}(uint32(i))
	}
	defer wg.Wait()
	defer close(jobs)

	buf := make([]byte, 64*1024)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for ctx.Err() == nil {
		n, err := unix.Poll(pfd, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("fanotify poll: %w", err)
		}
		if n == 0 {
			continue
		}
		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("fanotify read: %w", err)
		}
		f.dispatch(buf[:n], jobs)
	}
	return nil
}

func (f *Fanotify) dispatch(buf []byte, jobs chan<- job) {
	for offset := 0; offset+fanMetaSize <= len(buf); {
		meta := (*unix.FanotifyEventMetadata)(unsafe.Pointer(&buf[offset]))
		if int(meta.Event_len) < fanMetaSize {
			return
		}
		offset += int(meta.Event_len)

		if meta.Fd < 0 {
			continue
		}
		fd := int(meta.Fd)
		// our own opens would feed back into the ring
		if uint32(meta.Pid) == f.self {
			unix.Close(fd)
			continue
		}
		file, err := fileFromFd(fd, meta.Mask)
		unix.Close(fd)
		if err != nil {
			errormetrics.ErrorTotalInc(errormetrics.EventSourceResolveFailed)
			continue
		}
		select {
		case jobs <- job{pid: uint32(meta.Pid), file: file}:
		default:
			// workers are behind, the open is not observed
		}
	}
}

// fileFromFd builds the kernel file object of an fd handed out by
// fanotify. The open flags are those of the fanotify fd, the opener's
// flags are not exposed.
func fileFromFd(fd int, mask uint64) (*kernel.File, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("fstat: %w", err)
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, fmt.Errorf("fcntl: %w", err)
	}
	path, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(fd))
	if err != nil {
		return nil, fmt.Errorf("readlink: %w", err)
	}

	var fmode uint32
	switch flags & unix.O_ACCMODE {
	case unix.O_RDONLY:
		fmode = fmodeRead
	case unix.O_WRONLY:
		fmode = fmodeWrite
	case unix.O_RDWR:
		fmode = fmodeRead | fmodeWrite
	}
	if mask&unix.FAN_OPEN_EXEC != 0 {
		fmode |= kernel.FMODE_EXEC
	}
	return &kernel.File{
		FMode:  fmode,
		FFlags: uint32(flags),
		FPath:  kernel.Path{Name: path},
		FInode: &kernel.Inode{
			IMode: uint16(st.Mode),
			IUID:  kernel.KUID{Val: st.Uid},
			IGID:  kernel.KGID{Val: st.Gid},
		},
	}, nil
}
