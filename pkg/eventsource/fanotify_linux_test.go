// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package eventsource

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/capture"
)

func TestFileFromFd(t *testing.T) {
	name := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(name, []byte("x"), 0o640))
	fh, err := os.Open(name)
	require.NoError(t, err)
	defer fh.Close()

	file, err := fileFromFd(int(fh.Fd()), unix.FAN_OPEN)
	require.NoError(t, err)
	assert.Equal(t, name, file.FPath.Name)
	assert.Equal(t, uint32(fmodeRead), file.FMode)
	assert.Equal(t, uint16(unix.S_IFREG|0o640), file.FInode.IMode)
	assert.Equal(t, uint32(os.Getuid()), file.FInode.IUID.Val)
	assert.Equal(t, uint32(os.Getgid()), file.FInode.IGID.Val)

	file, err = fileFromFd(int(fh.Fd()), unix.FAN_OPEN_EXEC)
	require.NoError(t, err)
	assert.NotZero(t, file.FMode&kernel.FMODE_EXEC)

	_, err = fileFromFd(-1, unix.FAN_OPEN)
	assert.Error(t, err)
}

func TestFanotifyOpens(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "watched")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	found := make(chan *kernel.File, 1)
	src := NewFanotify(Config{Paths: []string{dir}, Workers: 2}, func(ctx *kernel.LsmContext) (capture.Outcome, error) {
		file, _ := ctx.Arg(0).(*kernel.File)
		if file != nil && file.FPath.Name == target {
			select {
			case found <- file:
			default:
			}
		}
		return capture.Submitted, nil
	})
	fd, err := src.init()
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOSYS) {
		t.Skipf("fanotify not available: %v", err)
	}
	require.NoError(t, err)
	unix.Close(fd)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// opens by this process are ignored, a child does the open
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, exec.Command("cat", target).Run())
		select {
		case file := <-found:
			assert.Zero(t, file.FMode&kernel.FMODE_EXEC)
			return
		case <-deadline:
			t.Fatal("open of the watched file was not reported")
		case <-time.After(100 * time.Millisecond):
		}
	}
}
