// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package eventsource fires the capture hooks from host file system
// activity, standing in for the LSM attachment of the kernel programs.
package eventsource

import (
	"context"
	"errors"

	"github.com/ruidanwang/docker-sys-monitor/pkg/kernel"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/capture"
)

var ErrNotSupported = errors.New("event source not supported on this platform")

// Hook is a capture probe taking the opened file as argument 0 of ctx.
type Hook func(ctx *kernel.LsmContext) (capture.Outcome, error)

// Source produces hook invocations until ctx is done.
type Source interface {
	Run(ctx context.Context) error
}

type Config struct {
	// Mount points to watch, every open on these mounts fires the hook.
	Paths []string
	// Workers is the number of concurrent hook invocations. Worker i runs
	// as execution context i.
	Workers int
}
