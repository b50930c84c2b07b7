// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

//go:build !linux

package eventsource

import "context"

type Fanotify struct{}

func NewFanotify(Config, Hook) *Fanotify { return &Fanotify{} }

func (*Fanotify) Run(context.Context) error { return ErrNotSupported }
