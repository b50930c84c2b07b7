// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

//go:build !linux

package ktime

import "time"

var start = time.Now()

func Monotonic() (time.Duration, error) {
	return time.Since(start), nil
}

func DecodeKtime(ktime int64, _ bool) (time.Time, error) {
	return start.Add(time.Duration(ktime)), nil
}
