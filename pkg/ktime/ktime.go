// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ktime

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ToTime converts a monotonic ktime into wall clock time.
func ToTime(ktime uint64) time.Time {
	decodedTime, err := DecodeKtime(int64(ktime), true)
	if err != nil {
		logrus.WithError(err).WithField("ktime", ktime).Warn("Failed to decode ktime")
		return time.Now()
	}
	return decodedTime
}

// NowNs returns the monotonic clock in nanoseconds, or 0 if it is unavailable.
func NowNs() uint64 {
	d, err := Monotonic()
	if err != nil {
		return 0
	}
	return uint64(d)
}
