// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package capture

import (
	"errors"
	"fmt"

	"github.com/ruidanwang/docker-sys-monitor/pkg/metrics/capturemetrics"
)

// Failure classes of a capture handler. Every one of them results in the
// reservation being discarded.
var (
	ErrLookupMiss      = errors.New("lookup miss")
	ErrKernelRead      = errors.New("kernel read failure")
	ErrFilterReject    = errors.New("rejected by filter")
	ErrVariantMismatch = errors.New("event variant mismatch")

	ErrConfigMissing  = fmt.Errorf("config absent: %w", ErrLookupMiss)
	ErrProcessMissing = fmt.Errorf("process not found: %w", ErrLookupMiss)
	ErrExecOpen       = fmt.Errorf("open on behalf of exec: %w", ErrFilterReject)

	errPanic = errors.New("handler panicked")
)

func discardReason(err error) capturemetrics.DiscardReason {
	switch {
	case errors.Is(err, ErrConfigMissing):
		return capturemetrics.ReasonConfigMissing
	case errors.Is(err, ErrProcessMissing):
		return capturemetrics.ReasonProcessMissing
	case errors.Is(err, ErrVariantMismatch):
		return capturemetrics.ReasonVariantMismatch
	case errors.Is(err, ErrExecOpen):
		return capturemetrics.ReasonExecOpen
	case errors.Is(err, ErrFilterReject):
		return capturemetrics.ReasonFiltered
	case errors.Is(err, ErrKernelRead):
		return capturemetrics.ReasonKernelRead
	case errors.Is(err, errPanic):
		return capturemetrics.ReasonPanic
	}
	return capturemetrics.ReasonOther
}
