// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package notify

// Message is a decoded ring buffer record handed to listeners.
type Message interface {
	Op() uint8
	KtimeNs() uint64
}
