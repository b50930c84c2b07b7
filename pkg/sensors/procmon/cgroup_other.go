// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

//go:build !linux

package procmon

func cgroupID(string) uint64 { return 0 }
