// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package confapi

import "strings"

// ProcessFilterMask selects the process attributes a filter checks. Bit
// values are configured from outside the agent and must not be renumbered.
type ProcessFilterMask uint64

const (
	BINARY_NAME        ProcessFilterMask = 0x0000000000000001
	BINARY_PATH        ProcessFilterMask = 0x0000000000000002
	BINARY_PATH_PREFIX ProcessFilterMask = 0x0000000000000004
	UID                ProcessFilterMask = 0x0000000000000008
	EUID               ProcessFilterMask = 0x0000000000000010
	AUID               ProcessFilterMask = 0x0000000000000020
	E_CAPS             ProcessFilterMask = 0x0000000000000040

	// BinaryMask is the union of the binary identity checks.
	BinaryMask = BINARY_NAME | BINARY_PATH | BINARY_PATH_PREFIX
)

var maskNames = []struct {
	bit  ProcessFilterMask
	name string
}{
	{BINARY_NAME, "BINARY_NAME"},
	{BINARY_PATH, "BINARY_PATH"},
	{BINARY_PATH_PREFIX, "BINARY_PATH_PREFIX"},
	{UID, "UID"},
	{EUID, "EUID"},
	{AUID, "AUID"},
	{E_CAPS, "E_CAPS"},
}

func (m ProcessFilterMask) IsEmpty() bool { return m == 0 }

// Contains reports whether all bits of o are set in m.
func (m ProcessFilterMask) Contains(o ProcessFilterMask) bool { return m&o == o }

func (m ProcessFilterMask) Union(o ProcessFilterMask) ProcessFilterMask { return m | o }

func (m ProcessFilterMask) Intersection(o ProcessFilterMask) ProcessFilterMask { return m & o }

func (m ProcessFilterMask) String() string {
	if m.IsEmpty() {
		return "none"
	}
	var names []string
	for _, n := range maskNames {
		if m.Contains(n.bit) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// FileMonConfig is the file monitor config singleton (FILEMON_CONFIG[0]).
type FileMonConfig struct {
	// Filter events by process information
	FilterMask ProcessFilterMask
	// Use deny list for process filtering
	DenyList bool
	// Forward file events to listeners
	ExposeEvents bool
	_            [6]byte
}

// ProcMonConfig is the process monitor config singleton (PROCMON_CONFIG[0]).
type ProcMonConfig struct {
	FilterMask ProcessFilterMask
	DenyList   bool
	_          [7]byte
}
