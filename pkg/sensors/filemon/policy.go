// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package filemon

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"sigs.k8s.io/yaml"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
)

type Metadata struct {
	Name string `json:"name"`
}

// FilterSpec lists the allowed (or, with DenyList, suppressed) identities.
// Each non-empty list enables the matching filter check.
type FilterSpec struct {
	DenyList bool `json:"denyList,omitempty"`
	// ExposeEvents defaults to true.
	ExposeEvents *bool `json:"exposeEvents,omitempty"`

	UIDs               []uint32 `json:"uids,omitempty"`
	EUIDs              []uint32 `json:"euids,omitempty"`
	AUIDs              []uint32 `json:"auids,omitempty"`
	BinaryNames        []string `json:"binaryNames,omitempty"`
	BinaryPaths        []string `json:"binaryPaths,omitempty"`
	BinaryPathPrefixes []string `json:"binaryPathPrefixes,omitempty"`
}

type Policy struct {
	Metadata Metadata   `json:"metadata"`
	Spec     FilterSpec `json:"spec"`
}

func PolicyFromYaml(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse filter policy: %w", err)
	}
	return &p, nil
}

func PolicyFromYamlFilename(fileName string) (*Policy, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return PolicyFromYaml(data)
}

// Mask derives the filter mask from the non-empty lists.
func (p *Policy) Mask() confapi.ProcessFilterMask {
	var mask confapi.ProcessFilterMask
	s := &p.Spec
	if len(s.UIDs) > 0 {
		mask = mask.Union(confapi.UID)
	}
	if len(s.EUIDs) > 0 {
		mask = mask.Union(confapi.EUID)
	}
	if len(s.AUIDs) > 0 {
		mask = mask.Union(confapi.AUID)
	}
	if len(s.BinaryNames) > 0 {
		mask = mask.Union(confapi.BINARY_NAME)
	}
	if len(s.BinaryPaths) > 0 {
		mask = mask.Union(confapi.BINARY_PATH)
	}
	if len(s.BinaryPathPrefixes) > 0 {
		mask = mask.Union(confapi.BINARY_PATH_PREFIX)
	}
	return mask
}

func (p *Policy) Config() confapi.FileMonConfig {
	expose := true
	if p.Spec.ExposeEvents != nil {
		expose = *p.Spec.ExposeEvents
	}
	return confapi.FileMonConfig{
		FilterMask:   p.Mask(),
		DenyList:     p.Spec.DenyList,
		ExposeEvents: expose,
	}
}

func nameKey(name string) ([eventapi.MAX_FILENAME_SIZE]byte, error) {
	var key [eventapi.MAX_FILENAME_SIZE]byte
	if name == "" || len(name) > len(key) {
		return key, fmt.Errorf("binary name %q: length must be 1..%d", name, len(key))
	}
	eventapi.SetCString(key[:], name)
	return key, nil
}

func pathKey(path string) ([eventapi.MAX_FILE_PATH]byte, error) {
	var key [eventapi.MAX_FILE_PATH]byte
	if path == "" || len(path) > len(key) {
		return key, fmt.Errorf("binary path %q: length must be 1..%d", path, len(key))
	}
	eventapi.SetCString(key[:], path)
	return key, nil
}

// Apply replaces the content of the host maps with p. The config slot is
// cleared first and only written once every entry is in place, so the probe
// never runs against a partially provisioned policy; on error it stays
// cleared and every open is dropped as unconfigured.
func (h *HostMaps) Apply(p *Policy) error {
	h.Config.Clear(0)
	h.UID.Clear()
	h.EUID.Clear()
	h.AUID.Clear()
	h.BinaryName.Clear()
	h.BinaryPath.Clear()
	h.PathPrefix.Clear()

	var err error
	s := &p.Spec
	for _, uid := range s.UIDs {
		err = multierr.Append(err, h.UID.Add(uid))
	}
	for _, euid := range s.EUIDs {
		err = multierr.Append(err, h.EUID.Add(euid))
	}
	for _, auid := range s.AUIDs {
		err = multierr.Append(err, h.AUID.Add(auid))
	}
	for _, name := range s.BinaryNames {
		key, kerr := nameKey(name)
		if kerr == nil {
			kerr = h.BinaryName.Add(key)
		}
		err = multierr.Append(err, kerr)
	}
	for _, path := range s.BinaryPaths {
		key, kerr := pathKey(path)
		if kerr == nil {
			kerr = h.BinaryPath.Add(key)
		}
		err = multierr.Append(err, kerr)
	}
	for _, prefix := range s.BinaryPathPrefixes {
		if prefix == "" || len(prefix) > eventapi.MAX_FILE_PREFIX {
			err = multierr.Append(err, fmt.Errorf("binary path prefix %q: length must be 1..%d", prefix, eventapi.MAX_FILE_PREFIX))
			continue
		}
		err = multierr.Append(err, h.PathPrefix.Update(uint32(len(prefix))*8, []byte(prefix)))
	}
	if err != nil {
		return fmt.Errorf("policy %q: %w", p.Metadata.Name, err)
	}
	return h.Config.Update(0, p.Config())
}
