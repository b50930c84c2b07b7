// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package filemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/api/eventapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/reader/notify"
)

const testPolicy = `
metadata:
  name: web
spec:
  denyList: true
  exposeEvents: false
  uids: [0, 33]
  binaryNames: [nginx]
  binaryPathPrefixes: [/usr/sbin/]
`

func TestPolicyConfig(t *testing.T) {
	p, err := PolicyFromYaml([]byte(testPolicy))
	require.NoError(t, err)
	assert.Equal(t, "web", p.Metadata.Name)
	assert.Equal(t, confapi.UID|confapi.BINARY_NAME|confapi.BINARY_PATH_PREFIX, p.Mask())
	assert.Equal(t, confapi.FileMonConfig{
		FilterMask:   confapi.UID | confapi.BINARY_NAME | confapi.BINARY_PATH_PREFIX,
		DenyList:     true,
		ExposeEvents: false,
	}, p.Config())

	empty, err := PolicyFromYaml([]byte("metadata:\n  name: all\n"))
	require.NoError(t, err)
	assert.True(t, empty.Mask().IsEmpty())
	assert.True(t, empty.Config().ExposeEvents)
}

func TestPolicyFromYamlStrict(t *testing.T) {
	_, err := PolicyFromYaml([]byte("spec:\n  users: [0]\n"))
	assert.Error(t, err)
}

func TestPolicyFromYamlFilename(t *testing.T) {
	name := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(name, []byte(testPolicy), 0o644))
	p, err := PolicyFromYamlFilename(name)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 33}, p.Spec.UIDs)

	_, err = PolicyFromYamlFilename(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	h := NewHostMaps()
	p, err := PolicyFromYaml([]byte(testPolicy))
	require.NoError(t, err)
	require.NoError(t, h.Apply(p))

	assert.True(t, h.UID.Has(33))
	assert.Equal(t, 2, h.UID.Len())
	nginx, _ := nameKey("nginx")
	assert.True(t, h.BinaryName.Has(nginx))
	assert.True(t, h.PathPrefix.Match(eventapi.MAX_FILE_PREFIX*8, []byte("/usr/sbin/nginx")))
	require.NotNil(t, h.Config.Lookup(0))
	assert.True(t, h.Config.Lookup(0).DenyList)

	// reapplying replaces the previous content
	p2, err := PolicyFromYaml([]byte("spec:\n  euids: [7]\n"))
	require.NoError(t, err)
	require.NoError(t, h.Apply(p2))
	assert.Zero(t, h.UID.Len())
	assert.Zero(t, h.PathPrefix.Len())
	assert.True(t, h.EUID.Has(7))
	assert.Equal(t, confapi.EUID, h.Config.Lookup(0).FilterMask)
}

func TestApplyErrors(t *testing.T) {
	h := NewHostMaps()
	p := &Policy{Spec: FilterSpec{
		UIDs:               []uint32{1},
		BinaryNames:        []string{strings.Repeat("n", eventapi.MAX_FILENAME_SIZE+1)},
		BinaryPaths:        []string{""},
		BinaryPathPrefixes: []string{strings.Repeat("p", eventapi.MAX_FILE_PREFIX+1)},
	}}
	err := h.Apply(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binary name")
	assert.Contains(t, err.Error(), "binary path \"\"")
	assert.Contains(t, err.Error(), "binary path prefix")
	assert.Nil(t, h.Config.Lookup(0), "config stays absent on error")
}

type sink struct {
	msgs   []notify.Message
	closed bool
}

func (s *sink) Notify(msg notify.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sink) Close() error {
	s.closed = true
	return nil
}

func TestExposeListener(t *testing.T) {
	h := NewHostMaps()
	s := &sink{}
	l := ExposeListener(h.Config, s)

	file := &eventapi.MsgFile{Ktime: 1}
	exec := &eventapi.MsgProcessExec{Ktime: 2}

	require.NoError(t, l.Notify(file))
	require.NoError(t, l.Notify(exec))
	require.NoError(t, h.Config.Update(0, confapi.FileMonConfig{ExposeEvents: false}))
	require.NoError(t, l.Notify(file))
	require.NoError(t, h.Config.Update(0, confapi.FileMonConfig{ExposeEvents: true}))
	require.NoError(t, l.Notify(file))

	assert.Equal(t, []notify.Message{exec, file}, s.msgs)
	require.NoError(t, l.Close())
	assert.True(t, s.closed)
}
