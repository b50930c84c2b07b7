// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	"testing"

	"github.com/cilium/ebpf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValue struct {
	A uint32
	B [4]byte
}

func TestLRUHashMapEvicts(t *testing.T) {
	m, err := NewLRUHashMap[uint32, testValue]("test", 2)
	require.NoError(t, err)

	require.NoError(t, m.Update(1, testValue{A: 1}, ebpf.UpdateAny))
	require.NoError(t, m.Update(2, testValue{A: 2}, ebpf.UpdateAny))
	m.Lookup(1)
	require.NoError(t, m.Update(3, testValue{A: 3}, ebpf.UpdateAny))

	_, ok := m.Lookup(2)
	assert.False(t, ok)
	v, ok := m.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), v.A)
	assert.ErrorIs(t, m.Update(3, testValue{}, ebpf.UpdateNoExist), ErrKeyExist)
	assert.ErrorIs(t, m.Delete(9), ErrKeyNotExist)
	assert.Len(t, m.Keys(), 2)
}

func TestSet(t *testing.T) {
	s := NewSet[[4]byte]("test", 1)
	require.NoError(t, s.Add([4]byte{'c', 'a', 't'}))
	require.NoError(t, s.Add([4]byte{'c', 'a', 't'}))
	assert.ErrorIs(t, s.Add([4]byte{'d', 'o', 'g'}), ErrMapFull)
	assert.True(t, s.Has([4]byte{'c', 'a', 't'}))
	assert.False(t, s.Has([4]byte{'c', 'a'}))

	require.NoError(t, s.Remove([4]byte{'c', 'a', 't'}))
	assert.ErrorIs(t, s.Remove([4]byte{'c', 'a', 't'}), ErrKeyNotExist)
	assert.Equal(t, 0, s.Len())
}

func TestArray(t *testing.T) {
	a := NewArray[testValue]("test", 1)
	assert.Nil(t, a.Lookup(0), "unwritten slot")
	assert.Nil(t, a.Lookup(1), "out of range")

	require.NoError(t, a.Update(0, testValue{A: 5}))
	first := a.Lookup(0)
	require.NotNil(t, first)
	require.NoError(t, a.Update(0, testValue{A: 6}))
	assert.Equal(t, uint32(5), first.A, "previous snapshot is stable")
	assert.Equal(t, uint32(6), a.Lookup(0).A)

	assert.ErrorIs(t, a.Update(1, testValue{}), ErrKeyNotExist)
	a.Clear(0)
	assert.Nil(t, a.Lookup(0))
}

func TestPerCPUArray(t *testing.T) {
	a := NewPerCPUArray[testValue]("test", 2, 1)
	a.Lookup(0, 0).A = 1
	a.Lookup(1, 0).A = 2
	assert.Equal(t, uint32(1), a.Lookup(0, 0).A)
	assert.Equal(t, uint32(2), a.Lookup(1, 0).A)
	assert.Nil(t, a.Lookup(2, 0))
	assert.Nil(t, a.Lookup(0, 1))

	var unavailable *PerCPUArray[testValue]
	assert.Nil(t, unavailable.Lookup(0, 0))
}

func TestMapPath(t *testing.T) {
	assert.Equal(t, "/sys/fs/bpf/sysmon/EVENT_MAP", MapPath("/sys/fs/bpf/sysmon", "EVENT_MAP"))
}
