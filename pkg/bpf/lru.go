// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	"fmt"

	"github.com/cilium/ebpf"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUHashMap is a BPF_MAP_TYPE_LRU_HASH: inserts never fail for lack of
// room, the least recently used entry is evicted instead.
type LRUHashMap[K comparable, V any] struct {
	name  string
	cache *lru.Cache[K, *V]
}

func NewLRUHashMap[K comparable, V any](name string, maxEntries int) (*LRUHashMap[K, V], error) {
	c, err := lru.New[K, *V](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating LRU map %s: %w", name, err)
	}
	return &LRUHashMap[K, V]{name: name, cache: c}, nil
}

func (m *LRUHashMap[K, V]) Name() string { return m.name }

func (m *LRUHashMap[K, V]) Lookup(key K) (*V, bool) {
	return m.cache.Get(key)
}

func (m *LRUHashMap[K, V]) Update(key K, value V, flags ebpf.MapUpdateFlags) error {
	old, exists := m.cache.Peek(key)
	if err := checkFlags(flags, exists); err != nil {
		return err
	}
	if exists {
		*old = value
		m.cache.Get(key)
		return nil
	}
	v := value
	m.cache.Add(key, &v)
	return nil
}

func (m *LRUHashMap[K, V]) Delete(key K) error {
	if !m.cache.Remove(key) {
		return ErrKeyNotExist
	}
	return nil
}

func (m *LRUHashMap[K, V]) Len() int { return m.cache.Len() }

func (m *LRUHashMap[K, V]) Keys() []K { return m.cache.Keys() }
