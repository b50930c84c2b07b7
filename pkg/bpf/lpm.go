// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	"fmt"
	"math/bits"
	"sync"
)

// LpmTrie is a BPF_MAP_TYPE_LPM_TRIE storing bit prefixes of at most
// dataSize bytes. The layout follows kernel/bpf/lpm_trie.c: a binary trie
// with intermediate nodes inserted where two prefixes diverge.
type LpmTrie struct {
	name       string
	dataSize   int
	maxEntries int

	mu    sync.RWMutex
	root  *lpmNode
	count int
}

type lpmNode struct {
	prefixLen    uint32
	data         []byte
	child        [2]*lpmNode
	intermediate bool
}

func NewLpmTrie(name string, dataSize, maxEntries int) *LpmTrie {
	return &LpmTrie{name: name, dataSize: dataSize, maxEntries: maxEntries}
}

func (t *LpmTrie) Name() string { return t.name }

func (t *LpmTrie) maxPrefixLen() uint32 { return uint32(t.dataSize) * 8 }

func extractBit(data []byte, index uint32) int {
	return int(data[index/8]>>(7-(index%8))) & 1
}

// longestPrefixMatch returns the number of leading bits node and key share,
// capped by both prefix lengths.
func (t *LpmTrie) longestPrefixMatch(node *lpmNode, prefixLen uint32, data []byte) uint32 {
	limit := min(node.prefixLen, prefixLen)
	var n uint32
	for i := 0; i < t.dataSize && n < limit; i++ {
		b := bits.LeadingZeros8(node.data[i] ^ data[i])
		n += uint32(b)
		if b != 8 {
			break
		}
	}
	return min(n, limit)
}

func (t *LpmTrie) key(prefixLen uint32, data []byte) ([]byte, error) {
	if prefixLen > t.maxPrefixLen() {
		return nil, fmt.Errorf("lpm %s: prefix length %d exceeds %d", t.name, prefixLen, t.maxPrefixLen())
	}
	k := make([]byte, t.dataSize)
	copy(k, data)
	return k, nil
}

// Update inserts or replaces the prefix. data shorter than the trie data
// size is zero extended.
func (t *LpmTrie) Update(prefixLen uint32, data []byte) error {
	k, err := t.key(prefixLen, data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	slot := &t.root
	var matchLen uint32
	for node := *slot; node != nil; node = *slot {
		matchLen = t.longestPrefixMatch(node, prefixLen, k)
		if node.prefixLen != matchLen || node.prefixLen == prefixLen || node.prefixLen == t.maxPrefixLen() {
			break
		}
		slot = &node.child[extractBit(k, node.prefixLen)]
	}

	node := *slot
	if node != nil && node.prefixLen == prefixLen && matchLen == prefixLen {
		if node.intermediate {
			if t.full() {
				return ErrMapFull
			}
			node.intermediate = false
			t.count++
		}
		return nil
	}
	if t.full() {
		return ErrMapFull
	}

	leaf := &lpmNode{prefixLen: prefixLen, data: k}
	t.count++

	switch {
	case node == nil:
		*slot = leaf
	case matchLen == prefixLen:
		// new prefix covers node
		leaf.child[extractBit(node.data, matchLen)] = node
		*slot = leaf
	default:
		im := &lpmNode{prefixLen: matchLen, data: append([]byte(nil), node.data...), intermediate: true}
		if extractBit(k, matchLen) == 1 {
			im.child[0], im.child[1] = node, leaf
		} else {
			im.child[0], im.child[1] = leaf, node
		}
		*slot = im
	}
	return nil
}

func (t *LpmTrie) full() bool {
	return t.maxEntries > 0 && t.count >= t.maxEntries
}

// Delete removes an exact prefix.
func (t *LpmTrie) Delete(prefixLen uint32, data []byte) error {
	k, err := t.key(prefixLen, data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var parentSlot **lpmNode
	slot := &t.root
	for node := *slot; node != nil; node = *slot {
		matchLen := t.longestPrefixMatch(node, prefixLen, k)
		if node.prefixLen != matchLen || node.prefixLen == prefixLen {
			break
		}
		parentSlot = slot
		slot = &node.child[extractBit(k, node.prefixLen)]
	}

	node := *slot
	if node == nil || node.prefixLen != prefixLen || node.intermediate ||
		t.longestPrefixMatch(node, prefixLen, k) != prefixLen {
		return ErrKeyNotExist
	}
	t.count--

	if node.child[0] != nil && node.child[1] != nil {
		node.intermediate = true
		return nil
	}

	// collapse a parent intermediate left with a single child
	if parentSlot != nil {
		parent := *parentSlot
		if parent.intermediate && node.child[0] == nil && node.child[1] == nil {
			if parent.child[0] == node {
				*parentSlot = parent.child[1]
			} else {
				*parentSlot = parent.child[0]
			}
			return nil
		}
	}

	if node.child[0] != nil {
		*slot = node.child[0]
	} else {
		*slot = node.child[1]
	}
	return nil
}

// Match reports whether a stored prefix covers the first prefixLen bits of
// data.
func (t *LpmTrie) Match(prefixLen uint32, data []byte) bool {
	_, ok := t.Lookup(prefixLen, data)
	return ok
}

// Lookup returns the prefix length of the longest stored match.
func (t *LpmTrie) Lookup(prefixLen uint32, data []byte) (uint32, bool) {
	if prefixLen > t.maxPrefixLen() {
		prefixLen = t.maxPrefixLen()
	}
	k := data
	if len(k) < t.dataSize {
		k = make([]byte, t.dataSize)
		copy(k, data)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var found *lpmNode
	for node := t.root; node != nil; {
		matchLen := t.longestPrefixMatch(node, prefixLen, k)
		if matchLen == t.maxPrefixLen() {
			if !node.intermediate {
				found = node
			}
			break
		}
		if matchLen < node.prefixLen {
			break
		}
		if !node.intermediate {
			found = node
		}
		if node.prefixLen >= prefixLen {
			break
		}
		node = node.child[extractBit(k, node.prefixLen)]
	}
	if found == nil {
		return 0, false
	}
	return found.prefixLen, true
}

func (t *LpmTrie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Clear removes every prefix.
func (t *LpmTrie) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = nil
	t.count = 0
}
