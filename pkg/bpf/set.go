// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bpf

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Set is a hash map whose values are ignored, the shape of the uid and
// binary allow-list maps.
type Set[K comparable] struct {
	name       string
	maxEntries int
	keys       mapset.Set[K]
}

func NewSet[K comparable](name string, maxEntries int) *Set[K] {
	return &Set[K]{name: name, maxEntries: maxEntries, keys: mapset.NewSet[K]()}
}

func (s *Set[K]) Name() string { return s.name }

func (s *Set[K]) Has(key K) bool { return s.keys.Contains(key) }

func (s *Set[K]) Add(key K) error {
	if s.keys.Contains(key) {
		return nil
	}
	if s.maxEntries > 0 && s.keys.Cardinality() >= s.maxEntries {
		return ErrMapFull
	}
	s.keys.Add(key)
	return nil
}

func (s *Set[K]) Remove(key K) error {
	if !s.keys.Contains(key) {
		return ErrKeyNotExist
	}
	s.keys.Remove(key)
	return nil
}

func (s *Set[K]) Len() int { return s.keys.Cardinality() }

func (s *Set[K]) Clear() { s.keys.Clear() }
