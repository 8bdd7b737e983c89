// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides the read-through LRU used in front of slow
// lookups.
package cache

import lru "github.com/hashicorp/golang-lru"

// Loader loads the value for key on a cache miss.
type Loader func(key interface{}) (interface{}, error)

// LRU is a fixed-size read-through cache. The zero value is not usable;
// create one with NewLRU.
type LRU struct {
	inner *lru.Cache
}

// NewLRU creates an LRU cache holding up to maxSize entries. maxSize must
// be positive.
func NewLRU(maxSize int) (*LRU, error) {
	inner, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU{inner: inner}, nil
}

// Get returns the cached value for key, if present.
func (l *LRU) Get(key interface{}) (interface{}, bool) {
	return l.inner.Get(key)
}

// Add stores value under key, evicting the least recently used entry
// when full.
func (l *LRU) Add(key, value interface{}) {
	l.inner.Add(key, value)
}

// Remove drops key from the cache.
func (l *LRU) Remove(key interface{}) {
	l.inner.Remove(key)
}

// GetOrLoad returns the cached value for key, or loads and caches it.
// A failed load caches nothing.
func (l *LRU) GetOrLoad(key interface{}, loader Loader) (interface{}, error) {
	if v, ok := l.inner.Get(key); ok {
		return v, nil
	}
	v, err := loader(key)
	if err != nil {
		return nil, err
	}
	l.inner.Add(key, v)
	return v, nil
}
