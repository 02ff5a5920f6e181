// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache holds the bounded caches of the relayer.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache remembers the result of a fetch for immutable keys, such as the
// mint a relayer made for a given collect event. It is safe for concurrent
// use; callers fetching the same key concurrently may both fetch.
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

func NewLRUCache[K comparable, V any](size int) (*LRUCache[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUCache[K, V]{cache: c}, nil
}

// Get returns the cached value of key and true, otherwise fetches it using
// fetchFunc. Failed fetches are not cached. If [invalidate] is true, the
// value is cleared from the cache prior to fetching.
func (c *LRUCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, bool, error) {
	if invalidate {
		c.cache.Remove(key)
	} else if value, found := c.cache.Get(key); found {
		return value, true, nil
	}

	newValue, err := fetchFunc(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.cache.Add(key, newValue)
	return newValue, false, nil
}

// Contains reports whether key is cached without updating its recency
func (c *LRUCache[K, V]) Contains(key K) bool {
	return c.cache.Contains(key)
}

func (c *LRUCache[K, V]) Len() int {
	return c.cache.Len()
}
