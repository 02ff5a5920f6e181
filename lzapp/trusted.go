// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzapp

import (
	"bytes"
	"maps"
	"slices"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate"
)

// TrustedRemotes maps a remote chain id to the one path allowed to deliver
// from it. Entries are overwritten, never deleted.
type TrustedRemotes struct {
	mu    sync.RWMutex
	paths map[uint16][]byte
}

func NewTrustedRemotes() *TrustedRemotes {
	return &TrustedRemotes{paths: make(map[uint16][]byte)}
}

// Set records path as the trusted remote of chainID
func (t *TrustedRemotes) Set(chainID uint16, path []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[chainID] = slices.Clone(path)
}

// Get returns the trusted path of chainID
func (t *TrustedRemotes) Get(chainID uint16) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.paths[chainID]
	if !ok || len(path) == 0 {
		return nil, false
	}
	return slices.Clone(path), true
}

// RemoteAddress returns the remote half of the trusted path of chainID
func (t *TrustedRemotes) RemoteAddress(chainID uint16) (common.Address, bool) {
	path, ok := t.Get(chainID)
	if !ok {
		return common.Address{}, false
	}
	remote, _, err := lzgate.SplitPath(path)
	if err != nil {
		return common.Address{}, false
	}
	return remote, true
}

// IsTrusted reports whether srcPath is exactly the trusted path of chainID
func (t *TrustedRemotes) IsTrusted(chainID uint16, srcPath []byte) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.paths[chainID]
	return ok && len(path) > 0 && bytes.Equal(path, srcPath)
}

// ChainIDs returns the chains with a trusted remote, sorted
func (t *TrustedRemotes) ChainIDs() []uint16 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.paths))
}
