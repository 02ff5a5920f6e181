// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzapp

import (
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate"
)

// Owned is single-owner access control
type Owned struct {
	mu    sync.RWMutex
	owner common.Address
}

// NewOwned returns access control owned by owner
func NewOwned(owner common.Address) *Owned {
	return &Owned{owner: owner}
}

// Owner returns the current owner
func (o *Owned) Owner() common.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.owner
}

// OnlyOwner fails with ErrUnauthorized unless caller is the owner
func (o *Owned) OnlyOwner(caller common.Address) error {
	if caller != o.Owner() {
		return lzgate.ErrUnauthorized
	}
	return nil
}

// TransferOwnership hands the contract to newOwner
func (o *Owned) TransferOwnership(caller, newOwner common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if caller != o.owner {
		return lzgate.ErrUnauthorized
	}
	o.owner = newOwner
	return nil
}
