// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sbt

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

type CollectionCreated struct {
	CollectionID *big.Int
	ProfileID    *big.Int
	URI          string
}

func (CollectionCreated) EventName() string { return "CollectionCreated" }

type MintSent struct {
	To           common.Address
	CollectionID *big.Int
	TokenID      *big.Int
	DstChainID   uint16
}

func (MintSent) EventName() string { return "MintSent" }

// Transfer is emitted on mint (zero From) and burn (zero To)
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
}

func (Transfer) EventName() string { return "Transfer" }

type InitCollectModule struct {
	ProfileID          *big.Int
	PubID              *big.Int
	CollectionID       *big.Int
	DestinationChainID uint16
}

func (InitCollectModule) EventName() string { return "InitCollectModule" }
