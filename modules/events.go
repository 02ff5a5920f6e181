// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

type InitFollowModule struct {
	ProfileID     *big.Int
	TokenContract common.Address
	Threshold     *big.Int
	ChainID       uint16
}

func (InitFollowModule) EventName() string { return "InitFollowModule" }

type InitReferenceModule struct {
	ProfileID     *big.Int
	PubID         *big.Int
	TokenContract common.Address
	Threshold     *big.Int
	ChainID       uint16
}

func (InitReferenceModule) EventName() string { return "InitReferenceModule" }

type InitCollectModule struct {
	ProfileID     *big.Int
	PubID         *big.Int
	TokenContract common.Address
	Threshold     *big.Int
	ChainID       uint16
}

func (InitCollectModule) EventName() string { return "InitCollectModule" }
