// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

type PacketSent struct {
	DstChainID uint16
	SrcAddress common.Address
	DstAddress common.Address
	Nonce      uint64
	NativeFee  *uint256.Int
}

func (PacketSent) EventName() string { return "PacketSent" }

type PacketReceived struct {
	SrcChainID  uint16
	SrcAddress  []byte
	DstAddress  common.Address
	Nonce       uint64
	PayloadHash common.Hash
}

func (PacketReceived) EventName() string { return "PacketReceived" }

// PayloadStored is emitted when a receiver fails; the channel stays blocked
// until the payload is retried or the receiver forces a resume.
type PayloadStored struct {
	SrcChainID uint16
	SrcAddress []byte
	DstAddress common.Address
	Nonce      uint64
	Payload    []byte
	Reason     string
}

func (PayloadStored) EventName() string { return "PayloadStored" }

type PayloadCleared struct {
	SrcChainID uint16
	SrcAddress []byte
	DstAddress common.Address
	Nonce      uint64
}

func (PayloadCleared) EventName() string { return "PayloadCleared" }

type UaForceResumeReceive struct {
	ChainID    uint16
	SrcAddress []byte
}

func (UaForceResumeReceive) EventName() string { return "UaForceResumeReceive" }
