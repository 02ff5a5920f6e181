// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

var (
	_ Payload = (*GatedInit)(nil)
	_ Payload = (*CollectInit)(nil)
)

// GatedInit is the init data of the gated follow, reference and collect
// modules: the condition a social object is gated on.
type GatedInit struct {
	TokenContract common.Address
	Threshold     *big.Int
	RemoteChainID uint16
}

// NewGatedInit creates gated module init data
func NewGatedInit(tokenContract common.Address, threshold *big.Int, remoteChainID uint16) (*GatedInit, error) {
	g := &GatedInit{
		TokenContract: tokenContract,
		Threshold:     threshold,
		RemoteChainID: remoteChainID,
	}
	return g, g.Verify()
}

// Verify verifies the init data decodes; semantic checks belong to the module
func (g *GatedInit) Verify() error {
	return checkInts("gated init", g.Threshold)
}

// Bytes returns the ABI encoding of the init data
func (g *GatedInit) Bytes() []byte {
	return mustPack("gatedInit", g.TokenContract, orZero(g.Threshold), g.RemoteChainID)
}

// ParseGatedInit parses gated module init data
func ParseGatedInit(b []byte) (*GatedInit, error) {
	values, err := unpack("gatedInit", b)
	if err != nil {
		return nil, err
	}
	g := &GatedInit{
		TokenContract: values[0].(common.Address),
		Threshold:     values[1].(*big.Int),
		RemoteChainID: values[2].(uint16),
	}
	if err := canonical(g, b); err != nil {
		return nil, err
	}
	return g, nil
}

// CollectInit is the init data of the soulbound collect module
type CollectInit struct {
	FollowerOnly bool
	ChainID      uint16
}

// Verify implements Payload
func (*CollectInit) Verify() error {
	return nil
}

// Bytes returns the ABI encoding of the init data
func (c *CollectInit) Bytes() []byte {
	return mustPack("collectInit", c.FollowerOnly, c.ChainID)
}

// ParseCollectInit parses soulbound collect module init data
func ParseCollectInit(b []byte) (*CollectInit, error) {
	values, err := unpack("collectInit", b)
	if err != nil {
		return nil, err
	}
	c := &CollectInit{
		FollowerOnly: values[0].(bool),
		ChainID:      values[1].(uint16),
	}
	if err := canonical(c, b); err != nil {
		return nil, err
	}
	return c, nil
}
