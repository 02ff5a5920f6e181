// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"context"
	"slices"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
)

var _ Endpoint = (*FakeEndpoint)(nil)

// SentPacket is a send recorded by FakeEndpoint
type SentPacket struct {
	Msg           chain.Msg
	DstChainID    uint16
	Destination   []byte
	Payload       []byte
	Refund        common.Address
	AdapterParams []byte
}

// FakeEndpoint is a test implementation of Endpoint that records sends and
// delivers nothing.
type FakeEndpoint struct {
	Addr common.Address
	ID   uint16
	Fee  *uint256.Int

	// SendErr fails every Send when set
	SendErr error

	mu    sync.Mutex
	sends []SentPacket
}

func (f *FakeEndpoint) Address() common.Address { return f.Addr }

func (f *FakeEndpoint) ChainID() uint16 { return f.ID }

func (f *FakeEndpoint) EstimateFees(uint16, common.Address, []byte, bool, []byte) (*uint256.Int, *uint256.Int, error) {
	if f.Fee == nil {
		return new(uint256.Int), new(uint256.Int), nil
	}
	return new(uint256.Int).Set(f.Fee), new(uint256.Int), nil
}

func (f *FakeEndpoint) Send(_ context.Context, msg chain.Msg, dstChainID uint16, destination []byte, payload []byte, refund common.Address, _ common.Address, adapterParams []byte) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, SentPacket{
		Msg:           msg,
		DstChainID:    dstChainID,
		Destination:   slices.Clone(destination),
		Payload:       slices.Clone(payload),
		Refund:        refund,
		AdapterParams: slices.Clone(adapterParams),
	})
	return nil
}

func (*FakeEndpoint) RetryPayload(context.Context, uint16, []byte, []byte) error {
	return nil
}

func (*FakeEndpoint) ForceResumeReceive(context.Context, common.Address, uint16, []byte) error {
	return nil
}

func (*FakeEndpoint) HasStoredPayload(uint16, []byte) bool {
	return false
}

// Sends returns the recorded sends
func (f *FakeEndpoint) Sends() []SentPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sends)
}
