// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"context"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/payload"
)

var _ hub.CollectModule = (*CollectModule)(nil)

// CollectModule gates collecting a publication
type CollectModule struct {
	*gated
}

// NewCollectModule creates a collect module
func NewCollectModule(cfg Config, opts ...lzapp.Option) (*CollectModule, error) {
	m := &CollectModule{}
	g, err := newGated(cfg, m.receive, opts...)
	if err != nil {
		return nil, err
	}
	m.gated = g
	return m, nil
}

// InitializePublicationCollectModule implements hub.CollectModule
func (m *CollectModule) InitializePublicationCollectModule(_ context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error {
	cond, err := m.initialize(caller, keyOf(profileID, pubID), data)
	if err != nil {
		return err
	}
	m.Emit(InitCollectModule{
		ProfileID:     profileID,
		PubID:         pubID,
		TokenContract: cond.TokenContract,
		Threshold:     cond.Threshold,
		ChainID:       cond.RemoteChainID,
	})
	return nil
}

// GatedDataPerPub returns the condition collecting a publication is gated on
func (m *CollectModule) GatedDataPerPub(profileID, pubID *big.Int) (Condition, bool) {
	return m.condition(keyOf(profileID, pubID))
}

// ProcessCollect implements hub.CollectModule
func (m *CollectModule) ProcessCollect(_ context.Context, caller common.Address, _ *big.Int, _ common.Address, _, _ *big.Int, _ []byte) error {
	return m.onlyRelayed(caller, lzgate.ErrCollectNotAllowed)
}

func (m *CollectModule) receive(ctx context.Context, srcChainID uint16, _ []byte, nonce uint64, msg []byte) error {
	cm, err := payload.ParseCollectMessage(msg)
	if err != nil {
		return err
	}
	intent := cm.Intent
	if !payload.BigEqual(intent.ProfileID, cm.ProfileID) || !payload.BigEqual(intent.PubID, cm.PubID) {
		return invalidInput("intent does not collect %s/%s", cm.ProfileID, cm.PubID)
	}
	if intent.Collector != cm.Sender {
		return invalidInput("collector %s is not sender %s", intent.Collector, cm.Sender)
	}
	if err := m.admit(ctx, srcChainID, keyOf(cm.ProfileID, cm.PubID), cm.Sender, cm.TokenContract, cm.Threshold); err != nil {
		return err
	}
	if err := m.relay(func() error { return m.platform.CollectWithSig(ctx, intent) }); err != nil {
		return err
	}
	m.logExecuted("collect", srcChainID, nonce, cm.Sender)
	return nil
}
