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

var _ hub.FollowModule = (*FollowModule)(nil)

// FollowModule gates following a profile
type FollowModule struct {
	*gated
}

// NewFollowModule creates a follow module
func NewFollowModule(cfg Config, opts ...lzapp.Option) (*FollowModule, error) {
	m := &FollowModule{}
	g, err := newGated(cfg, m.receive, opts...)
	if err != nil {
		return nil, err
	}
	m.gated = g
	return m, nil
}

// InitializeFollowModule implements hub.FollowModule
func (m *FollowModule) InitializeFollowModule(_ context.Context, caller common.Address, profileID *big.Int, data []byte) error {
	cond, err := m.initialize(caller, keyOf(profileID, nil), data)
	if err != nil {
		return err
	}
	m.Emit(InitFollowModule{
		ProfileID:     profileID,
		TokenContract: cond.TokenContract,
		Threshold:     cond.Threshold,
		ChainID:       cond.RemoteChainID,
	})
	return nil
}

// GatedFollowPerProfile returns the condition following profileID is gated on
func (m *FollowModule) GatedFollowPerProfile(profileID *big.Int) (Condition, bool) {
	return m.condition(keyOf(profileID, nil))
}

// ProcessFollow implements hub.FollowModule. Follows are only accepted
// when relayed.
func (m *FollowModule) ProcessFollow(_ context.Context, caller, _ common.Address, _ *big.Int, _ []byte) error {
	return m.onlyRelayed(caller, lzgate.ErrFollowInvalid)
}

func (m *FollowModule) receive(ctx context.Context, srcChainID uint16, _ []byte, nonce uint64, msg []byte) error {
	fm, err := payload.ParseFollowMessage(msg)
	if err != nil {
		return err
	}
	intent := fm.Intent
	if len(intent.ProfileIDs) != 1 || !payload.BigEqual(intent.ProfileIDs[0], fm.ProfileID) {
		return invalidInput("intent does not follow profile %s alone", fm.ProfileID)
	}
	if intent.Follower != fm.Sender {
		return invalidInput("follower %s is not sender %s", intent.Follower, fm.Sender)
	}
	if err := m.admit(ctx, srcChainID, keyOf(fm.ProfileID, nil), fm.Sender, fm.TokenContract, fm.Threshold); err != nil {
		return err
	}
	if err := m.relay(func() error { return m.platform.FollowWithSig(ctx, intent) }); err != nil {
		return err
	}
	m.logExecuted("follow", srcChainID, nonce, fm.Sender)
	return nil
}
