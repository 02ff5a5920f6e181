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

var _ hub.ReferenceModule = (*ReferenceModule)(nil)

// ReferenceModule gates commenting on and mirroring a publication
type ReferenceModule struct {
	*gated
}

// NewReferenceModule creates a reference module
func NewReferenceModule(cfg Config, opts ...lzapp.Option) (*ReferenceModule, error) {
	m := &ReferenceModule{}
	g, err := newGated(cfg, m.receive, opts...)
	if err != nil {
		return nil, err
	}
	m.gated = g
	return m, nil
}

// InitializeReferenceModule implements hub.ReferenceModule
func (m *ReferenceModule) InitializeReferenceModule(_ context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error {
	cond, err := m.initialize(caller, keyOf(profileID, pubID), data)
	if err != nil {
		return err
	}
	m.Emit(InitReferenceModule{
		ProfileID:     profileID,
		PubID:         pubID,
		TokenContract: cond.TokenContract,
		Threshold:     cond.Threshold,
		ChainID:       cond.RemoteChainID,
	})
	return nil
}

// GatedDataPerPub returns the condition referencing a publication is gated on
func (m *ReferenceModule) GatedDataPerPub(profileID, pubID *big.Int) (Condition, bool) {
	return m.condition(keyOf(profileID, pubID))
}

// ProcessComment implements hub.ReferenceModule
func (m *ReferenceModule) ProcessComment(_ context.Context, caller common.Address, _, _, _ *big.Int, _ []byte) error {
	return m.onlyRelayed(caller, lzgate.ErrCommentOrMirrorInvalid)
}

// ProcessMirror implements hub.ReferenceModule
func (m *ReferenceModule) ProcessMirror(_ context.Context, caller common.Address, _, _, _ *big.Int, _ []byte) error {
	return m.onlyRelayed(caller, lzgate.ErrCommentOrMirrorInvalid)
}

func (m *ReferenceModule) receive(ctx context.Context, srcChainID uint16, _ []byte, nonce uint64, msg []byte) error {
	rm, err := payload.ParseReferenceMessage(msg)
	if err != nil {
		return err
	}

	var profileID, profileIDPointed, pubIDPointed *big.Int
	if rm.IsComment() {
		profileID, profileIDPointed, pubIDPointed = rm.Comment.ProfileID, rm.Comment.ProfileIDPointed, rm.Comment.PubIDPointed
	} else {
		profileID, profileIDPointed, pubIDPointed = rm.Mirror.ProfileID, rm.Mirror.ProfileIDPointed, rm.Mirror.PubIDPointed
	}
	if !payload.BigEqual(profileID, rm.ProfileID) ||
		!payload.BigEqual(profileIDPointed, rm.ProfileIDPointed) ||
		!payload.BigEqual(pubIDPointed, rm.PubIDPointed) {
		return invalidInput("intent does not reference %s/%s from %s", rm.ProfileIDPointed, rm.PubIDPointed, rm.ProfileID)
	}
	owner, err := m.platform.OwnerOf(rm.ProfileID)
	if err != nil {
		return invalidInput("profile %s: %v", rm.ProfileID, err)
	}
	if owner != rm.Sender {
		return invalidInput("sender %s does not own profile %s", rm.Sender, rm.ProfileID)
	}
	if err := m.admit(ctx, srcChainID, keyOf(rm.ProfileIDPointed, rm.PubIDPointed), rm.Sender, rm.TokenContract, rm.Threshold); err != nil {
		return err
	}

	action := "mirror"
	err = m.relay(func() error {
		if rm.IsComment() {
			action = "comment"
			_, err := m.platform.CommentWithSig(ctx, *rm.Comment)
			return err
		}
		_, err := m.platform.MirrorWithSig(ctx, *rm.Mirror)
		return err
	})
	if err != nil {
		return err
	}
	m.logExecuted(action, srcChainID, nonce, rm.Sender)
	return nil
}
