// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sbt

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/payload"
)

// Platform is the part of the social platform the collect module reads
type Platform interface {
	ContentURI(profileID, pubID *big.Int) (string, error)
	IsFollowing(profileID *big.Int, account common.Address) bool
}

// PubCollectData is the collect configuration of a publication
type PubCollectData struct {
	CollectionID *big.Int
	FollowerOnly bool
	ChainID      uint16
}

type pubKey struct {
	profileID string
	pubID     string
}

var _ hub.CollectModule = (*CollectModule)(nil)

// CollectModule is a platform collect module that mints an OmniSBT of the
// publication's collection to every collector, on a chain chosen when the
// publication is created
type CollectModule struct {
	chain.Base
	chain.NoFallback

	sbt      *OmniSBT
	hub      common.Address
	platform Platform
	log      *zap.Logger

	mu   sync.RWMutex
	pubs map[pubKey]PubCollectData
}

// NewCollectModule creates a collect module minting from sbt
func NewCollectModule(sbt *OmniSBT, hubAddr common.Address, platform Platform, log *zap.Logger) (*CollectModule, error) {
	if sbt == nil || lzgate.IsZeroAddress(hubAddr) || platform == nil {
		return nil, lzgate.ErrInitParamsInvalid
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CollectModule{
		sbt:      sbt,
		hub:      hubAddr,
		platform: platform,
		log:      log,
		pubs:     make(map[pubKey]PubCollectData),
	}, nil
}

func keyOf(profileID, pubID *big.Int) pubKey {
	return pubKey{profileID: profileID.String(), pubID: pubID.String()}
}

// InitializePublicationCollectModule implements hub.CollectModule. data is
// (bool followerOnly, uint16 chainId).
func (m *CollectModule) InitializePublicationCollectModule(_ context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error {
	if caller != m.hub {
		return lzgate.ErrNotHub
	}
	init, err := payload.ParseCollectInit(data)
	if err != nil {
		return fmt.Errorf("%w: %w", lzgate.ErrInitParamsInvalid, err)
	}
	if _, ok := m.sbt.LzRemoteLookup(init.ChainID); !ok {
		return fmt.Errorf("%w: %d", lzgate.ErrInvalidChainID, init.ChainID)
	}
	uri, err := m.platform.ContentURI(profileID, pubID)
	if err != nil {
		return err
	}
	collectionID, err := m.sbt.CreateCollection(m.Address(), profileID, uri)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.pubs[keyOf(profileID, pubID)] = PubCollectData{
		CollectionID: collectionID,
		FollowerOnly: init.FollowerOnly,
		ChainID:      init.ChainID,
	}
	m.mu.Unlock()

	m.Emit(InitCollectModule{
		ProfileID:          profileID,
		PubID:              pubID,
		CollectionID:       collectionID,
		DestinationChainID: init.ChainID,
	})
	return nil
}

// PubCollectData returns the collect configuration of a publication
func (m *CollectModule) PubCollectData(profileID, pubID *big.Int) (PubCollectData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.pubs[keyOf(profileID, pubID)]
	return data, ok
}

// ProcessCollect implements hub.CollectModule
func (m *CollectModule) ProcessCollect(ctx context.Context, caller common.Address, _ *big.Int, collector common.Address, profileID, pubID *big.Int, _ []byte) error {
	if caller != m.hub {
		return lzgate.ErrNotHub
	}
	data, ok := m.PubCollectData(profileID, pubID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", lzgate.ErrCollectNotAllowed, profileID, pubID)
	}
	if data.FollowerOnly && !m.platform.IsFollowing(profileID, collector) {
		return ErrOnlyFollowers
	}
	tokenID, err := m.sbt.Mint(ctx, chain.From(m.Address()), collector, data.CollectionID, data.ChainID)
	if err != nil {
		return err
	}
	m.log.Info("collected into soulbound token",
		zap.Stringer("collector", collector),
		zap.Stringer("collectionID", data.CollectionID),
		zap.Stringer("tokenID", tokenID),
		zap.Uint16("dstChainID", data.ChainID),
	)
	return nil
}
