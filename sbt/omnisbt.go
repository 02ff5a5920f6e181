// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package sbt is the omnichain soulbound token: collections are created on
// the platform chain, tokens are minted on a destination chain by a relayed
// message and can never be transferred.
package sbt

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/token"
)

const (
	Name   = "Omni Soulbound Token"
	Symbol = "OMNI-SBT"
)

var (
	ErrSoulbound          = lzgate.NewError(lzgate.KindAuthorization, "Soulbound")
	ErrOnlyTokenOwner     = lzgate.NewError(lzgate.KindAuthorization, "OnlyTokenOwner")
	ErrOnlyFollowers      = lzgate.NewError(lzgate.KindAuthorization, "OnlyFollowers")
	ErrNonexistentToken   = lzgate.NewError(lzgate.KindPlatform, "ERC721: invalid token ID")
	ErrTokenAlreadyMinted = lzgate.NewError(lzgate.KindPlatform, "ERC721: token already minted")
	ErrNoSuchCollection   = lzgate.NewError(lzgate.KindPlatform, "CollectionDoesNotExist")
)

// Collection groups the tokens minted for one publication
type Collection struct {
	ID        *big.Int
	ProfileID *big.Int
	URI       string
}

// Config configures an OmniSBT
type Config struct {
	Endpoint lzgate.Endpoint
	Owner    common.Address

	// RemoteChainIDs and RemoteContracts pair each chain with the OmniSBT
	// deployed on it
	RemoteChainIDs  []uint16
	RemoteContracts []common.Address

	// IsSource marks the deployment on the platform chain, which creates
	// collections and sends mints. The others receive mints.
	IsSource bool
}

// OmniSBT is the soulbound token contract. Its receive is blocking: a
// message from an untrusted sender blocks the channel.
type OmniSBT struct {
	*chain.Dispatcher
	*lzapp.App

	isSource bool
	remotes  map[uint16]common.Address

	mu                sync.RWMutex
	collectModule     common.Address
	zroPaymentAddress common.Address
	collections       []Collection
	nextTokenID       uint64
	owners            map[uint64]common.Address
	uris              map[uint64]string
	balances          map[common.Address]uint64
}

// New creates an OmniSBT
func New(cfg Config, opts ...lzapp.Option) (*OmniSBT, error) {
	if len(cfg.RemoteChainIDs) != len(cfg.RemoteContracts) {
		return nil, lzgate.ErrArrayMismatch
	}
	s := &OmniSBT{
		isSource:    cfg.IsSource,
		remotes:     make(map[uint16]common.Address, len(cfg.RemoteChainIDs)),
		nextTokenID: 1,
		owners:      make(map[uint64]common.Address),
		uris:        make(map[uint64]string),
		balances:    make(map[common.Address]uint64),
	}
	for i, chainID := range cfg.RemoteChainIDs {
		s.remotes[chainID] = cfg.RemoteContracts[i]
	}
	app, err := lzapp.NewApp(cfg.Endpoint, cfg.Owner, s.receive, append(opts, lzapp.WithBlocking())...)
	if err != nil {
		return nil, err
	}
	s.App = app
	s.Dispatcher = chain.NewDispatcher(token.ABI, map[string]chain.MethodFunc{
		"name":              s.callName,
		"symbol":            s.callSymbol,
		"balanceOf":         s.callBalanceOf,
		"ownerOf":           s.callOwnerOf,
		"tokenURI":          s.callTokenURI,
		"supportsInterface": s.callSupportsInterface,
		"transferFrom":      s.callTransferFrom,
	})
	return s, nil
}

// Deployed trusts the remote contracts given at construction
func (s *OmniSBT) Deployed(c *chain.Chain, addr common.Address) {
	s.App.Deployed(c, addr)
	for chainID, remote := range s.remotes {
		s.TrustedRemotes().Set(chainID, lzgate.PackPath(remote, addr))
	}
}

// IsSource reports whether this deployment creates collections
func (s *OmniSBT) IsSource() bool { return s.isSource }

// CollectModule returns the only address allowed to create collections and
// mint
func (s *OmniSBT) CollectModule() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectModule
}

// SetCollectModule sets the collect module
func (s *OmniSBT) SetCollectModule(caller, collectModule common.Address) error {
	if err := s.OnlyOwner(caller); err != nil {
		return err
	}
	s.mu.Lock()
	s.collectModule = collectModule
	s.mu.Unlock()
	return nil
}

// ZroPaymentAddress returns the ZRO payment address used for mints
func (s *OmniSBT) ZroPaymentAddress() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zroPaymentAddress
}

// SetZroPaymentAddress sets the ZRO payment address
func (s *OmniSBT) SetZroPaymentAddress(caller, zroPaymentAddress common.Address) error {
	if err := s.OnlyOwner(caller); err != nil {
		return err
	}
	s.mu.Lock()
	s.zroPaymentAddress = zroPaymentAddress
	s.mu.Unlock()
	return nil
}

// LzRemoteLookup returns the OmniSBT trusted on chainID
func (s *OmniSBT) LzRemoteLookup(chainID uint16) (common.Address, bool) {
	return s.TrustedRemotes().RemoteAddress(chainID)
}

func (s *OmniSBT) onlyCollectModule(caller common.Address) error {
	if caller != s.CollectModule() {
		return lzgate.ErrOnlyCollectModule
	}
	return nil
}

// CreateCollection creates a collection for a publication of profileID and
// returns its id, starting at 1
func (s *OmniSBT) CreateCollection(caller common.Address, profileID *big.Int, uri string) (*big.Int, error) {
	if err := s.onlyCollectModule(caller); err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := big.NewInt(int64(len(s.collections) + 1))
	s.collections = append(s.collections, Collection{
		ID:        id,
		ProfileID: new(big.Int).Set(profileID),
		URI:       uri,
	})
	s.mu.Unlock()

	s.Emit(CollectionCreated{CollectionID: id, ProfileID: profileID, URI: uri})
	return new(big.Int).Set(id), nil
}

// Collections returns every collection in creation order
func (s *OmniSBT) Collections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Collection, len(s.collections))
	copy(out, s.collections)
	return out
}

func (s *OmniSBT) collection(collectionID *big.Int) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if collectionID == nil || collectionID.Sign() <= 0 || collectionID.Cmp(big.NewInt(int64(len(s.collections)))) > 0 {
		return Collection{}, fmt.Errorf("%w: %v", ErrNoSuchCollection, collectionID)
	}
	return s.collections[collectionID.Int64()-1], nil
}

// Mint sends a token of collectionID to `to` on chainID. The fee is
// msg.Value, or taken from the contract balance when no value is attached.
func (s *OmniSBT) Mint(ctx context.Context, msg chain.Msg, to common.Address, collectionID *big.Int, chainID uint16) (*big.Int, error) {
	if err := s.onlyCollectModule(msg.Sender); err != nil {
		return nil, err
	}
	if _, ok := s.TrustedRemote(chainID); !ok {
		return nil, fmt.Errorf("%w: chain %d", lzgate.ErrRemoteNotFound, chainID)
	}
	coll, err := s.collection(collectionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	tokenID := new(big.Int).SetUint64(s.nextTokenID)
	s.nextTokenID++
	s.mu.Unlock()

	m, err := payload.NewMintMessage(to, coll.ID, tokenID, coll.URI)
	if err != nil {
		return nil, err
	}
	zro := s.ZroPaymentAddress()
	adapterParams := payload.NewAdapterParams(0).Bytes()

	send, refund := msg, msg.Sender
	if msg.Value == nil || msg.Value.IsZero() {
		fee, _, err := s.EstimateFees(chainID, m.Bytes(), !lzgate.IsZeroAddress(zro), adapterParams)
		if err != nil {
			return nil, err
		}
		send, refund = chain.Msg{Sender: s.Address(), Value: fee}, s.Address()
	}
	if err := s.LzSend(ctx, send, chainID, m.Bytes(), refund, zro, adapterParams); err != nil {
		return nil, err
	}

	s.Emit(MintSent{To: to, CollectionID: coll.ID, TokenID: tokenID, DstChainID: chainID})
	s.Metrics().SBTMinted(s.Endpoint().ChainID(), chainID)
	s.Logger().Info("soulbound mint sent",
		zap.Stringer("to", to),
		zap.Stringer("collectionID", coll.ID),
		zap.Stringer("tokenID", tokenID),
		zap.Uint16("dstChainID", chainID),
	)
	return tokenID, nil
}

func (s *OmniSBT) receive(_ context.Context, srcChainID uint16, _ []byte, nonce uint64, msg []byte) error {
	m, err := payload.ParseMintMessage(msg)
	if err != nil {
		return err
	}
	if !m.TokenID.IsUint64() {
		return fmt.Errorf("%w: token id %s", payload.ErrInvalidPayload, m.TokenID)
	}
	id := m.TokenID.Uint64()

	s.mu.Lock()
	if _, ok := s.owners[id]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTokenAlreadyMinted, id)
	}
	s.owners[id] = m.To
	s.uris[id] = m.URI
	s.balances[m.To]++
	s.mu.Unlock()

	s.Emit(Transfer{To: m.To, TokenID: m.TokenID})
	s.Logger().Info("soulbound token minted",
		zap.Stringer("to", m.To),
		zap.Stringer("tokenID", m.TokenID),
		zap.Uint16("srcChainID", srcChainID),
		zap.Uint64("nonce", nonce),
	)
	return nil
}

// Burn destroys a token; only its owner may burn it
func (s *OmniSBT) Burn(caller common.Address, tokenID *big.Int) error {
	s.mu.Lock()
	id, owner, err := s.ownerLocked(tokenID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if owner != caller {
		s.mu.Unlock()
		return ErrOnlyTokenOwner
	}
	delete(s.owners, id)
	delete(s.uris, id)
	s.balances[owner]--
	s.mu.Unlock()

	s.Emit(Transfer{From: owner, TokenID: tokenID})
	return nil
}

// TransferFrom always fails: the tokens are soulbound
func (*OmniSBT) TransferFrom(common.Address, common.Address, common.Address, *big.Int) error {
	return ErrSoulbound
}

func (s *OmniSBT) ownerLocked(tokenID *big.Int) (uint64, common.Address, error) {
	if tokenID == nil || !tokenID.IsUint64() {
		return 0, common.Address{}, ErrNonexistentToken
	}
	id := tokenID.Uint64()
	owner, ok := s.owners[id]
	if !ok {
		return 0, common.Address{}, fmt.Errorf("%w: %d", ErrNonexistentToken, id)
	}
	return id, owner, nil
}

// OwnerOf returns the owner of tokenID
func (s *OmniSBT) OwnerOf(tokenID *big.Int) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, owner, err := s.ownerLocked(tokenID)
	return owner, err
}

// BalanceOf returns the number of tokens held by owner
func (s *OmniSBT) BalanceOf(owner common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[owner]
}

// TokenURI returns the URI of the collection tokenID was minted from
func (s *OmniSBT) TokenURI(tokenID *big.Int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, _, err := s.ownerLocked(tokenID)
	if err != nil {
		return "", err
	}
	return s.uris[id], nil
}

// SupportsInterface implements ERC165. Only the destination deployments
// hold token metadata.
func (s *OmniSBT) SupportsInterface(id [4]byte) bool {
	switch id {
	case token.InterfaceIDERC165, token.InterfaceIDERC721:
		return true
	case token.InterfaceIDERC721Metadata:
		return !s.isSource
	default:
		return false
	}
}

// Balance returns the native balance held by the contract for mint fees
func (s *OmniSBT) Balance() *uint256.Int {
	return s.Chain().Balance(s.Address())
}
