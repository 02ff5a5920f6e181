// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules holds the platform modules that gate follows, references
// and collects on a token balance held on a remote chain. Each module
// receives relayed intents from a remote proxy, checks them against the
// condition stored at initialization and against the balance on its own
// chain, and only then executes the intent on the platform.
package modules

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/token"
)

// Platform is the part of the social platform the modules call into
type Platform interface {
	FollowWithSig(ctx context.Context, vars payload.FollowWithSigData) error
	CommentWithSig(ctx context.Context, vars payload.CommentWithSigData) (*big.Int, error)
	MirrorWithSig(ctx context.Context, vars payload.MirrorWithSigData) (*big.Int, error)
	CollectWithSig(ctx context.Context, vars payload.CollectWithSigData) error
	OwnerOf(profileID *big.Int) (common.Address, error)
}

// Condition is what a social object is gated on: holding at least
// Threshold of TokenContract on RemoteChainID
type Condition struct {
	TokenContract common.Address
	Threshold     *big.Int
	RemoteChainID uint16
}

// Matches reports whether the token and threshold claimed by a message are
// the ones of the condition
func (c Condition) Matches(tokenContract common.Address, threshold *big.Int) bool {
	return c.TokenContract == tokenContract && payload.BigEqual(c.Threshold, threshold)
}

type objectKey struct {
	profileID string
	pubID     string
}

func keyOf(profileID, pubID *big.Int) objectKey {
	k := objectKey{profileID: "0", pubID: "0"}
	if profileID != nil {
		k.profileID = profileID.String()
	}
	if pubID != nil {
		k.pubID = pubID.String()
	}
	return k
}

// Config is shared by the constructors of the gated modules
type Config struct {
	Endpoint lzgate.Endpoint
	Owner    common.Address
	Hub      common.Address
	Platform Platform
	Balances token.BalanceOracle

	// RemoteChainIDs and RemoteProxies pair each remote chain with the
	// proxy trusted to relay from it
	RemoteChainIDs []uint16
	RemoteProxies  []common.Address
}

// gated is the state and admission logic the three modules share
type gated struct {
	*lzapp.NonblockingApp

	hub      common.Address
	platform Platform
	balances token.BalanceOracle
	remotes  map[uint16]common.Address

	// relaying is set while the module executes a relayed intent, the only
	// time the platform callbacks of the module accept
	relaying atomic.Bool

	mu         sync.RWMutex
	conditions map[objectKey]Condition
}

func newGated(cfg Config, handle lzapp.ReceiveFunc, opts ...lzapp.Option) (*gated, error) {
	if lzgate.IsZeroAddress(cfg.Hub) || cfg.Platform == nil || cfg.Balances == nil {
		return nil, fmt.Errorf("%w: hub", lzgate.ErrInitParamsInvalid)
	}
	if len(cfg.RemoteChainIDs) != len(cfg.RemoteProxies) {
		return nil, lzgate.ErrArrayMismatch
	}
	g := &gated{
		hub:        cfg.Hub,
		platform:   cfg.Platform,
		balances:   cfg.Balances,
		remotes:    make(map[uint16]common.Address, len(cfg.RemoteChainIDs)),
		conditions: make(map[objectKey]Condition),
	}
	for i, chainID := range cfg.RemoteChainIDs {
		g.remotes[chainID] = cfg.RemoteProxies[i]
	}
	app, err := lzapp.NewNonblockingApp(cfg.Endpoint, cfg.Owner, handle, opts...)
	if err != nil {
		return nil, err
	}
	g.NonblockingApp = app
	return g, nil
}

// Deployed trusts the proxies given at construction, paired with the
// module's address
func (g *gated) Deployed(c *chain.Chain, addr common.Address) {
	g.NonblockingApp.Deployed(c, addr)
	for chainID, proxy := range g.remotes {
		g.TrustedRemotes().Set(chainID, lzgate.PackPath(proxy, addr))
	}
}

// Hub returns the platform address
func (g *gated) Hub() common.Address { return g.hub }

func (g *gated) onlyHub(caller common.Address) error {
	if caller != g.hub {
		return lzgate.ErrNotHub
	}
	return nil
}

// initialize decodes and stores the condition of a social object
func (g *gated) initialize(caller common.Address, key objectKey, data []byte) (Condition, error) {
	if err := g.onlyHub(caller); err != nil {
		return Condition{}, err
	}
	init, err := payload.ParseGatedInit(data)
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %w", lzgate.ErrInitParamsInvalid, err)
	}
	if lzgate.IsZeroAddress(init.TokenContract) || init.Threshold.Sign() == 0 {
		return Condition{}, fmt.Errorf("%w: zero token or threshold", lzgate.ErrInitParamsInvalid)
	}
	if _, ok := g.TrustedRemote(init.RemoteChainID); !ok {
		return Condition{}, fmt.Errorf("%w: no trusted remote for chain %d", lzgate.ErrInitParamsInvalid, init.RemoteChainID)
	}

	cond := Condition{
		TokenContract: init.TokenContract,
		Threshold:     new(big.Int).Set(init.Threshold),
		RemoteChainID: init.RemoteChainID,
	}
	g.mu.Lock()
	g.conditions[key] = cond
	g.mu.Unlock()
	return cond, nil
}

func (g *gated) condition(key objectKey) (Condition, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cond, ok := g.conditions[key]
	return cond, ok
}

// admit runs the authoritative checks shared by every relayed message: the
// object is gated, the claimed condition is the stored one, the message
// comes from the chain the condition names, and the sender holds the
// balance on this chain.
func (g *gated) admit(ctx context.Context, srcChainID uint16, key objectKey, sender, tokenContract common.Address, threshold *big.Int) error {
	cond, ok := g.condition(key)
	if !ok {
		return invalidInput("object %s/%s is not gated", key.profileID, key.pubID)
	}
	if !cond.Matches(tokenContract, threshold) {
		return invalidInput("claimed condition %s/%s does not match", tokenContract, threshold)
	}
	if cond.RemoteChainID != srcChainID {
		return invalidInput("condition is for chain %d, message from %d", cond.RemoteChainID, srcChainID)
	}
	if !g.balances.HasBalance(ctx, sender, tokenContract, threshold) {
		return invalidInput("%s holds less than %s of %s", sender, threshold, tokenContract)
	}
	return nil
}

// relay executes fn with the platform callbacks unlocked
func (g *gated) relay(fn func() error) error {
	g.relaying.Store(true)
	defer g.relaying.Store(false)
	return fn()
}

// onlyRelayed accepts a platform callback only while relaying
func (g *gated) onlyRelayed(caller common.Address, notAllowed error) error {
	if err := g.onlyHub(caller); err != nil {
		return err
	}
	if !g.relaying.Load() {
		return notAllowed
	}
	return nil
}

func (g *gated) logExecuted(action string, srcChainID uint16, nonce uint64, sender common.Address) {
	g.Logger().Info("relayed intent executed",
		zap.Stringer("module", g.Address()),
		zap.String("action", action),
		zap.Uint16("srcChainID", srcChainID),
		zap.Uint64("nonce", nonce),
		zap.Stringer("sender", sender),
	)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", lzgate.ErrInvalidRemoteInput, fmt.Sprintf(format, args...))
}
