// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package proxy is the remote-chain entry point of the gated actions. A
// proxy checks the caller's balance optimistically, wraps the signed
// intent with the claimed condition and sends it to the gated module on
// the platform chain.
package proxy

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
	actionFollow  = "follow"
	actionComment = "comment"
	actionMirror  = "mirror"
	actionCollect = "collect"
)

// Config configures a Proxy. A zero module address disables the action.
type Config struct {
	Endpoint              lzgate.Endpoint
	Owner                 common.Address
	Balances              token.BalanceOracle
	RemoteChainID         uint16
	RemoteFollowModule    common.Address
	RemoteReferenceModule common.Address
	RemoteCollectModule   common.Address
}

// FollowRelay is a follow to relay. DstGas zero uses the default gas.
type FollowRelay struct {
	Sender        common.Address
	ProfileID     *big.Int
	TokenContract common.Address
	Threshold     *big.Int
	Sig           payload.FollowWithSigData
	DstGas        uint64
}

// CommentRelay is a comment to relay
type CommentRelay struct {
	Sender           common.Address
	ProfileID        *big.Int
	ProfileIDPointed *big.Int
	PubIDPointed     *big.Int
	TokenContract    common.Address
	Threshold        *big.Int
	Sig              payload.CommentWithSigData
	DstGas           uint64
}

// MirrorRelay is a mirror to relay
type MirrorRelay struct {
	Sender           common.Address
	ProfileID        *big.Int
	ProfileIDPointed *big.Int
	PubIDPointed     *big.Int
	TokenContract    common.Address
	Threshold        *big.Int
	Sig              payload.MirrorWithSigData
	DstGas           uint64
}

// CollectRelay is a collect to relay
type CollectRelay struct {
	Sender        common.Address
	ProfileID     *big.Int
	PubID         *big.Int
	TokenContract common.Address
	Threshold     *big.Int
	Sig           payload.CollectWithSigData
	DstGas        uint64
}

// Proxy relays gated actions to the platform chain
type Proxy struct {
	*lzapp.App

	balances              token.BalanceOracle
	remoteChainID         uint16
	remoteFollowModule    common.Address
	remoteReferenceModule common.Address
	remoteCollectModule   common.Address

	mu                sync.RWMutex
	zroPaymentAddress common.Address
}

// New creates a proxy
func New(cfg Config, opts ...lzapp.Option) (*Proxy, error) {
	if cfg.Balances == nil {
		return nil, fmt.Errorf("%w: balance oracle", lzgate.ErrInitParamsInvalid)
	}
	p := &Proxy{
		balances:              cfg.Balances,
		remoteChainID:         cfg.RemoteChainID,
		remoteFollowModule:    cfg.RemoteFollowModule,
		remoteReferenceModule: cfg.RemoteReferenceModule,
		remoteCollectModule:   cfg.RemoteCollectModule,
	}
	app, err := lzapp.NewApp(cfg.Endpoint, cfg.Owner, p.receive, opts...)
	if err != nil {
		return nil, err
	}
	p.App = app
	return p, nil
}

// RemoteChainID returns the platform chain id
func (p *Proxy) RemoteChainID() uint16 { return p.remoteChainID }

// ZroPaymentAddress returns the address fees are paid in ZRO from, zero
// for native payment
func (p *Proxy) ZroPaymentAddress() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.zroPaymentAddress
}

// SetZroPaymentAddress sets the ZRO payment address
func (p *Proxy) SetZroPaymentAddress(caller, zroPaymentAddress common.Address) error {
	if err := p.OnlyOwner(caller); err != nil {
		return err
	}
	p.mu.Lock()
	p.zroPaymentAddress = zroPaymentAddress
	p.mu.Unlock()
	return nil
}

// RelayFollowWithSig relays a follow of r.ProfileID by r.Sender
func (p *Proxy) RelayFollowWithSig(ctx context.Context, msg chain.Msg, r FollowRelay) error {
	m, err := p.followMessage(ctx, msg, r)
	if err != nil {
		p.rejected(actionFollow, err)
		return err
	}
	return p.send(ctx, msg, actionFollow, p.remoteFollowModule, m.Bytes(), r.DstGas)
}

// RelayCommentWithSig relays a comment of r.Sender's profile
func (p *Proxy) RelayCommentWithSig(ctx context.Context, msg chain.Msg, r CommentRelay) error {
	m, err := p.commentMessage(ctx, msg, r)
	if err != nil {
		p.rejected(actionComment, err)
		return err
	}
	return p.send(ctx, msg, actionComment, p.remoteReferenceModule, m.Bytes(), r.DstGas)
}

// RelayMirrorWithSig relays a mirror of r.Sender's profile
func (p *Proxy) RelayMirrorWithSig(ctx context.Context, msg chain.Msg, r MirrorRelay) error {
	m, err := p.mirrorMessage(ctx, msg, r)
	if err != nil {
		p.rejected(actionMirror, err)
		return err
	}
	return p.send(ctx, msg, actionMirror, p.remoteReferenceModule, m.Bytes(), r.DstGas)
}

// RelayCollectWithSig relays a collect by r.Sender
func (p *Proxy) RelayCollectWithSig(ctx context.Context, msg chain.Msg, r CollectRelay) error {
	m, err := p.collectMessage(ctx, msg, r)
	if err != nil {
		p.rejected(actionCollect, err)
		return err
	}
	return p.send(ctx, msg, actionCollect, p.remoteCollectModule, m.Bytes(), r.DstGas)
}

// EstimateFeesFollow quotes RelayFollowWithSig
func (p *Proxy) EstimateFeesFollow(r FollowRelay, payInZRO bool) (*uint256.Int, *uint256.Int, error) {
	m, err := payload.NewFollowMessage(r.Sender, r.TokenContract, r.ProfileID, r.Threshold, r.Sig)
	if err != nil {
		return nil, nil, err
	}
	return p.estimate(m, payInZRO, r.DstGas)
}

// EstimateFeesComment quotes RelayCommentWithSig
func (p *Proxy) EstimateFeesComment(r CommentRelay, payInZRO bool) (*uint256.Int, *uint256.Int, error) {
	m, err := payload.NewCommentMessage(r.Sender, r.TokenContract, r.ProfileID, r.ProfileIDPointed, r.PubIDPointed, r.Threshold, r.Sig)
	if err != nil {
		return nil, nil, err
	}
	return p.estimate(m, payInZRO, r.DstGas)
}

// EstimateFeesMirror quotes RelayMirrorWithSig
func (p *Proxy) EstimateFeesMirror(r MirrorRelay, payInZRO bool) (*uint256.Int, *uint256.Int, error) {
	m, err := payload.NewMirrorMessage(r.Sender, r.TokenContract, r.ProfileID, r.ProfileIDPointed, r.PubIDPointed, r.Threshold, r.Sig)
	if err != nil {
		return nil, nil, err
	}
	return p.estimate(m, payInZRO, r.DstGas)
}

// EstimateFeesCollect quotes RelayCollectWithSig
func (p *Proxy) EstimateFeesCollect(r CollectRelay, payInZRO bool) (*uint256.Int, *uint256.Int, error) {
	m, err := payload.NewCollectMessage(r.Sender, r.TokenContract, r.ProfileID, r.PubID, r.Threshold, r.Sig)
	if err != nil {
		return nil, nil, err
	}
	return p.estimate(m, payInZRO, r.DstGas)
}

func (p *Proxy) estimate(m payload.Payload, payInZRO bool, dstGas uint64) (*uint256.Int, *uint256.Int, error) {
	return p.EstimateFees(p.remoteChainID, m.Bytes(), payInZRO, payload.NewAdapterParams(dstGas).Bytes())
}

// checkSender runs the checks every relay starts with
func (p *Proxy) checkSender(ctx context.Context, msg chain.Msg, sender, tokenContract common.Address, threshold *big.Int) error {
	if sender != msg.Sender {
		return fmt.Errorf("%w: %s relayed by %s", lzgate.ErrSenderMismatch, sender, msg.Sender)
	}
	if !p.balances.HasBalance(ctx, sender, tokenContract, threshold) {
		return fmt.Errorf("%w: %s holds less than %s of %s", lzgate.ErrInsufficientBalance, sender, threshold, tokenContract)
	}
	return nil
}

func (p *Proxy) followMessage(ctx context.Context, msg chain.Msg, r FollowRelay) (*payload.FollowMessage, error) {
	if err := p.checkSender(ctx, msg, r.Sender, r.TokenContract, r.Threshold); err != nil {
		return nil, err
	}
	return payload.NewFollowMessage(r.Sender, r.TokenContract, r.ProfileID, r.Threshold, r.Sig)
}

func (p *Proxy) commentMessage(ctx context.Context, msg chain.Msg, r CommentRelay) (*payload.ReferenceMessage, error) {
	if err := p.checkSender(ctx, msg, r.Sender, r.TokenContract, r.Threshold); err != nil {
		return nil, err
	}
	return payload.NewCommentMessage(r.Sender, r.TokenContract, r.ProfileID, r.ProfileIDPointed, r.PubIDPointed, r.Threshold, r.Sig)
}

func (p *Proxy) mirrorMessage(ctx context.Context, msg chain.Msg, r MirrorRelay) (*payload.ReferenceMessage, error) {
	if err := p.checkSender(ctx, msg, r.Sender, r.TokenContract, r.Threshold); err != nil {
		return nil, err
	}
	return payload.NewMirrorMessage(r.Sender, r.TokenContract, r.ProfileID, r.ProfileIDPointed, r.PubIDPointed, r.Threshold, r.Sig)
}

func (p *Proxy) collectMessage(ctx context.Context, msg chain.Msg, r CollectRelay) (*payload.CollectMessage, error) {
	if err := p.checkSender(ctx, msg, r.Sender, r.TokenContract, r.Threshold); err != nil {
		return nil, err
	}
	return payload.NewCollectMessage(r.Sender, r.TokenContract, r.ProfileID, r.PubID, r.Threshold, r.Sig)
}

// send sends msgPayload to module on the platform chain, refunding excess
// fees to the caller
func (p *Proxy) send(ctx context.Context, msg chain.Msg, action string, module common.Address, msgPayload []byte, dstGas uint64) error {
	if lzgate.IsZeroAddress(module) {
		err := fmt.Errorf("%w: no %s module on chain %d", lzgate.ErrRemoteNotFound, action, p.remoteChainID)
		p.rejected(action, err)
		return err
	}
	path := lzgate.PackPath(module, p.Address())
	adapterParams := payload.NewAdapterParams(dstGas).Bytes()
	if err := p.LzSendPath(ctx, msg, p.remoteChainID, path, msgPayload, msg.Sender, p.ZroPaymentAddress(), adapterParams); err != nil {
		p.rejected(action, err)
		return err
	}

	p.Metrics().Relayed(p.remoteChainID, action)
	p.Logger().Info("relayed",
		zap.String("action", action),
		zap.Stringer("sender", msg.Sender),
		zap.Uint16("dstChainID", p.remoteChainID),
		zap.Stringer("module", module),
	)
	return nil
}

func (p *Proxy) rejected(action string, err error) {
	p.Metrics().RelayRejected(p.remoteChainID, action, lzgate.Reason(err))
	p.Logger().Debug("relay rejected",
		zap.String("action", action),
		zap.Error(err),
	)
}

// receive drops everything; nothing is ever sent to a proxy
func (p *Proxy) receive(_ context.Context, srcChainID uint16, _ []byte, nonce uint64, _ []byte) error {
	p.Logger().Warn("proxy received a message",
		zap.Uint16("srcChainID", srcChainID),
		zap.Uint64("nonce", nonce),
	)
	return nil
}
