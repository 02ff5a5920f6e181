// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package lzapp is the application side of the messaging transport: owner
// access control, trusted remotes, inbound admission and the non-blocking
// receive used by the gated modules.
package lzapp

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/metrics"
)

// ReceiveFunc processes a payload admitted from a trusted remote
type ReceiveFunc func(ctx context.Context, srcChainID uint16, srcPath []byte, nonce uint64, payload []byte) error

// Option configures an App
type Option func(*App)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics sets the metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithBlocking makes messages from untrusted senders fail their delivery
// instead of being dropped, so the transport stores them.
func WithBlocking() Option {
	return func(a *App) {
		a.blocking = true
	}
}

var _ lzgate.Receiver = (*App)(nil)

// App is a transport application. It is a contract: embed it and deploy the
// embedding value.
type App struct {
	chain.Base
	chain.NoFallback
	*Owned

	endpoint lzgate.Endpoint
	trusted  *TrustedRemotes
	receive  ReceiveFunc
	blocking bool

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewApp creates an application bound to endpoint
func NewApp(endpoint lzgate.Endpoint, owner common.Address, receive ReceiveFunc, opts ...Option) (*App, error) {
	if endpoint == nil || lzgate.IsZeroAddress(endpoint.Address()) {
		return nil, fmt.Errorf("%w: endpoint", lzgate.ErrNotZeroAddress)
	}
	a := &App{
		Owned:    NewOwned(owner),
		endpoint: endpoint,
		trusted:  NewTrustedRemotes(),
		receive:  receive,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Endpoint returns the transport endpoint
func (a *App) Endpoint() lzgate.Endpoint { return a.endpoint }

// Logger returns the application logger
func (a *App) Logger() *zap.Logger { return a.log }

// Metrics returns the application metrics, possibly nil
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// TrustedRemotes returns the trusted remote store
func (a *App) TrustedRemotes() *TrustedRemotes { return a.trusted }

// SetTrustedRemote records path (remote ++ local) as the only sender
// accepted from chainID
func (a *App) SetTrustedRemote(caller common.Address, chainID uint16, path []byte) error {
	if err := a.OnlyOwner(caller); err != nil {
		return err
	}
	a.trusted.Set(chainID, path)
	a.Emit(SetTrustedRemote{RemoteChainID: chainID, Path: path})
	a.log.Info("set trusted remote",
		zap.Stringer("app", a.Address()),
		zap.Uint16("remoteChainID", chainID),
		zap.Binary("path", path),
	)
	return nil
}

// SetTrustedRemoteAddress trusts remote on chainID, pairing it with this
// application's address
func (a *App) SetTrustedRemoteAddress(caller common.Address, chainID uint16, remote common.Address) error {
	if err := a.OnlyOwner(caller); err != nil {
		return err
	}
	a.trusted.Set(chainID, lzgate.PackPath(remote, a.Address()))
	a.Emit(SetTrustedRemoteAddress{RemoteChainID: chainID, RemoteAddress: remote})
	a.log.Info("set trusted remote address",
		zap.Stringer("app", a.Address()),
		zap.Uint16("remoteChainID", chainID),
		zap.Stringer("remote", remote),
	)
	return nil
}

// TrustedRemote returns the trusted path of chainID
func (a *App) TrustedRemote(chainID uint16) ([]byte, bool) {
	return a.trusted.Get(chainID)
}

// IsTrustedRemote reports whether srcPath may deliver from chainID
func (a *App) IsTrustedRemote(chainID uint16, srcPath []byte) bool {
	return a.trusted.IsTrusted(chainID, srcPath)
}

// LzReceive implements lzgate.Receiver
func (a *App) LzReceive(ctx context.Context, caller common.Address, srcChainID uint16, srcPath []byte, nonce uint64, payload []byte) error {
	if caller != a.endpoint.Address() {
		return lzgate.ErrInvalidEndpointCall
	}
	if !a.trusted.IsTrusted(srcChainID, srcPath) {
		if a.blocking {
			return fmt.Errorf("%w: %d/%x", lzgate.ErrOnlyTrustedRemote, srcChainID, srcPath)
		}
		a.log.Warn("dropping message from untrusted remote",
			zap.Stringer("app", a.Address()),
			zap.Uint16("srcChainID", srcChainID),
			zap.Binary("srcPath", srcPath),
			zap.Uint64("nonce", nonce),
		)
		a.metrics.UntrustedDropped(a.endpoint.ChainID(), srcChainID)
		return nil
	}
	return a.receive(ctx, srcChainID, srcPath, nonce, payload)
}

// EstimateFees quotes sending payload from this application to dstChainID
func (a *App) EstimateFees(dstChainID uint16, payload []byte, payInZRO bool, adapterParams []byte) (*uint256.Int, *uint256.Int, error) {
	return a.endpoint.EstimateFees(dstChainID, a.Address(), payload, payInZRO, adapterParams)
}

// LzSend sends payload to the trusted remote of dstChainID. msg.Value moves
// from the caller to the application and is forwarded to the endpoint; if
// the send fails it is returned.
func (a *App) LzSend(
	ctx context.Context,
	msg chain.Msg,
	dstChainID uint16,
	payload []byte,
	refund common.Address,
	zroPaymentAddress common.Address,
	adapterParams []byte,
) error {
	path, ok := a.trusted.Get(dstChainID)
	if !ok {
		return fmt.Errorf("%w: no trusted remote for chain %d", lzgate.ErrRemoteNotFound, dstChainID)
	}
	return a.LzSendPath(ctx, msg, dstChainID, path, payload, refund, zroPaymentAddress, adapterParams)
}

// LzSendPath sends payload over an explicit path (destination ++ this
// application) instead of the trusted remote of dstChainID
func (a *App) LzSendPath(
	ctx context.Context,
	msg chain.Msg,
	dstChainID uint16,
	path []byte,
	payload []byte,
	refund common.Address,
	zroPaymentAddress common.Address,
	adapterParams []byte,
) error {
	c := a.Chain()
	if err := c.Pay(msg, a.Address()); err != nil {
		return err
	}
	err := a.endpoint.Send(ctx, chain.Msg{Sender: a.Address(), Value: msg.Value}, dstChainID, path, payload, refund, zroPaymentAddress, adapterParams)
	if err != nil {
		if refundErr := c.Transfer(a.Address(), msg.Sender, msg.Value); refundErr != nil {
			a.log.Error("failed to return value of failed send", zap.Error(refundErr))
		}
		return err
	}
	return nil
}

// ForceResumeReceive discards the payload blocking the channel from
// srcChainID over srcPath
func (a *App) ForceResumeReceive(ctx context.Context, caller common.Address, srcChainID uint16, srcPath []byte) error {
	if err := a.OnlyOwner(caller); err != nil {
		return err
	}
	return a.endpoint.ForceResumeReceive(ctx, a.Address(), srcChainID, srcPath)
}
