// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/metrics"
	"github.com/luxfi/lzgate/payload"
)

var (
	owner    = common.HexToAddress("0x01")
	stranger = common.HexToAddress("0x02")
	remote   = common.HexToAddress("0xee")
)

const remoteChainID = 123

// recordingHandler returns the queued errors in order, then nil
type recordingHandler struct {
	mu       sync.Mutex
	errs     []error
	payloads [][]byte
}

func (h *recordingHandler) handle(_ context.Context, _ uint16, _ []byte, _ uint64, msg []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, msg)
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func (h *recordingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads)
}

func newTestApp(t *testing.T, h *recordingHandler, opts ...Option) (*NonblockingApp, *lzgate.FakeEndpoint, *chain.Chain) {
	t.Helper()
	c := chain.New(remoteChainID, "test")
	endpoint := &lzgate.FakeEndpoint{Addr: common.HexToAddress("0xe0"), ID: remoteChainID}
	app, err := NewNonblockingApp(endpoint, owner, h.handle, opts...)
	require.NoError(t, err)
	_, err = c.Deploy(owner, app)
	require.NoError(t, err)
	return app, endpoint, c
}

func TestNewApp(t *testing.T) {
	_, err := NewApp(nil, owner, nil)
	require.ErrorIs(t, err, lzgate.ErrNotZeroAddress)

	_, err = NewApp(&lzgate.FakeEndpoint{}, owner, nil)
	require.ErrorIs(t, err, lzgate.ErrNotZeroAddress)
}

func TestTrustedRemote(t *testing.T) {
	require := require.New(t)

	app, _, c := newTestApp(t, &recordingHandler{})
	path := lzgate.PackPath(remote, app.Address())

	require.ErrorIs(app.SetTrustedRemote(stranger, remoteChainID, path), lzgate.ErrUnauthorized)
	require.False(app.IsTrustedRemote(remoteChainID, path))

	require.NoError(app.SetTrustedRemote(owner, remoteChainID, path))
	require.True(app.IsTrustedRemote(remoteChainID, path))
	require.False(app.IsTrustedRemote(remoteChainID, lzgate.PackPath(stranger, app.Address())))
	require.False(app.IsTrustedRemote(remoteChainID+1, path))

	// overwrite
	other := common.HexToAddress("0xef")
	require.NoError(app.SetTrustedRemoteAddress(owner, remoteChainID, other))
	require.False(app.IsTrustedRemote(remoteChainID, path))
	addr, ok := app.TrustedRemotes().RemoteAddress(remoteChainID)
	require.True(ok)
	require.Equal(other, addr)
	require.Equal([]uint16{remoteChainID}, app.TrustedRemotes().ChainIDs())

	require.Len(chain.FilterFrom[SetTrustedRemote](c.Logs(), app.Address()), 1)
	require.Len(chain.FilterFrom[SetTrustedRemoteAddress](c.Logs(), app.Address()), 1)

	require.ErrorIs(app.TransferOwnership(stranger, stranger), lzgate.ErrUnauthorized)
	require.NoError(app.TransferOwnership(owner, stranger))
	require.Equal(stranger, app.Owner())
}

func TestLzReceiveAdmission(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	h := &recordingHandler{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	app, endpoint, _ := newTestApp(t, h, WithMetrics(m))
	path := lzgate.PackPath(remote, app.Address())
	require.NoError(app.SetTrustedRemote(owner, remoteChainID, path))

	err := app.LzReceive(ctx, stranger, remoteChainID, path, 1, []byte("msg"))
	require.ErrorIs(err, lzgate.ErrInvalidEndpointCall)

	// untrusted senders are dropped without error
	require.NoError(app.LzReceive(ctx, endpoint.Address(), remoteChainID, lzgate.PackPath(stranger, app.Address()), 1, []byte("msg")))
	require.Zero(h.calls())

	require.NoError(app.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 1, []byte("msg")))
	require.Equal(1, h.calls())

	blocking, err := NewApp(endpoint, owner, h.handle, WithBlocking())
	require.NoError(err)
	err = blocking.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 1, []byte("msg"))
	require.ErrorIs(err, lzgate.ErrOnlyTrustedRemote)
}

func TestNonblockingReceive(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	errRejected := lzgate.ErrInvalidRemoteInput
	h := &recordingHandler{errs: []error{
		fmt.Errorf("%w: below threshold", errRejected),
		fmt.Errorf("%w: short", payload.ErrInvalidPayload),
	}}
	app, endpoint, c := newTestApp(t, h)
	path := lzgate.PackPath(remote, app.Address())
	require.NoError(app.SetTrustedRemote(owner, remoteChainID, path))

	require.NoError(app.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 1, []byte("bad")))
	failed := chain.FilterFrom[MessageFailed](c.Logs(), app.Address())
	require.Len(failed, 1)
	require.Equal("InvalidRemoteInput", failed[0].Reason)
	require.Equal(uint64(1), failed[0].Nonce)
	require.Equal([]byte("bad"), failed[0].Payload)

	hash, ok := app.FailedMessage(remoteChainID, path, 1)
	require.True(ok)
	require.Equal(common.Keccak256Hash([]byte("bad")), hash)

	// undecodable payloads block the channel
	err := app.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 2, []byte("garbage"))
	require.ErrorIs(err, payload.ErrInvalidPayload)
	_, ok = app.FailedMessage(remoteChainID, path, 2)
	require.False(ok)

	require.NoError(app.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 3, []byte("good")))
	require.Len(chain.FilterFrom[MessageFailed](c.Logs(), app.Address()), 1)
}

func TestRetryMessage(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	h := &recordingHandler{errs: []error{
		lzgate.ErrInvalidRemoteInput,
		lzgate.ErrInvalidRemoteInput,
	}}
	app, endpoint, c := newTestApp(t, h)
	path := lzgate.PackPath(remote, app.Address())
	require.NoError(app.SetTrustedRemote(owner, remoteChainID, path))
	require.NoError(app.LzReceive(ctx, endpoint.Address(), remoteChainID, path, 1, []byte("msg")))

	require.ErrorIs(app.RetryMessage(ctx, remoteChainID, path, 2, []byte("msg")), lzgate.ErrNoStoredMessage)
	require.ErrorIs(app.RetryMessage(ctx, remoteChainID, path, 1, []byte("other")), lzgate.ErrInvalidStoredPayload)

	// still failing: stays stored
	require.ErrorIs(app.RetryMessage(ctx, remoteChainID, path, 1, []byte("msg")), lzgate.ErrInvalidRemoteInput)
	_, ok := app.FailedMessage(remoteChainID, path, 1)
	require.True(ok)

	require.NoError(app.RetryMessage(ctx, remoteChainID, path, 1, []byte("msg")))
	_, ok = app.FailedMessage(remoteChainID, path, 1)
	require.False(ok)
	require.Len(chain.FilterFrom[RetryMessageSuccess](c.Logs(), app.Address()), 1)

	require.ErrorIs(app.RetryMessage(ctx, remoteChainID, path, 1, []byte("msg")), lzgate.ErrNoStoredMessage)
}

func TestLzSend(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	app, endpoint, c := newTestApp(t, &recordingHandler{})
	user := common.HexToAddress("0x05")
	c.Fund(user, uint256.NewInt(100))
	params := payload.NewAdapterParams(0).Bytes()

	err := app.LzSend(ctx, chain.Msg{Sender: user, Value: uint256.NewInt(10)}, remoteChainID, []byte("hi"), user, common.Address{}, params)
	require.ErrorIs(err, lzgate.ErrRemoteNotFound)

	path := lzgate.PackPath(remote, app.Address())
	require.NoError(app.SetTrustedRemote(owner, remoteChainID, path))
	require.NoError(app.LzSend(ctx, chain.Msg{Sender: user, Value: uint256.NewInt(10)}, remoteChainID, []byte("hi"), user, common.Address{}, params))

	sends := endpoint.Sends()
	require.Len(sends, 1)
	require.Equal(app.Address(), sends[0].Msg.Sender)
	require.Equal(path, sends[0].Destination)
	require.Equal(uint64(90), c.Balance(user).Uint64())

	endpoint.SendErr = errors.New("no fees")
	err = app.LzSend(ctx, chain.Msg{Sender: user, Value: uint256.NewInt(10)}, remoteChainID, []byte("hi"), user, common.Address{}, params)
	require.ErrorIs(err, endpoint.SendErr)
	require.Equal(uint64(90), c.Balance(user).Uint64())

	err = app.LzSend(ctx, chain.Msg{Sender: user, Value: uint256.NewInt(1000)}, remoteChainID, []byte("hi"), user, common.Address{}, params)
	require.ErrorIs(err, chain.ErrInsufficientFunds)

	require.ErrorIs(app.ForceResumeReceive(ctx, stranger, remoteChainID, path), lzgate.ErrUnauthorized)
	require.NoError(app.ForceResumeReceive(ctx, owner, remoteChainID, path))
}
