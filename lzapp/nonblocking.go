// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzapp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/payload"
)

type failedKey struct {
	srcChainID uint16
	srcPath    string
	nonce      uint64
}

// NonblockingApp catches failures of its handler so that one bad message
// never blocks the messages behind it. A failed message is remembered by
// the hash of its payload and can be retried by anyone holding the payload.
//
// Payloads that do not decode are the exception: they are returned to the
// transport, which stores them and blocks the channel until forced.
type NonblockingApp struct {
	*App

	handle ReceiveFunc

	mu     sync.Mutex
	failed map[failedKey]common.Hash
}

// NewNonblockingApp creates an application whose admitted messages are
// processed by handle
func NewNonblockingApp(endpoint lzgate.Endpoint, owner common.Address, handle ReceiveFunc, opts ...Option) (*NonblockingApp, error) {
	n := &NonblockingApp{
		handle: handle,
		failed: make(map[failedKey]common.Hash),
	}
	app, err := NewApp(endpoint, owner, n.receive, opts...)
	if err != nil {
		return nil, err
	}
	n.App = app
	return n, nil
}

func (n *NonblockingApp) receive(ctx context.Context, srcChainID uint16, srcPath []byte, nonce uint64, msg []byte) error {
	err := n.handle(ctx, srcChainID, srcPath, nonce, msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, payload.ErrInvalidPayload) {
		n.log.Error("undecodable payload",
			zap.Stringer("app", n.Address()),
			zap.Uint16("srcChainID", srcChainID),
			zap.Uint64("nonce", nonce),
			zap.Error(err),
		)
		return err
	}

	key := failedKey{srcChainID: srcChainID, srcPath: string(srcPath), nonce: nonce}
	n.mu.Lock()
	n.failed[key] = common.Keccak256Hash(msg)
	n.mu.Unlock()

	reason := lzgate.Reason(err)
	n.Emit(MessageFailed{
		SrcChainID: srcChainID,
		SrcAddress: srcPath,
		Nonce:      nonce,
		Payload:    msg,
		Reason:     reason,
	})
	n.metrics.MessageFailed(n.endpoint.ChainID(), reason)
	n.log.Info("message failed",
		zap.Stringer("app", n.Address()),
		zap.Uint16("srcChainID", srcChainID),
		zap.Uint64("nonce", nonce),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return nil
}

// FailedMessage returns the payload hash stored for a failed message
func (n *NonblockingApp) FailedMessage(srcChainID uint16, srcPath []byte, nonce uint64) (common.Hash, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	hash, ok := n.failed[failedKey{srcChainID: srcChainID, srcPath: string(srcPath), nonce: nonce}]
	return hash, ok
}

// RetryMessage processes a failed message again. On failure the message
// stays retryable and the error is returned.
func (n *NonblockingApp) RetryMessage(ctx context.Context, srcChainID uint16, srcPath []byte, nonce uint64, msg []byte) error {
	key := failedKey{srcChainID: srcChainID, srcPath: string(srcPath), nonce: nonce}
	hash := common.Keccak256Hash(msg)

	n.mu.Lock()
	stored, ok := n.failed[key]
	switch {
	case !ok:
		n.mu.Unlock()
		return lzgate.ErrNoStoredMessage
	case stored != hash:
		n.mu.Unlock()
		return lzgate.ErrInvalidStoredPayload
	}
	// claimed while it runs so concurrent retries cannot both execute
	delete(n.failed, key)
	n.mu.Unlock()

	err := n.handle(ctx, srcChainID, srcPath, nonce, msg)
	n.metrics.Retried(n.endpoint.ChainID(), "message", err)
	if err != nil {
		n.mu.Lock()
		n.failed[key] = stored
		n.mu.Unlock()
		return fmt.Errorf("retry of message %d from chain %d failed: %w", nonce, srcChainID, err)
	}

	n.Emit(RetryMessageSuccess{
		SrcChainID:  srcChainID,
		SrcAddress:  srcPath,
		Nonce:       nonce,
		PayloadHash: hash,
	})
	return nil
}
