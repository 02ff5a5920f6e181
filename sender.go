// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
)

// Endpoint is the messaging transport as seen by applications.
type Endpoint interface {
	Address() common.Address
	ChainID() uint16

	// EstimateFees quotes the native and ZRO fee of sending payload from ua
	EstimateFees(dstChainID uint16, ua common.Address, payload []byte, payInZRO bool, adapterParams []byte) (*uint256.Int, *uint256.Int, error)

	// Send dispatches payload to the destination path on dstChainID. msg.Value
	// pays the fee, the excess is refunded.
	Send(ctx context.Context, msg chain.Msg, dstChainID uint16, destination []byte, payload []byte, refund common.Address, zroPaymentAddress common.Address, adapterParams []byte) error

	// RetryPayload re-delivers the payload stored for a blocked channel
	RetryPayload(ctx context.Context, srcChainID uint16, srcPath []byte, payload []byte) error

	// ForceResumeReceive discards the payload stored for a blocked channel.
	// Only the blocked receiver may call it.
	ForceResumeReceive(ctx context.Context, caller common.Address, srcChainID uint16, srcPath []byte) error

	HasStoredPayload(srcChainID uint16, srcPath []byte) bool
}
