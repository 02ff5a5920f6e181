// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"context"

	"github.com/luxfi/geth/common"
)

// Receiver handles packets delivered by an endpoint
type Receiver interface {
	// LzReceive processes a payload sent over srcPath from srcChainID. caller
	// is the delivering endpoint. A returned error blocks the channel.
	LzReceive(ctx context.Context, caller common.Address, srcChainID uint16, srcPath []byte, nonce uint64, payload []byte) error
}
