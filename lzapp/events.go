// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzapp

import (
	"github.com/luxfi/geth/common"
)

type SetTrustedRemote struct {
	RemoteChainID uint16
	Path          []byte
}

func (SetTrustedRemote) EventName() string { return "SetTrustedRemote" }

type SetTrustedRemoteAddress struct {
	RemoteChainID uint16
	RemoteAddress common.Address
}

func (SetTrustedRemoteAddress) EventName() string { return "SetTrustedRemoteAddress" }

// MessageFailed is emitted when an admitted message fails without blocking
// its channel. Reason is the short revert reason.
type MessageFailed struct {
	SrcChainID uint16
	SrcAddress []byte
	Nonce      uint64
	Payload    []byte
	Reason     string
}

func (MessageFailed) EventName() string { return "MessageFailed" }

type RetryMessageSuccess struct {
	SrcChainID  uint16
	SrcAddress  []byte
	Nonce       uint64
	PayloadHash common.Hash
}

func (RetryMessageSuccess) EventName() string { return "RetryMessageSuccess" }
