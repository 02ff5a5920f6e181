// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
)

var (
	ErrNonexistentToken = errors.New("invalid token ID")
	ErrNotMinter        = errors.New("caller is not the minter")
	ErrNotTokenOwner    = errors.New("caller is not token owner")
	ErrIndexOutOfBounds = errors.New("owner index out of bounds")
)

var (
	// InterfaceIDERC165 is the ERC165 interface id
	InterfaceIDERC165 = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	// InterfaceIDERC721 is the ERC721 interface id
	InterfaceIDERC721 = [4]byte{0x80, 0xac, 0x58, 0xcd}
	// InterfaceIDERC721Metadata is the ERC721Metadata interface id
	InterfaceIDERC721Metadata = [4]byte{0x5b, 0x5e, 0x13, 0x9f}
)

var _ chain.Contract = (*ERC721Mock)(nil)

// ERC721Mock is a non-fungible token with sequential ids starting at 1.
// When a minter is set only the minter may mint.
type ERC721Mock struct {
	chain.Base
	*chain.Dispatcher

	name   string
	symbol string
	minter common.Address

	mu     sync.RWMutex
	nextID uint64
	owners map[uint64]common.Address
	owned  map[common.Address][]uint64
}

// NewERC721Mock creates an ERC721; minter may be the zero address to allow
// anyone to mint.
func NewERC721Mock(name, symbol string, minter common.Address) *ERC721Mock {
	t := &ERC721Mock{
		name:   name,
		symbol: symbol,
		minter: minter,
		nextID: 1,
		owners: make(map[uint64]common.Address),
		owned:  make(map[common.Address][]uint64),
	}
	t.Dispatcher = chain.NewDispatcher(ABI, map[string]chain.MethodFunc{
		"name":                t.callName,
		"symbol":              t.callSymbol,
		"totalSupply":         t.callTotalSupply,
		"balanceOf":           t.callBalanceOf,
		"ownerOf":             t.callOwnerOf,
		"tokenOfOwnerByIndex": t.callTokenOfOwnerByIndex,
		"safeMint":            t.callSafeMint,
		"transferFrom":        t.callTransferFrom,
		"supportsInterface":   t.callSupportsInterface,
	})
	return t
}

// SafeMint mints the next token id to to
func (t *ERC721Mock) SafeMint(caller, to common.Address) (uint64, error) {
	if t.minter != (common.Address{}) && caller != t.minter {
		return 0, ErrNotMinter
	}
	if to == (common.Address{}) {
		return 0, ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.owners[id] = to
	t.owned[to] = append(t.owned[to], id)
	return id, nil
}

// TransferFrom moves tokenID from from to to; caller must own it
func (t *ERC721Mock) TransferFrom(caller, from, to common.Address, tokenID uint64) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNonexistentToken, tokenID)
	}
	if owner != from || caller != owner {
		return ErrNotTokenOwner
	}
	t.owners[tokenID] = to
	t.owned[from] = slices.DeleteFunc(t.owned[from], func(id uint64) bool { return id == tokenID })
	t.owned[to] = append(t.owned[to], tokenID)
	return nil
}

// BalanceOf returns the number of tokens owned by owner
func (t *ERC721Mock) BalanceOf(owner common.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.owned[owner]))
}

// OwnerOf returns the owner of tokenID
func (t *ERC721Mock) OwnerOf(tokenID uint64) (common.Address, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	owner, ok := t.owners[tokenID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrNonexistentToken, tokenID)
	}
	return owner, nil
}

// TokenOfOwnerByIndex returns the index-th token owned by owner
func (t *ERC721Mock) TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	owned := t.owned[owner]
	if index >= uint64(len(owned)) {
		return 0, ErrIndexOutOfBounds
	}
	return owned[index], nil
}

// TotalSupply returns the number of minted tokens
func (t *ERC721Mock) TotalSupply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.owners))
}

func (t *ERC721Mock) callName(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{t.name}, nil
}

func (t *ERC721Mock) callSymbol(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{t.symbol}, nil
}

func (t *ERC721Mock) callTotalSupply(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{new(big.Int).SetUint64(t.TotalSupply())}, nil
}

func (t *ERC721Mock) callBalanceOf(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	owner, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	return []interface{}{new(big.Int).SetUint64(t.BalanceOf(owner))}, nil
}

func (t *ERC721Mock) callOwnerOf(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	id, err := uintArg(args, 0)
	if err != nil {
		return nil, err
	}
	owner, err := t.OwnerOf(id.Uint64())
	if err != nil {
		return nil, err
	}
	return []interface{}{owner}, nil
}

func (t *ERC721Mock) callTokenOfOwnerByIndex(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	owner, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	index, err := uintArg(args, 1)
	if err != nil {
		return nil, err
	}
	id, err := t.TokenOfOwnerByIndex(owner, index.Uint64())
	if err != nil {
		return nil, err
	}
	return []interface{}{new(big.Int).SetUint64(id)}, nil
}

func (t *ERC721Mock) callSafeMint(_ context.Context, from common.Address, args []interface{}) ([]interface{}, error) {
	to, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	id, err := t.SafeMint(from, to)
	if err != nil {
		return nil, err
	}
	return []interface{}{new(big.Int).SetUint64(id)}, nil
}

func (t *ERC721Mock) callTransferFrom(_ context.Context, caller common.Address, args []interface{}) ([]interface{}, error) {
	from, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	to, err := addressArg(args, 1)
	if err != nil {
		return nil, err
	}
	id, err := uintArg(args, 2)
	if err != nil {
		return nil, err
	}
	return nil, t.TransferFrom(caller, from, to, id.Uint64())
}

func (*ERC721Mock) callSupportsInterface(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	id, ok := args[0].([4]byte)
	if !ok {
		return nil, ErrBadArgument
	}
	return []interface{}{id == InterfaceIDERC165 || id == InterfaceIDERC721 || id == InterfaceIDERC721Metadata}, nil
}
