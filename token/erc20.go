// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package token provides the token contracts gating conditions point at and
// the defensive balance query used to evaluate them.
package token

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
)

var (
	//go:embed token.abi
	rawABI string

	// ABI is the union of the ERC20 and ERC721 surfaces the mocks expose
	ABI = chain.ParseABI(rawABI)

	ErrInsufficientTokenBalance = errors.New("transfer amount exceeds balance")
	ErrZeroRecipient            = errors.New("transfer to the zero address")
	ErrBadArgument              = errors.New("bad argument")
)

var _ chain.Contract = (*ERC20Mock)(nil)

// ERC20Mock is a freely mintable fungible token
type ERC20Mock struct {
	chain.Base
	*chain.Dispatcher

	name   string
	symbol string

	mu       sync.RWMutex
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
}

// NewERC20Mock creates a token; it is not registered on any chain until
// deployed.
func NewERC20Mock(name, symbol string) *ERC20Mock {
	t := &ERC20Mock{
		name:     name,
		symbol:   symbol,
		balances: make(map[common.Address]*uint256.Int),
		supply:   new(uint256.Int),
	}
	t.Dispatcher = chain.NewDispatcher(ABI, map[string]chain.MethodFunc{
		"name":        t.callName,
		"symbol":      t.callSymbol,
		"decimals":    t.callDecimals,
		"totalSupply": t.callTotalSupply,
		"balanceOf":   t.callBalanceOf,
		"transfer":    t.callTransfer,
		"mint":        t.callMint,
	})
	return t
}

// Mint credits amount to to
func (t *ERC20Mock) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balanceLocked(to)
	bal.Add(bal, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

// Transfer moves amount from from to to
func (t *ERC20Mock) Transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fromBal := t.balanceLocked(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientTokenBalance, fromBal.Dec(), amount.Dec())
	}
	fromBal.Sub(fromBal, amount)
	toBal := t.balanceLocked(to)
	toBal.Add(toBal, amount)
	return nil
}

// BalanceOf returns the balance of owner
func (t *ERC20Mock) BalanceOf(owner common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bal, ok := t.balances[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// TotalSupply returns the minted supply
func (t *ERC20Mock) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(t.supply)
}

func (t *ERC20Mock) balanceLocked(owner common.Address) *uint256.Int {
	bal, ok := t.balances[owner]
	if !ok {
		bal = new(uint256.Int)
		t.balances[owner] = bal
	}
	return bal
}

func (t *ERC20Mock) callName(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{t.name}, nil
}

func (t *ERC20Mock) callSymbol(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{t.symbol}, nil
}

func (*ERC20Mock) callDecimals(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{uint8(18)}, nil
}

func (t *ERC20Mock) callTotalSupply(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{t.TotalSupply().ToBig()}, nil
}

func (t *ERC20Mock) callBalanceOf(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	owner, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	return []interface{}{t.BalanceOf(owner).ToBig()}, nil
}

func (t *ERC20Mock) callTransfer(_ context.Context, from common.Address, args []interface{}) ([]interface{}, error) {
	to, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	amount, err := uintArg(args, 1)
	if err != nil {
		return nil, err
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return nil, err
	}
	return []interface{}{true}, nil
}

func (t *ERC20Mock) callMint(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	to, err := addressArg(args, 0)
	if err != nil {
		return nil, err
	}
	amount, err := uintArg(args, 1)
	if err != nil {
		return nil, err
	}
	return nil, t.Mint(to, amount)
}

func addressArg(args []interface{}, i int) (common.Address, error) {
	if i >= len(args) {
		return common.Address{}, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}
	addr, ok := args[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: argument %d is %T, not address", ErrBadArgument, i, args[i])
	}
	return addr, nil
}

func uintArg(args []interface{}, i int) (*uint256.Int, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrBadArgument, i)
	}
	b, ok := args[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, not uint256", ErrBadArgument, i, args[i])
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: argument %d overflows uint256", ErrBadArgument, i)
	}
	return v, nil
}
