// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate/chain"
)

var errMalformedBalance = errors.New("malformed balanceOf return data")

// BalanceOracle evaluates gating conditions against arbitrary token contracts
type BalanceOracle interface {
	// HasBalance reports whether actor holds at least threshold of
	// tokenContract. Any failure of the underlying call reports false.
	HasBalance(ctx context.Context, actor, tokenContract common.Address, threshold *big.Int) bool
}

var _ BalanceOracle = (*ChainOracle)(nil)

// ChainOracle queries balances with a low-level balanceOf call on a chain
type ChainOracle struct {
	chain *chain.Chain
	log   *zap.Logger
}

// NewChainOracle returns an oracle reading balances on c
func NewChainOracle(c *chain.Chain, log *zap.Logger) *ChainOracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChainOracle{chain: c, log: log}
}

// BalanceOf calls tokenContract.balanceOf(account)
func (o *ChainOracle) BalanceOf(ctx context.Context, tokenContract, account common.Address) (*big.Int, error) {
	input, err := ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	out, err := o.chain.StaticCall(ctx, common.Address{}, tokenContract, input)
	if err != nil {
		return nil, err
	}
	values, err := ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedBalance, err)
	}
	if len(values) != 1 {
		return nil, errMalformedBalance
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, errMalformedBalance
	}
	return bal, nil
}

// HasBalance implements BalanceOracle
func (o *ChainOracle) HasBalance(ctx context.Context, actor, tokenContract common.Address, threshold *big.Int) bool {
	bal, err := o.BalanceOf(ctx, tokenContract, actor)
	if err != nil {
		o.log.Debug("balance query failed",
			zap.Uint16("chainID", o.chain.ID()),
			zap.Stringer("token", tokenContract),
			zap.Stringer("actor", actor),
			zap.Error(err),
		)
		return false
	}
	if threshold == nil {
		return true
	}
	return bal.Cmp(threshold) >= 0
}
