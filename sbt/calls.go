// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sbt

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/token"
)

func (*OmniSBT) callName(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{Name}, nil
}

func (*OmniSBT) callSymbol(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return []interface{}{Symbol}, nil
}

func (s *OmniSBT) callBalanceOf(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	owner, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: owner", token.ErrBadArgument)
	}
	return []interface{}{new(big.Int).SetUint64(s.BalanceOf(owner))}, nil
}

func (s *OmniSBT) callOwnerOf(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	id, ok := args[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: token id", token.ErrBadArgument)
	}
	owner, err := s.OwnerOf(id)
	if err != nil {
		return nil, err
	}
	return []interface{}{owner}, nil
}

func (s *OmniSBT) callTokenURI(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	id, ok := args[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: token id", token.ErrBadArgument)
	}
	uri, err := s.TokenURI(id)
	if err != nil {
		return nil, err
	}
	return []interface{}{uri}, nil
}

func (s *OmniSBT) callSupportsInterface(_ context.Context, _ common.Address, args []interface{}) ([]interface{}, error) {
	id, ok := args[0].([4]byte)
	if !ok {
		return nil, fmt.Errorf("%w: interface id", token.ErrBadArgument)
	}
	return []interface{}{s.SupportsInterface(id)}, nil
}

func (*OmniSBT) callTransferFrom(context.Context, common.Address, []interface{}) ([]interface{}, error) {
	return nil, ErrSoulbound
}
