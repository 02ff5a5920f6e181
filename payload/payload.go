// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload encodes the messages relayed from proxies to gated
// modules, the module init data and the transport adapter params.
//
// All encodings are versionless Solidity ABI. The receiving contract knows
// which shape to expect from its own role, so messages carry no type tag.
package payload

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
)

var (
	//go:embed payload.abi
	rawABI string

	// ABI holds one pseudo-method per encoded shape; only the inputs are used
	ABI = chain.ParseABI(rawABI)

	// ErrInvalidPayload is returned when a payload is invalid
	ErrInvalidPayload = errors.New("invalid payload")
)

// Payload is an interface for relayed message payloads
type Payload interface {
	// Bytes returns the byte representation of the payload
	Bytes() []byte

	// Verify verifies the payload
	Verify() error
}

func pack(name string, args ...interface{}) ([]byte, error) {
	method, ok := ABI.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown shape %s", ErrInvalidPayload, name)
	}
	return method.Inputs.Pack(args...)
}

// mustPack is used by Bytes on payloads that already passed Verify
func mustPack(name string, args ...interface{}) []byte {
	b, _ := pack(name, args...)
	return b
}

func unpack(name string, b []byte) ([]interface{}, error) {
	values, err := ABI.Methods[name].Inputs.Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, name, err)
	}
	return values, nil
}

// canonical rejects encodings that decode but would not be produced by the
// encoder, such as trailing bytes or dirty padding.
func canonical(p Payload, b []byte) error {
	if err := p.Verify(); err != nil {
		return err
	}
	if !bytes.Equal(p.Bytes(), b) {
		return fmt.Errorf("%w: non-canonical encoding", ErrInvalidPayload)
	}
	return nil
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func checkInts(what string, xs ...*big.Int) error {
	for i, x := range xs {
		if x == nil {
			return fmt.Errorf("%w: %s: missing integer %d", ErrInvalidPayload, what, i)
		}
		if x.Sign() < 0 || x.BitLen() > 256 {
			return fmt.Errorf("%w: %s: integer %d out of range", ErrInvalidPayload, what, i)
		}
	}
	return nil
}

// BigEqual compares two possibly nil integers, nil being zero
func BigEqual(a, b *big.Int) bool {
	return orZero(a).Cmp(orZero(b)) == 0
}

// IsZeroAddress reports whether addr is unset
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
