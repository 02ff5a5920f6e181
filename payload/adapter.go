// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// AdapterParamsV1 sets the destination gas limit only
	AdapterParamsV1 uint16 = 1

	// DefaultGas is the destination gas used with empty adapter params
	DefaultGas uint64 = 200_000

	// EstimatedGasRemote is the destination gas the relay tooling asks for
	EstimatedGasRemote uint64 = 500_000

	adapterParamsV1Len = 2 + 32
)

var ErrInvalidAdapterParams = errors.New("invalid adapter params")

// AdapterParams are the transport options attached to a send
type AdapterParams struct {
	Version uint16
	Gas     uint64
}

// NewAdapterParams returns v1 params for gas; zero gas means DefaultGas
func NewAdapterParams(gas uint64) *AdapterParams {
	if gas == 0 {
		gas = DefaultGas
	}
	return &AdapterParams{Version: AdapterParamsV1, Gas: gas}
}

// Bytes returns solidityPack(uint16 version, uint256 gas)
func (a *AdapterParams) Bytes() []byte {
	b := make([]byte, adapterParamsV1Len)
	binary.BigEndian.PutUint16(b, a.Version)
	gas := uint256.NewInt(a.Gas).Bytes32()
	copy(b[2:], gas[:])
	return b
}

// ParseAdapterParams parses adapter params; empty params are the v1 default
func ParseAdapterParams(b []byte) (*AdapterParams, error) {
	if len(b) == 0 {
		return NewAdapterParams(0), nil
	}
	if len(b) != adapterParamsV1Len {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidAdapterParams, len(b))
	}
	version := binary.BigEndian.Uint16(b)
	if version != AdapterParamsV1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidAdapterParams, version)
	}
	gas := new(uint256.Int).SetBytes(b[2:])
	if !gas.IsUint64() || gas.IsZero() {
		return nil, fmt.Errorf("%w: gas %s", ErrInvalidAdapterParams, gas.Dec())
	}
	return &AdapterParams{Version: version, Gas: gas.Uint64()}, nil
}
