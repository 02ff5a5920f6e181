// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// MethodFunc serves one ABI method. args are the unpacked inputs, the
// returned values are packed as the outputs.
type MethodFunc func(ctx context.Context, from common.Address, args []interface{}) ([]interface{}, error)

// Dispatcher routes ABI calldata to method handlers by selector
type Dispatcher struct {
	abi     abi.ABI
	methods map[string]MethodFunc
}

// ParseABI parses a JSON ABI, panicking on malformed input. Used for
// embedded ABIs.
func ParseABI(rawABI string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(err)
	}
	return parsed
}

// NewDispatcher returns a dispatcher for the methods of contractABI
func NewDispatcher(contractABI abi.ABI, methods map[string]MethodFunc) *Dispatcher {
	return &Dispatcher{
		abi:     contractABI,
		methods: methods,
	}
}

// Call implements Contract
func (d *Dispatcher) Call(ctx context.Context, from common.Address, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: %w", ErrExecutionReverted, ErrShortInput)
	}
	method, err := d.abi.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %x", ErrExecutionReverted, ErrUnknownSelector, input[:4])
	}
	fn, ok := d.methods[method.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrExecutionReverted, ErrUnknownSelector, method.Name)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: unpacking %s: %w", ErrExecutionReverted, method.Name, err)
	}
	out, err := fn(ctx, from, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionReverted, err)
	}
	return method.Outputs.Pack(out...)
}
