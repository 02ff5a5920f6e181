// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/math"
)

// KiB is 1024 bytes
const KiB = 1024

// MaxUint256 is the deadline used by signatures that never expire
var MaxUint256 = new(big.Int).Set(math.MaxBig256)

// IsZeroAddress reports whether addr is the zero address
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}

// BigEqual compares two possibly nil integers, treating nil as zero
func BigEqual(a, b *big.Int) bool {
	if a == nil {
		a = common.Big0
	}
	if b == nil {
		b = common.Big0
	}
	return a.Cmp(b) == 0
}
