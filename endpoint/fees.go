// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"github.com/holiman/uint256"
)

const basisPoints = 10_000

var priceRatioDenominator = uint256.NewInt(10_000_000_000)

// FeeConfig is the fee model of the endpoint
type FeeConfig struct {
	DstPriceRatio    *uint256.Int
	DstGasPriceInWei *uint256.Int
	BaseGas          uint64
	GasPerByte       uint64
	OracleFee        *uint256.Int
	ZroFee           *uint256.Int
	NativeBP         uint64
}

// DefaultFeeConfig returns the fee model of the reference mock endpoint
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		DstPriceRatio:    uint256.NewInt(10_000_000_000),
		DstGasPriceInWei: uint256.NewInt(10_000_000_000),
		BaseGas:          100,
		GasPerByte:       1,
		OracleFee:        uint256.NewInt(10_000_000_000_000_000),
		ZroFee:           uint256.NewInt(1_000_000_000_000_000_000),
		NativeBP:         1_000,
	}
}

// relayerFee prices the destination gas and the payload bytes in source
// native currency
func (f FeeConfig) relayerFee(extraGas uint64, payloadSize int) *uint256.Int {
	remoteGas := new(uint256.Int).Mul(f.DstGasPriceInWei, uint256.NewInt(f.BaseGas+extraGas))
	basePrice := new(uint256.Int).Mul(remoteGas, f.DstPriceRatio)
	basePrice.Div(basePrice, priceRatioDenominator)

	pricePerByte := new(uint256.Int).Mul(f.DstGasPriceInWei, uint256.NewInt(f.GasPerByte))
	pricePerByte.Mul(pricePerByte, f.DstPriceRatio)
	pricePerByte.Div(pricePerByte, priceRatioDenominator)

	byteFee := new(uint256.Int).Mul(pricePerByte, uint256.NewInt(uint64(payloadSize)))
	return basePrice.Add(basePrice, byteFee)
}

func (f FeeConfig) protocolFee(payInZRO bool, relayerFee *uint256.Int) *uint256.Int {
	if payInZRO {
		return new(uint256.Int).Set(f.ZroFee)
	}
	fee := new(uint256.Int).Add(relayerFee, f.OracleFee)
	fee.Mul(fee, uint256.NewInt(f.NativeBP))
	return fee.Div(fee, uint256.NewInt(basisPoints))
}

// estimate returns the native and ZRO fee of a send
func (f FeeConfig) estimate(extraGas uint64, payloadSize int, payInZRO bool) (*uint256.Int, *uint256.Int) {
	relayerFee := f.relayerFee(extraGas, payloadSize)
	protocolFee := f.protocolFee(payInZRO, relayerFee)

	nativeFee := new(uint256.Int).Add(relayerFee, f.OracleFee)
	zroFee := new(uint256.Int)
	if payInZRO {
		zroFee = protocolFee
	} else {
		nativeFee.Add(nativeFee, protocolFee)
	}
	return nativeFee, zroFee
}
