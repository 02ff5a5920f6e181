// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/proxy"
	"github.com/luxfi/lzgate/sbt"
	"github.com/luxfi/lzgate/signer"
)

// SignatureLifetime is how long intents signed by the helpers stay valid
const SignatureLifetime = 3600

// Deadline returns the deadline of an intent signed now
func (d *Deployment) Deadline() *big.Int {
	return new(big.Int).SetUint64(d.Source.Now() + SignatureLifetime)
}

// FollowRelay signs a follow of profileID by s and wraps it for the proxy
func (d *Deployment) FollowRelay(ctx context.Context, s signer.Signer, profileID *big.Int, tokenContract common.Address, threshold *big.Int, dstGas uint64) (proxy.FollowRelay, error) {
	h := d.Hub
	vars, err := signer.SignFollow(ctx, s, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(s.Address()), d.Deadline())
	if err != nil {
		return proxy.FollowRelay{}, err
	}
	return proxy.FollowRelay{
		Sender:        s.Address(),
		ProfileID:     profileID,
		TokenContract: tokenContract,
		Threshold:     threshold,
		Sig:           vars,
		DstGas:        dstGas,
	}, nil
}

// CollectRelay signs a collect of a publication by s and wraps it for the
// proxy
func (d *Deployment) CollectRelay(ctx context.Context, s signer.Signer, profileID, pubID *big.Int, tokenContract common.Address, threshold *big.Int, dstGas uint64) (proxy.CollectRelay, error) {
	h := d.Hub
	vars, err := signer.SignCollect(ctx, s, h.Domain(), profileID, pubID, nil, h.SigNonces(s.Address()), d.Deadline())
	if err != nil {
		return proxy.CollectRelay{}, err
	}
	return proxy.CollectRelay{
		Sender:        s.Address(),
		ProfileID:     profileID,
		PubID:         pubID,
		TokenContract: tokenContract,
		Threshold:     threshold,
		Sig:           vars,
		DstGas:        dstGas,
	}, nil
}

// RelayFollow pays the estimated fee and relays r. It returns the fee.
func (d *Deployment) RelayFollow(ctx context.Context, r proxy.FollowRelay) (*uint256.Int, error) {
	fee, _, err := d.Proxy.EstimateFeesFollow(r, false)
	if err != nil {
		return nil, err
	}
	return fee, d.Proxy.RelayFollowWithSig(ctx, chain.Msg{Sender: r.Sender, Value: fee}, r)
}

// RelayCollect pays the estimated fee and relays r. It returns the fee.
func (d *Deployment) RelayCollect(ctx context.Context, r proxy.CollectRelay) (*uint256.Int, error) {
	fee, _, err := d.Proxy.EstimateFeesCollect(r, false)
	if err != nil {
		return nil, err
	}
	return fee, d.Proxy.RelayCollectWithSig(ctx, chain.Msg{Sender: r.Sender, Value: fee}, r)
}

// OperatorSBT is an OmniSBT pair minted by an off-chain operator instead of
// a collect module
type OperatorSBT struct {
	Source       *sbt.OmniSBT
	Destination  *sbt.OmniSBT
	CollectionID *big.Int
}

// DeployOperatorSBT deploys an OmniSBT pair whose collect module is
// operator, with one collection for profileID
func (d *Deployment) DeployOperatorSBT(operator common.Address, profileID *big.Int, uri string, funding *uint256.Int) (*OperatorSBT, error) {
	destination := d.Remote.PredictAddress(RemoteDeployer, 0)
	src, err := sbt.New(sbt.Config{
		Endpoint:        d.SourceEndpoint,
		Owner:           SourceDeployer,
		RemoteChainIDs:  []uint16{d.Remote.ID()},
		RemoteContracts: []common.Address{destination},
		IsSource:        true,
	}, d.appOpts...)
	if err != nil {
		return nil, err
	}
	if _, err := d.Source.Deploy(SourceDeployer, src); err != nil {
		return nil, err
	}
	dst, err := sbt.New(sbt.Config{
		Endpoint:        d.RemoteEndpoint,
		Owner:           RemoteDeployer,
		RemoteChainIDs:  []uint16{d.Source.ID()},
		RemoteContracts: []common.Address{src.Address()},
	}, d.appOpts...)
	if err != nil {
		return nil, err
	}
	if _, err := d.Remote.Deploy(RemoteDeployer, dst); err != nil {
		return nil, err
	}
	if err := src.SetCollectModule(SourceDeployer, operator); err != nil {
		return nil, err
	}
	collectionID, err := src.CreateCollection(operator, profileID, uri)
	if err != nil {
		return nil, err
	}
	if funding == nil {
		funding = DefaultSBTFunding
	}
	d.Source.Fund(src.Address(), funding)
	return &OperatorSBT{Source: src, Destination: dst, CollectionID: collectionID}, nil
}

// GatedInit encodes a gating condition on the remote chain
func (d *Deployment) GatedInit(tokenContract common.Address, threshold *big.Int) ([]byte, error) {
	init, err := payload.NewGatedInit(tokenContract, threshold, d.Remote.ID())
	if err != nil {
		return nil, err
	}
	return init.Bytes(), nil
}
