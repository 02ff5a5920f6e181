// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package sim deploys the whole protocol on simulated chains: the platform
// and the gated modules on the source chain, the proxy on the remote chain,
// and an OmniSBT on each side.
package sim

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/endpoint"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/metrics"
	"github.com/luxfi/lzgate/modules"
	"github.com/luxfi/lzgate/proxy"
	"github.com/luxfi/lzgate/sbt"
	"github.com/luxfi/lzgate/token"
)

// Well known accounts of a deployment. Each deployer only deploys on one
// chain so that addresses can be predicted.
var (
	Governance       = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	SourceDeployer   = common.HexToAddress("0x0000000000000000000000000000000000005001")
	RemoteDeployer   = common.HexToAddress("0x0000000000000000000000000000000000005002")
	EndpointDeployer = common.HexToAddress("0x0000000000000000000000000000000000005003")
	TokenDeployer    = common.HexToAddress("0x0000000000000000000000000000000000005004")
)

// DefaultSBTFunding is the native balance the source OmniSBT gets to pay
// mint fees
var DefaultSBTFunding = uint256.NewInt(10_000_000_000_000_000_000)

// Config describes a deployment. Equal chain ids deploy everything on a
// single chain that sends to itself.
type Config struct {
	SourceChainID   uint16
	SourceName      string
	RemoteChainID   uint16
	RemoteName      string
	SBTFunding      *uint256.Int
	Clock           chain.Clock
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	EndpointOptions []endpoint.Option
}

// Loopback returns the configuration of a single chain deployment
func Loopback(chainID uint16) Config {
	return Config{SourceChainID: chainID, SourceName: "hardhat", RemoteChainID: chainID, RemoteName: "hardhat"}
}

// Deployment is a deployed protocol
type Deployment struct {
	Network *endpoint.Network
	Source  *chain.Chain
	Remote  *chain.Chain

	SourceEndpoint *endpoint.Endpoint
	RemoteEndpoint *endpoint.Endpoint

	Hub             *hub.Hub
	FollowModule    *modules.FollowModule
	ReferenceModule *modules.ReferenceModule
	CollectModule   *modules.CollectModule
	Proxy           *proxy.Proxy

	SourceSBT        *sbt.OmniSBT
	DestinationSBT   *sbt.OmniSBT
	SBTCollectModule *sbt.CollectModule

	log     *zap.Logger
	appOpts []lzapp.Option
}

// Deploy deploys the protocol
func Deploy(cfg Config) (*Deployment, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &Deployment{
		Network: endpoint.NewNetwork(),
		log:     log,
	}

	d.Source = chain.New(cfg.SourceChainID, cfg.SourceName)
	d.Remote = d.Source
	if cfg.RemoteChainID != cfg.SourceChainID {
		d.Remote = chain.New(cfg.RemoteChainID, cfg.RemoteName)
	}
	if cfg.Clock != nil {
		d.Source.SetClock(cfg.Clock)
		d.Remote.SetClock(cfg.Clock)
	}

	epOpts := append([]endpoint.Option{endpoint.WithLogger(log), endpoint.WithMetrics(cfg.Metrics)}, cfg.EndpointOptions...)
	var err error
	d.SourceEndpoint, err = endpoint.Deploy(d.Source, EndpointDeployer, d.Network, epOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy source endpoint: %w", err)
	}
	d.RemoteEndpoint = d.SourceEndpoint
	if d.Remote != d.Source {
		d.RemoteEndpoint, err = endpoint.Deploy(d.Remote, EndpointDeployer, d.Network, epOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to deploy remote endpoint: %w", err)
		}
	}

	d.appOpts = []lzapp.Option{lzapp.WithLogger(log), lzapp.WithMetrics(cfg.Metrics)}
	if err := d.deploySource(d.appOpts); err != nil {
		return nil, err
	}
	if err := d.deployRemote(d.appOpts); err != nil {
		return nil, err
	}
	if err := d.deploySBT(cfg, d.appOpts); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deployment) deploySource(appOpts []lzapp.Option) error {
	d.Hub = hub.New(Governance, hub.WithLogger(d.log))
	if _, err := d.Source.Deploy(SourceDeployer, d.Hub); err != nil {
		return err
	}

	cfg := modules.Config{
		Endpoint:       d.SourceEndpoint,
		Owner:          SourceDeployer,
		Hub:            d.Hub.Address(),
		Platform:       d.Hub,
		Balances:       token.NewChainOracle(d.Source, d.log),
		RemoteChainIDs: []uint16{d.Remote.ID()},
		RemoteProxies:  []common.Address{d.Remote.PredictAddress(RemoteDeployer, 0)},
	}
	var err error
	if d.FollowModule, err = modules.NewFollowModule(cfg, appOpts...); err != nil {
		return err
	}
	if d.ReferenceModule, err = modules.NewReferenceModule(cfg, appOpts...); err != nil {
		return err
	}
	if d.CollectModule, err = modules.NewCollectModule(cfg, appOpts...); err != nil {
		return err
	}
	for _, m := range []chain.Contract{d.FollowModule, d.ReferenceModule, d.CollectModule} {
		if _, err := d.Source.Deploy(SourceDeployer, m); err != nil {
			return err
		}
	}

	whitelist := []struct {
		kind   hub.ModuleKind
		module common.Address
	}{
		{hub.FollowModuleKind, d.FollowModule.Address()},
		{hub.ReferenceModuleKind, d.ReferenceModule.Address()},
		{hub.CollectModuleKind, d.CollectModule.Address()},
	}
	for _, w := range whitelist {
		if err := d.Hub.WhitelistModule(Governance, w.kind, w.module, true); err != nil {
			return err
		}
	}
	return d.Hub.WhitelistProfileCreator(Governance, Governance, true)
}

func (d *Deployment) deployRemote(appOpts []lzapp.Option) error {
	var err error
	d.Proxy, err = proxy.New(proxy.Config{
		Endpoint:              d.RemoteEndpoint,
		Owner:                 RemoteDeployer,
		Balances:              token.NewChainOracle(d.Remote, d.log),
		RemoteChainID:         d.Source.ID(),
		RemoteFollowModule:    d.FollowModule.Address(),
		RemoteReferenceModule: d.ReferenceModule.Address(),
		RemoteCollectModule:   d.CollectModule.Address(),
	}, appOpts...)
	if err != nil {
		return err
	}
	addr, err := d.Remote.Deploy(RemoteDeployer, d.Proxy)
	if err != nil {
		return err
	}
	if !d.FollowModule.IsTrustedRemote(d.Remote.ID(), lzgate.PackPath(addr, d.FollowModule.Address())) {
		return fmt.Errorf("proxy deployed at %s, modules trust another address", addr)
	}
	return nil
}

// deploySBT deploys the source OmniSBT on the platform chain and the
// destination OmniSBT on the remote chain, then the collect module minting
// from the source one
func (d *Deployment) deploySBT(cfg Config, appOpts []lzapp.Option) error {
	destination := d.Remote.PredictAddress(RemoteDeployer, 0)
	var err error
	d.SourceSBT, err = sbt.New(sbt.Config{
		Endpoint:        d.SourceEndpoint,
		Owner:           SourceDeployer,
		RemoteChainIDs:  []uint16{d.Remote.ID()},
		RemoteContracts: []common.Address{destination},
		IsSource:        true,
	}, appOpts...)
	if err != nil {
		return err
	}
	if _, err := d.Source.Deploy(SourceDeployer, d.SourceSBT); err != nil {
		return err
	}

	d.DestinationSBT, err = sbt.New(sbt.Config{
		Endpoint:        d.RemoteEndpoint,
		Owner:           RemoteDeployer,
		RemoteChainIDs:  []uint16{d.Source.ID()},
		RemoteContracts: []common.Address{d.SourceSBT.Address()},
	}, appOpts...)
	if err != nil {
		return err
	}
	addr, err := d.Remote.Deploy(RemoteDeployer, d.DestinationSBT)
	if err != nil {
		return err
	}
	if addr != destination {
		return fmt.Errorf("destination OmniSBT deployed at %s, expected %s", addr, destination)
	}

	d.SBTCollectModule, err = sbt.NewCollectModule(d.SourceSBT, d.Hub.Address(), d.Hub, d.log)
	if err != nil {
		return err
	}
	if _, err := d.Source.Deploy(SourceDeployer, d.SBTCollectModule); err != nil {
		return err
	}
	if err := d.SourceSBT.SetCollectModule(SourceDeployer, d.SBTCollectModule.Address()); err != nil {
		return err
	}
	if err := d.Hub.WhitelistModule(Governance, hub.CollectModuleKind, d.SBTCollectModule.Address(), true); err != nil {
		return err
	}

	funding := cfg.SBTFunding
	if funding == nil {
		funding = DefaultSBTFunding
	}
	d.Source.Fund(d.SourceSBT.Address(), funding)
	return nil
}

// Loopback reports whether source and remote are the same chain
func (d *Deployment) Loopback() bool {
	return d.Source == d.Remote
}

// DeployToken deploys an ERC721 gating token at the same address on the
// source and the remote chain, so that a condition names the same contract
// on both sides. The remote token is returned second; on a single chain
// both are the same token.
func (d *Deployment) DeployToken(name, symbol string) (*token.ERC721Mock, *token.ERC721Mock, error) {
	src := token.NewERC721Mock(name, symbol, common.Address{})
	srcAddr, err := d.Source.Deploy(TokenDeployer, src)
	if err != nil {
		return nil, nil, err
	}
	if d.Loopback() {
		return src, src, nil
	}
	remote := token.NewERC721Mock(name, symbol, common.Address{})
	remoteAddr, err := d.Remote.Deploy(TokenDeployer, remote)
	if err != nil {
		return nil, nil, err
	}
	if srcAddr != remoteAddr {
		return nil, nil, fmt.Errorf("token deployed at %s on source and %s on remote", srcAddr, remoteAddr)
	}
	return src, remote, nil
}

// CreateProfile creates a profile for owner through governance
func (d *Deployment) CreateProfile(ctx context.Context, owner common.Address, handle string, followModule common.Address, initData []byte) (*big.Int, error) {
	return d.Hub.CreateProfile(ctx, Governance, hub.CreateProfileData{
		To:                   owner,
		Handle:               handle,
		FollowModule:         followModule,
		FollowModuleInitData: initData,
	})
}

// Flush delivers every queued packet
func (d *Deployment) Flush(ctx context.Context) (int, error) {
	return d.Network.Flush(ctx)
}
