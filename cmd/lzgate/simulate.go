// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/endpoint"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/metrics"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/proxy"
	"github.com/luxfi/lzgate/relayer"
	"github.com/luxfi/lzgate/sim"
	"github.com/luxfi/lzgate/signer"
)

const (
	actionFollow  = "follow"
	actionComment = "comment"
	actionMirror  = "mirror"
	actionCollect = "collect"
)

var (
	errUnknownAction = errors.New("unknown action")
	errTimeout       = errors.New("timed out")
	errRelayFailed   = errors.New("relay failed on delivery")

	one       = big.NewInt(1)
	userFunds = uint256.NewInt(1_000_000_000_000_000_000)
)

// deploy deploys the protocol on the configured networks
func (a *app) deploy(m *metrics.Metrics) (*sim.Deployment, error) {
	srcID, err := a.cfg.ChainID(a.cfg.SourceNetwork)
	if err != nil {
		return nil, err
	}
	remoteID, err := a.cfg.ChainID(a.cfg.RemoteNetwork)
	if err != nil {
		return nil, err
	}
	var epOpts []endpoint.Option
	if a.cfg.QueuedDelivery {
		epOpts = append(epOpts, endpoint.WithQueuedDelivery())
	}
	return sim.Deploy(sim.Config{
		SourceChainID:   srcID,
		SourceName:      a.cfg.SourceNetwork,
		RemoteChainID:   remoteID,
		RemoteName:      a.cfg.RemoteNetwork,
		Logger:          a.log,
		Metrics:         m,
		EndpointOptions: epOpts,
	})
}

func (a *app) estimateFeeCmd() *cobra.Command {
	var (
		action string
		gas    uint64
	)
	cmd := &cobra.Command{
		Use:   "estimate-fee",
		Short: "Estimate the native fee of relaying an action from the remote network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gas == 0 {
				gas = a.cfg.Gas()
			}
			fee, err := a.estimateFee(cmd.Context(), action, gas)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s: %s wei\n", action, a.cfg.RemoteNetwork, a.cfg.SourceNetwork, fee.Dec())
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", actionFollow, "Action to relay: follow, comment, mirror or collect")
	cmd.Flags().Uint64Var(&gas, "gas", 0, "Destination gas, 0 for the configured remote gas")
	return cmd
}

func (a *app) estimateFee(ctx context.Context, action string, gas uint64) (*uint256.Int, error) {
	d, err := a.deploy(nil)
	if err != nil {
		return nil, err
	}
	user, err := signer.GenerateLocalSigner()
	if err != nil {
		return nil, err
	}
	gate := common.HexToAddress("0x000000000000000000000000000000000000bEEF")
	h := d.Hub

	var fee *uint256.Int
	switch action {
	case actionFollow:
		r, err := d.FollowRelay(ctx, user, one, gate, one, gas)
		if err != nil {
			return nil, err
		}
		fee, _, err = d.Proxy.EstimateFeesFollow(r, false)
		if err != nil {
			return nil, err
		}
	case actionComment:
		vars, err := signer.SignComment(ctx, user, h.Domain(), payload.CommentWithSigData{
			ProfileID:        one,
			ContentURI:       "ipfs://comment",
			ProfileIDPointed: one,
			PubIDPointed:     one,
		}, h.SigNonces(user.Address()), d.Deadline())
		if err != nil {
			return nil, err
		}
		fee, _, err = d.Proxy.EstimateFeesComment(proxyComment(user.Address(), gate, vars, gas), false)
		if err != nil {
			return nil, err
		}
	case actionMirror:
		vars, err := signer.SignMirror(ctx, user, h.Domain(), payload.MirrorWithSigData{
			ProfileID:        one,
			ProfileIDPointed: one,
			PubIDPointed:     one,
		}, h.SigNonces(user.Address()), d.Deadline())
		if err != nil {
			return nil, err
		}
		fee, _, err = d.Proxy.EstimateFeesMirror(proxyMirror(user.Address(), gate, vars, gas), false)
		if err != nil {
			return nil, err
		}
	case actionCollect:
		r, err := d.CollectRelay(ctx, user, one, one, gate, one, gas)
		if err != nil {
			return nil, err
		}
		fee, _, err = d.Proxy.EstimateFeesCollect(r, false)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
	return fee, nil
}

func proxyComment(sender, gate common.Address, vars payload.CommentWithSigData, gas uint64) proxy.CommentRelay {
	return proxy.CommentRelay{
		Sender:           sender,
		ProfileID:        vars.ProfileID,
		ProfileIDPointed: vars.ProfileIDPointed,
		PubIDPointed:     vars.PubIDPointed,
		TokenContract:    gate,
		Threshold:        one,
		Sig:              vars,
		DstGas:           gas,
	}
}

func proxyMirror(sender, gate common.Address, vars payload.MirrorWithSigData, gas uint64) proxy.MirrorRelay {
	return proxy.MirrorRelay{
		Sender:           sender,
		ProfileID:        vars.ProfileID,
		ProfileIDPointed: vars.ProfileIDPointed,
		PubIDPointed:     vars.PubIDPointed,
		TokenContract:    gate,
		Threshold:        one,
		Sig:              vars,
		DstGas:           gas,
	}
}

func (a *app) simulateCmd() *cobra.Command {
	var (
		timeout      time.Duration
		printMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Deploy the protocol on simulated chains and relay a gated follow and collect",
		Long: `simulate deploys the platform and the gated modules on the source network,
the relay proxy on the remote network and an OmniSBT on each side. A user
holding the gating token follows a gated profile and collects its post
through the proxy, and the relayer mints the user a soulbound token on the
remote network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return a.simulate(ctx, cmd.OutOrStdout(), printMetrics)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time allowed for deliveries")
	cmd.Flags().BoolVar(&printMetrics, "print-metrics", false, "Print the metrics of the run")
	return cmd
}

func (a *app) simulate(ctx context.Context, out io.Writer, printMetrics bool) error {
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	d, err := a.deploy(m)
	if err != nil {
		return fmt.Errorf("failed to deploy: %w", err)
	}
	fmt.Fprintf(out, "hub %s on %s (%d), proxy %s on %s (%d)\n",
		d.Hub.Address(), d.Source.Name(), d.Source.ID(),
		d.Proxy.Address(), d.Remote.Name(), d.Remote.ID(),
	)

	srcToken, remoteToken, err := d.DeployToken("Hype Pass", "HYPE")
	if err != nil {
		return err
	}
	gate := srcToken.Address()
	user, err := a.userSigner()
	if err != nil {
		return err
	}
	creator, err := signer.GenerateLocalSigner()
	if err != nil {
		return err
	}
	operator, err := a.operator()
	if err != nil {
		return err
	}

	gatedInit, err := d.GatedInit(gate, one)
	if err != nil {
		return err
	}
	creatorID, err := d.CreateProfile(ctx, creator.Address(), "creator", d.FollowModule.Address(), gatedInit)
	if err != nil {
		return err
	}
	pubID, err := d.Hub.Post(ctx, creator.Address(), hub.PostData{
		ProfileID:             creatorID,
		ContentURI:            "ipfs://hype",
		CollectModule:         d.CollectModule.Address(),
		CollectModuleInitData: gatedInit,
	})
	if err != nil {
		return err
	}

	d.Remote.Fund(user.Address(), userFunds)
	if _, err := remoteToken.SafeMint(sim.TokenDeployer, user.Address()); err != nil {
		return err
	}
	if !d.Loopback() {
		if _, err := srcToken.SafeMint(sim.TokenDeployer, user.Address()); err != nil {
			return err
		}
	}

	osbt, err := d.DeployOperatorSBT(operator, creatorID, "ipfs://hype-sbt", nil)
	if err != nil {
		return err
	}
	w, err := relayer.NewCollectWatcher(relayer.WatcherConfig{
		Name:                 "hype",
		Chain:                d.Source,
		Hub:                  d.Hub.Address(),
		ProfileID:            creatorID,
		PubID:                pubID,
		Minter:               osbt.Source,
		Operator:             operator,
		CollectionID:         osbt.CollectionID,
		DstChainID:           d.Remote.ID(),
		StartIndex:           d.Source.Mark(),
		CacheSize:            a.cfg.WatcherCacheSize,
		RetryInitialInterval: a.cfg.RetryInitialInterval,
		RetryTimeout:         a.cfg.RetryTimeout,
	}, a.log, m)
	if err != nil {
		return err
	}
	var pump *relayer.Pump
	if a.cfg.QueuedDelivery {
		pump = relayer.NewPump(d.Network, a.cfg.PumpInterval, a.log)
	}

	runCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		errc <- relayer.New(a.log, pump, w).Run(runCtx)
	}()
	err = a.relay(ctx, out, d, user, gate, creatorID, pubID, osbt)
	stop()
	if runErr := <-errc; err == nil {
		err = runErr
	}
	if err != nil {
		return err
	}

	if printMetrics {
		families, err := registry.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *app) relay(
	ctx context.Context,
	out io.Writer,
	d *sim.Deployment,
	user *signer.LocalSigner,
	gate common.Address,
	creatorID *big.Int,
	pubID *big.Int,
	osbt *sim.OperatorSBT,
) error {
	gas := a.cfg.Gas()
	fr, err := d.FollowRelay(ctx, user, creatorID, gate, one, gas)
	if err != nil {
		return err
	}
	fee, err := d.RelayFollow(ctx, fr)
	if err != nil {
		return fmt.Errorf("failed to relay follow: %w", err)
	}
	fmt.Fprintf(out, "follow relayed for %s wei\n", fee.Dec())
	if err := waitFor(ctx, "follow", func() (bool, error) {
		return d.Hub.IsFollowing(creatorID, user.Address()), failure(d, d.FollowModule.Address())
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s follows profile %s\n", user.Address(), creatorID)

	// The collect intent is signed after the follow spent its nonce
	cr, err := d.CollectRelay(ctx, user, creatorID, pubID, gate, one, gas)
	if err != nil {
		return err
	}
	fee, err = d.RelayCollect(ctx, cr)
	if err != nil {
		return fmt.Errorf("failed to relay collect: %w", err)
	}
	fmt.Fprintf(out, "collect relayed for %s wei\n", fee.Dec())
	if err := waitFor(ctx, "soulbound mint", func() (bool, error) {
		return osbt.Destination.BalanceOf(user.Address()) > 0, failure(d, d.CollectModule.Address())
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s holds %d soulbound token(s) on %s\n", user.Address(), osbt.Destination.BalanceOf(user.Address()), d.Remote.Name())
	return nil
}

// failure returns the reason of the first message the module failed
func failure(d *sim.Deployment, module common.Address) error {
	failed := chain.FilterFrom[lzapp.MessageFailed](d.Source.Logs(), module)
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errRelayFailed, failed[0].Reason)
}

func waitFor(ctx context.Context, what string, done func() (bool, error)) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		ok, err := done()
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w waiting for %s", errTimeout, what)
		case <-ticker.C:
		}
	}
}

func (a *app) userSigner() (*signer.LocalSigner, error) {
	if a.cfg.Secrets.SignerKey == "" {
		return signer.GenerateLocalSigner()
	}
	return signer.NewLocalSignerFromHex(a.cfg.Secrets.SignerKey)
}

func (a *app) operator() (common.Address, error) {
	if a.cfg.Secrets.OperatorKey == "" {
		s, err := signer.GenerateLocalSigner()
		if err != nil {
			return common.Address{}, err
		}
		return s.Address(), nil
	}
	s, err := signer.NewLocalSignerFromHex(a.cfg.Secrets.OperatorKey)
	if err != nil {
		return common.Address{}, err
	}
	a.log.Info("Using configured operator", zap.Stringer("operator", s.Address()))
	return s.Address(), nil
}
