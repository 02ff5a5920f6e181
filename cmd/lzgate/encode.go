// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/luxfi/lzgate/payload"
)

var (
	errInvalidToken     = errors.New("token must be a hex address")
	errInvalidThreshold = errors.New("threshold must be a non-negative integer")
)

func (a *app) networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the configured networks and their LayerZero chain ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, n := range a.cfg.Networks {
				role := ""
				switch n.Name {
				case a.cfg.SourceNetwork:
					role = "source"
				case a.cfg.RemoteNetwork:
					role = "remote"
				}
				fmt.Fprintf(out, "%-18s %6d %s\n", n.Name, n.ChainID, role)
			}
			return nil
		},
	}
}

func (a *app) adapterParamsCmd() *cobra.Command {
	var gas uint64
	cmd := &cobra.Command{
		Use:   "adapter-params",
		Short: "Encode v1 adapter params for a destination gas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gas == 0 {
				gas = a.cfg.Gas()
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(payload.NewAdapterParams(gas).Bytes()))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&gas, "gas", 0, "Destination gas, 0 for the configured remote gas")
	return cmd
}

func (a *app) encodeInitCmd() *cobra.Command {
	var (
		tokenHex     string
		threshold    string
		network      string
		collect      bool
		followerOnly bool
	)
	cmd := &cobra.Command{
		Use:   "encode-init",
		Short: "Encode the init data of a gated module or of the soulbound collect module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if network == "" {
				network = a.cfg.RemoteNetwork
			}
			chainID, err := a.cfg.ChainID(network)
			if err != nil {
				return err
			}
			if collect {
				init := &payload.CollectInit{FollowerOnly: followerOnly, ChainID: chainID}
				fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(init.Bytes()))
				return nil
			}

			if !common.IsHexAddress(tokenHex) {
				return fmt.Errorf("%w: %q", errInvalidToken, tokenHex)
			}
			t, ok := new(big.Int).SetString(threshold, 10)
			if !ok || t.Sign() < 0 {
				return fmt.Errorf("%w: %q", errInvalidThreshold, threshold)
			}
			init, err := payload.NewGatedInit(common.HexToAddress(tokenHex), t, chainID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(init.Bytes()))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&tokenHex, "token", "", "Gating token contract on the remote network")
	flags.StringVar(&threshold, "threshold", "1", "Minimum token balance")
	flags.StringVar(&network, "network", "", "Network holding the token, or minting the soulbound token; defaults to the remote network")
	flags.BoolVar(&collect, "collect", false, "Encode soulbound collect module init data instead")
	flags.BoolVar(&followerOnly, "follower-only", false, "Only followers may collect, with --collect")
	return cmd
}
