// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate/relayer/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by the commands once flags are parsed
type app struct {
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "lzgate",
		Short: "Token gated cross-chain relays for a social graph",
		Long: `lzgate relays follows, comments, mirrors and collects from a chain where
a user holds a gating token to the chain hosting the social platform, and
mints soulbound tokens to collectors on another chain.

This CLI encodes module parameters, estimates relay fees and runs the whole
protocol on simulated chains.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		a.networksCmd(),
		a.adapterParamsCmd(),
		a.encodeInitCmd(),
		a.estimateFeeCmd(),
		a.simulateCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	v, err := config.BuildViper(cmd.Root().PersistentFlags())
	if err != nil {
		return fmt.Errorf("couldn't configure flags: %w", err)
	}
	a.cfg, err = config.NewConfig(v)
	if err != nil {
		return fmt.Errorf("couldn't build config: %w", err)
	}

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(a.cfg.ZapLevel())
	a.log, err = logCfg.Build()
	if err != nil {
		return fmt.Errorf("couldn't build logger: %w", err)
	}
	a.log.Debug("Configuration loaded",
		zap.String("sourceNetwork", a.cfg.SourceNetwork),
		zap.String("remoteNetwork", a.cfg.RemoteNetwork),
		zap.Bool("queuedDelivery", a.cfg.QueuedDelivery),
	)
	return nil
}
