// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer holds the off-chain processes of a deployment: the
// watchers minting OmniSBTs for collectors and the pump delivering queued
// packets.
package relayer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Relayer runs a pump and a set of collect watchers
type Relayer struct {
	log      *zap.Logger
	pump     *Pump
	watchers []*CollectWatcher
}

// New returns a relayer. pump may be nil when delivery is synchronous.
func New(log *zap.Logger, pump *Pump, watchers ...*CollectWatcher) *Relayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relayer{log: log, pump: pump, watchers: watchers}
}

// Run runs every process until ctx is done or one of them fails
func (r *Relayer) Run(ctx context.Context) error {
	// errgroup will cancel the context when the first goroutine returns an error
	errGroup, ctx := errgroup.WithContext(ctx)
	if r.pump != nil {
		errGroup.Go(func() error {
			return r.pump.Run(ctx)
		})
	}
	for _, w := range r.watchers {
		errGroup.Go(func() error {
			return w.Run(ctx)
		})
	}
	r.log.Info("Relayer started", zap.Int("watchers", len(r.watchers)), zap.Bool("pump", r.pump != nil))
	err := errGroup.Wait()
	if err != nil {
		r.log.Error("Relayer exiting", zap.Error(err))
	} else {
		r.log.Info("Relayer exiting")
	}
	return err
}
