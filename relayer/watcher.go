// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/cache"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/metrics"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/relayer/checkpoint"
	"github.com/luxfi/lzgate/utils"
)

const (
	defaultCacheSize            = 1024
	defaultMaxConcurrentMints   = 4
	defaultRetryInitialInterval = 500 * time.Millisecond
	defaultRetryTimeout         = 30 * time.Second
)

var (
	errNoChain       = errors.New("watcher needs a chain")
	errNoMinter      = errors.New("watcher needs a minter")
	errNoPublication = errors.New("watcher needs a publication")
	errClosed        = errors.New("log subscription closed")
)

// Minter mints a soulbound token of a collection on another chain.
// *sbt.OmniSBT implements it.
type Minter interface {
	Mint(ctx context.Context, msg chain.Msg, to common.Address, collectionID *big.Int, chainID uint16) (*big.Int, error)
}

// WatcherConfig configures a CollectWatcher. Operator must be the collect
// module of the minter.
type WatcherConfig struct {
	Name         string
	Chain        *chain.Chain
	Hub          common.Address
	ProfileID    *big.Int
	PubID        *big.Int
	Minter       Minter
	Operator     common.Address
	CollectionID *big.Int
	DstChainID   uint16

	// StartIndex is the first log index handled
	StartIndex           int
	CacheSize            int
	MaxConcurrentMints   int
	RetryInitialInterval time.Duration
	RetryTimeout         time.Duration
}

// Job is a handled collect event
type Job struct {
	ID        uuid.UUID
	LogIndex  int
	Collector common.Address
	TokenID   *big.Int
	Err       error
}

// CollectWatcher mints an OmniSBT for every collector of one publication
type CollectWatcher struct {
	cfg        WatcherConfig
	log        *zap.Logger
	metrics    *metrics.Metrics
	processed  *cache.LRUCache[int, mintOutcome]
	checkpoint *checkpoint.Manager

	mu       sync.Mutex
	inflight map[int]struct{}
	jobs     []Job
}

func NewCollectWatcher(cfg WatcherConfig, log *zap.Logger, m *metrics.Metrics) (*CollectWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case cfg.Chain == nil:
		return nil, errNoChain
	case cfg.Minter == nil:
		return nil, errNoMinter
	case cfg.ProfileID == nil || cfg.PubID == nil:
		return nil, errNoPublication
	case lzgate.IsZeroAddress(cfg.Hub):
		return nil, fmt.Errorf("%w: hub", lzgate.ErrNotZeroAddress)
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("collect-%s-%s", cfg.ProfileID, cfg.PubID)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.MaxConcurrentMints <= 0 {
		cfg.MaxConcurrentMints = defaultMaxConcurrentMints
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaultRetryInitialInterval
	}
	if cfg.RetryTimeout <= 0 {
		cfg.RetryTimeout = defaultRetryTimeout
	}
	processed, err := cache.NewLRUCache[int, mintOutcome](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("watcher", cfg.Name))
	return &CollectWatcher{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		processed:  processed,
		checkpoint: checkpoint.NewManager(log, cfg.Name, cfg.StartIndex),
		inflight:   make(map[int]struct{}),
	}, nil
}

// Checkpoint returns the first log index not yet handled
func (w *CollectWatcher) Checkpoint() int {
	return w.checkpoint.Committed()
}

// Jobs returns the handled collect events in completion order
func (w *CollectWatcher) Jobs() []Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Job, len(w.jobs))
	copy(out, w.jobs)
	return out
}

// Run handles the logs emitted since the checkpoint, then new logs, until
// ctx is done. It waits for in-flight mints before returning.
func (w *CollectWatcher) Run(ctx context.Context) error {
	logs, cancel := w.cfg.Chain.Subscribe(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(w.cfg.MaxConcurrentMints)
	defer func() {
		_ = g.Wait()
	}()

	w.log.Info("Watching collect events",
		zap.Stringer("hub", w.cfg.Hub),
		zap.Stringer("profileID", w.cfg.ProfileID),
		zap.Stringer("pubID", w.cfg.PubID),
		zap.Int("startIndex", w.Checkpoint()),
	)
	// Logs emitted between Subscribe and LogsSince arrive twice
	for _, l := range w.cfg.Chain.LogsSince(w.Checkpoint()) {
		w.dispatch(ctx, g, l)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-logs:
			if !ok {
				return errClosed
			}
			w.dispatch(ctx, g, l)
		}
	}
}

func (w *CollectWatcher) matches(l chain.Log) (hub.Collected, bool) {
	if l.Address != w.cfg.Hub {
		return hub.Collected{}, false
	}
	ev, ok := l.Event.(hub.Collected)
	if !ok {
		return hub.Collected{}, false
	}
	return ev, payload.BigEqual(ev.RootProfileID, w.cfg.ProfileID) && payload.BigEqual(ev.RootPubID, w.cfg.PubID)
}

func (w *CollectWatcher) dispatch(ctx context.Context, g *errgroup.Group, l chain.Log) {
	ev, ok := w.matches(l)
	if !ok {
		w.checkpoint.Stage(l.Index)
		return
	}
	w.mu.Lock()
	_, busy := w.inflight[l.Index]
	if !busy {
		w.inflight[l.Index] = struct{}{}
	}
	w.mu.Unlock()
	if busy {
		w.metrics.WatcherEvent("duplicate")
		return
	}
	g.Go(func() error {
		w.handle(ctx, l.Index, ev)
		return nil
	})
}

func (w *CollectWatcher) handle(ctx context.Context, index int, ev hub.Collected) {
	job := Job{ID: uuid.New(), LogIndex: index, Collector: ev.Collector}
	log := w.log.With(
		zap.Stringer("jobID", job.ID),
		zap.Int("logIndex", index),
		zap.Stringer("collector", ev.Collector),
	)

	// Failed mints are cached too, a redelivered event is never minted twice
	outcome, hit, _ := w.processed.Get(index, func(int) (mintOutcome, error) {
		tokenID, err := w.mint(ctx, log, ev.Collector)
		return mintOutcome{tokenID: tokenID, err: err}, nil
	}, false)
	tokenID, err := outcome.tokenID, outcome.err

	w.mu.Lock()
	delete(w.inflight, index)
	w.mu.Unlock()
	w.checkpoint.Stage(index)

	switch {
	case hit:
		w.metrics.WatcherEvent("duplicate")
		log.Debug("Collect event already handled",
			zap.Stringer("tokenID", tokenID),
			zap.Bool("failed", err != nil),
		)
		return
	case err != nil:
		w.metrics.WatcherEvent("failed")
		log.Error("Failed to mint for collector", zap.Error(err))
	default:
		w.metrics.WatcherEvent("minted")
		log.Info("Minted for collector",
			zap.Stringer("tokenID", tokenID),
			zap.Uint16("dstChainID", w.cfg.DstChainID),
		)
	}
	job.TokenID, job.Err = tokenID, err

	w.mu.Lock()
	w.jobs = append(w.jobs, job)
	w.mu.Unlock()
}

type mintOutcome struct {
	tokenID *big.Int
	err     error
}

// mint retries transient failures. Reverts are permanent.
func (w *CollectWatcher) mint(ctx context.Context, log *zap.Logger, collector common.Address) (*big.Int, error) {
	var tokenID *big.Int
	operation := func() error {
		id, err := w.cfg.Minter.Mint(ctx, chain.From(w.cfg.Operator), collector, w.cfg.CollectionID, w.cfg.DstChainID)
		if err != nil {
			if lzgate.KindOf(err) != lzgate.KindUnknown {
				return backoff.Permanent(err)
			}
			return err
		}
		tokenID = id
		return nil
	}
	if err := utils.WithRetriesTimeout(ctx, log, operation, w.cfg.RetryInitialInterval, w.cfg.RetryTimeout); err != nil {
		return nil, err
	}
	return tokenID, nil
}
