// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultPumpInterval = 100 * time.Millisecond

// Deliverer delivers queued packets. *endpoint.Network and
// *endpoint.Endpoint implement it.
type Deliverer interface {
	Flush(ctx context.Context) (int, error)
}

// Pump delivers the packets queued on a network at a fixed interval
type Pump struct {
	network  Deliverer
	interval time.Duration
	log      *zap.Logger
}

func NewPump(network Deliverer, interval time.Duration, log *zap.Logger) *Pump {
	if interval <= 0 {
		interval = defaultPumpInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pump{network: network, interval: interval, log: log}
}

// Run flushes the network until ctx is done. Delivery errors are logged and
// do not stop the pump.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

func (p *Pump) flush(ctx context.Context) {
	delivered, err := p.network.Flush(ctx)
	if err != nil && ctx.Err() == nil {
		p.log.Warn("Failed to deliver queued packets", zap.Int("delivered", delivered), zap.Error(err))
		return
	}
	if delivered > 0 {
		p.log.Debug("Delivered queued packets", zap.Int("delivered", delivered))
	}
}
