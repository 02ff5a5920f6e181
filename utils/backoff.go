// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// WithRetriesTimeout runs op with exponential backoff from initial until op
// succeeds, wraps its error with backoff.Permanent, ctx is done or maxElapsed
// has passed. The last error of op is returned.
func WithRetriesTimeout(
	ctx context.Context,
	log *zap.Logger,
	op backoff.Operation,
	initial time.Duration,
	maxElapsed time.Duration,
) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxElapsedTime(maxElapsed),
	), ctx)

	var attempt int
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		attempt++
		log.Warn("Attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
