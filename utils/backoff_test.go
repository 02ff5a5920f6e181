// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnfunded = errors.New("operator unfunded")

// flakyMint fails until it has been attempted failures times
type flakyMint struct {
	attempts  int
	failures  int
	permanent bool
}

func (f *flakyMint) run() error {
	f.attempts++
	if f.attempts > f.failures {
		return nil
	}
	if f.permanent {
		return backoff.Permanent(errUnfunded)
	}
	return errUnfunded
}

func TestWithRetriesTimeout(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		permanent   bool
		canceled    bool
		interval    time.Duration
		timeout     time.Duration
		expectedErr error
		attempts    func(require *require.Assertions, attempts int)
	}{
		{
			name:     "succeeds after transient failures",
			failures: 2,
			interval: time.Millisecond,
			timeout:  5 * time.Second,
			attempts: func(require *require.Assertions, attempts int) {
				require.Equal(3, attempts)
			},
		},
		{
			name:        "timeout elapses",
			failures:    1 << 20,
			interval:    10 * time.Millisecond,
			timeout:     50 * time.Millisecond,
			expectedErr: errUnfunded,
			attempts: func(require *require.Assertions, attempts int) {
				require.Greater(attempts, 1)
			},
		},
		{
			name:        "permanent failure stops",
			failures:    1,
			permanent:   true,
			interval:    time.Millisecond,
			timeout:     5 * time.Second,
			expectedErr: errUnfunded,
			attempts: func(require *require.Assertions, attempts int) {
				require.Equal(1, attempts)
			},
		},
		{
			name:        "context canceled",
			failures:    1 << 20,
			canceled:    true,
			interval:    time.Millisecond,
			timeout:     5 * time.Second,
			expectedErr: context.Canceled,
			attempts: func(require *require.Assertions, attempts int) {
				require.LessOrEqual(attempts, 1)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.canceled {
				cancel()
			}
			mint := &flakyMint{failures: tt.failures, permanent: tt.permanent}
			err := WithRetriesTimeout(ctx, zap.NewNop(), mint.run, tt.interval, tt.timeout)
			if tt.expectedErr == nil {
				require.NoError(err)
			} else {
				require.Error(err)
				if !tt.canceled {
					require.ErrorIs(err, tt.expectedErr)
				}
			}
			tt.attempts(require, mint.attempts)
		})
	}
}
