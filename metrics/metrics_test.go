// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	require := require.New(t)

	m := NewMetrics(prometheus.NewRegistry())

	m.Relayed(123, "follow")
	m.Relayed(123, "follow")
	require.Equal(2.0, testutil.ToFloat64(m.relayCount.WithLabelValues("123", "follow")))

	m.PayloadStored(10109, 10121, "InvalidEndpointCaller")
	m.PayloadStored(10109, 10121, "InvalidEndpointCaller")
	m.PayloadCleared(10121)
	require.Equal(1.0, testutil.ToFloat64(m.storedPayloads.WithLabelValues("10121")))
	require.Equal(2.0, testutil.ToFloat64(m.payloadStoredCount.WithLabelValues("10109", "10121", "InvalidEndpointCaller")))

	m.Retried(123, "message", nil)
	m.Retried(123, "message", errors.New("boom"))
	require.Equal(1.0, testutil.ToFloat64(m.retryCount.WithLabelValues("123", "message", "success")))
	require.Equal(1.0, testutil.ToFloat64(m.retryCount.WithLabelValues("123", "message", "failure")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Relayed(1, "follow")
		m.MessageFailed(1, "InvalidRemoteInput")
		m.WatcherEvent("minted")
	})
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	require.Panics(t, func() { NewMetrics(registry) })
}
