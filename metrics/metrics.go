// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics holds the prometheus counters shared by the endpoints,
// applications and relayer of a deployment. A nil *Metrics records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	relayCount            *prometheus.CounterVec
	relayRejectedCount    *prometheus.CounterVec
	packetSentCount       *prometheus.CounterVec
	packetDeliveredCount  *prometheus.CounterVec
	payloadStoredCount    *prometheus.CounterVec
	storedPayloads        *prometheus.GaugeVec
	messageFailedCount    *prometheus.CounterVec
	untrustedDroppedCount *prometheus.CounterVec
	retryCount            *prometheus.CounterVec
	sbtMintCount          *prometheus.CounterVec
	watcherEventCount     *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		relayCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_count",
				Help: "Number of intents relayed by proxies",
			},
			[]string{"chain_id", "action"},
		),
		relayRejectedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_rejected_count",
				Help: "Number of relay calls rejected before sending",
			},
			[]string{"chain_id", "action", "failure_reason"},
		),
		packetSentCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packet_sent_count",
				Help: "Number of packets accepted by an endpoint",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		packetDeliveredCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packet_delivered_count",
				Help: "Number of packets delivered to their receiver",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		payloadStoredCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_stored_count",
				Help: "Number of deliveries that blocked their channel",
			},
			[]string{"source_chain_id", "destination_chain_id", "failure_reason"},
		),
		storedPayloads: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stored_payloads",
				Help: "Number of channels currently blocked by a stored payload",
			},
			[]string{"destination_chain_id"},
		),
		messageFailedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "message_failed_count",
				Help: "Number of messages that failed without blocking their channel",
			},
			[]string{"chain_id", "failure_reason"},
		),
		untrustedDroppedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "untrusted_dropped_count",
				Help: "Number of messages dropped because the sender was not a trusted remote",
			},
			[]string{"chain_id", "source_chain_id"},
		),
		retryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retry_count",
				Help: "Number of retries of failed messages and stored payloads",
			},
			[]string{"chain_id", "level", "outcome"},
		),
		sbtMintCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbt_mint_count",
				Help: "Number of soulbound tokens minted on their destination chain",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		watcherEventCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_event_count",
				Help: "Number of collect events handled by the relayer",
			},
			[]string{"outcome"},
		),
	}

	registerer.MustRegister(m.relayCount)
	registerer.MustRegister(m.relayRejectedCount)
	registerer.MustRegister(m.packetSentCount)
	registerer.MustRegister(m.packetDeliveredCount)
	registerer.MustRegister(m.payloadStoredCount)
	registerer.MustRegister(m.storedPayloads)
	registerer.MustRegister(m.messageFailedCount)
	registerer.MustRegister(m.untrustedDroppedCount)
	registerer.MustRegister(m.retryCount)
	registerer.MustRegister(m.sbtMintCount)
	registerer.MustRegister(m.watcherEventCount)

	return &m
}

func chainLabel(id uint16) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (m *Metrics) Relayed(chainID uint16, action string) {
	if m == nil {
		return
	}
	m.relayCount.WithLabelValues(chainLabel(chainID), action).Inc()
}

func (m *Metrics) RelayRejected(chainID uint16, action, reason string) {
	if m == nil {
		return
	}
	m.relayRejectedCount.WithLabelValues(chainLabel(chainID), action, reason).Inc()
}

func (m *Metrics) PacketSent(srcChainID, dstChainID uint16) {
	if m == nil {
		return
	}
	m.packetSentCount.WithLabelValues(chainLabel(srcChainID), chainLabel(dstChainID)).Inc()
}

func (m *Metrics) PacketDelivered(srcChainID, dstChainID uint16) {
	if m == nil {
		return
	}
	m.packetDeliveredCount.WithLabelValues(chainLabel(srcChainID), chainLabel(dstChainID)).Inc()
}

func (m *Metrics) PayloadStored(srcChainID, dstChainID uint16, reason string) {
	if m == nil {
		return
	}
	m.payloadStoredCount.WithLabelValues(chainLabel(srcChainID), chainLabel(dstChainID), reason).Inc()
	m.storedPayloads.WithLabelValues(chainLabel(dstChainID)).Inc()
}

func (m *Metrics) PayloadCleared(dstChainID uint16) {
	if m == nil {
		return
	}
	m.storedPayloads.WithLabelValues(chainLabel(dstChainID)).Dec()
}

func (m *Metrics) MessageFailed(chainID uint16, reason string) {
	if m == nil {
		return
	}
	m.messageFailedCount.WithLabelValues(chainLabel(chainID), reason).Inc()
}

func (m *Metrics) UntrustedDropped(chainID, srcChainID uint16) {
	if m == nil {
		return
	}
	m.untrustedDroppedCount.WithLabelValues(chainLabel(chainID), chainLabel(srcChainID)).Inc()
}

// Retried records a retry; level is "message" or "payload"
func (m *Metrics) Retried(chainID uint16, level string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.retryCount.WithLabelValues(chainLabel(chainID), level, outcome).Inc()
}

func (m *Metrics) SBTMinted(srcChainID, dstChainID uint16) {
	if m == nil {
		return
	}
	m.sbtMintCount.WithLabelValues(chainLabel(srcChainID), chainLabel(dstChainID)).Inc()
}

// WatcherEvent records a collect event outcome: minted, duplicate or failed
func (m *Metrics) WatcherEvent(outcome string) {
	if m == nil {
		return
	}
	m.watcherEventCount.WithLabelValues(outcome).Inc()
}
