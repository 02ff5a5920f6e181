// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"

	// Environment variable keys
	ConfigFileEnvKey = "LZGATE_CONFIG_FILE"
	EnvPrefix        = "LZGATE"

	// Top-level configuration keys
	LogLevelKey             = "log-level"
	NetworksKey             = "networks"
	SourceNetworkKey        = "source-network"
	RemoteNetworkKey        = "remote-network"
	RemoteGasKey            = "remote-gas"
	QueuedDeliveryKey       = "queued-delivery"
	PumpIntervalKey         = "pump-interval"
	WatcherCacheSizeKey     = "watcher-cache-size"
	RetryInitialIntervalKey = "retry-initial-interval"
	RetryTimeoutKey         = "retry-timeout"
)
