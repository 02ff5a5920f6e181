// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the configuration of the lzgate tools from flags, a
// JSON config file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/lzgate/payload"
)

const (
	defaultLogLevel             = "info"
	defaultSourceNetwork        = "mumbai"
	defaultRemoteNetwork        = "goerli"
	defaultPumpInterval         = 100 * time.Millisecond
	defaultWatcherCacheSize     = 1024
	defaultRetryInitialInterval = 500 * time.Millisecond
	defaultRetryTimeout         = 30 * time.Second
)

var (
	errNoNetworks            = errors.New("no networks configured")
	errInvalidNetwork        = errors.New("invalid network")
	errDuplicateNetwork      = errors.New("duplicate network")
	errUnknownNetwork        = errors.New("unknown network")
	errInvalidLogLevel       = errors.New("invalid log level")
	errInvalidPumpInterval   = errors.New("pump interval must be positive")
	errInvalidCacheSize      = errors.New("watcher cache size must be positive")
	errInvalidRetryIntervals = errors.New("retry timeout must not be shorter than the initial interval")
)

// Network is a LayerZero chain of the deployment table
type Network struct {
	Name    string `mapstructure:"name" json:"name"`
	ChainID uint16 `mapstructure:"chain-id" json:"chain-id"`
}

// DefaultNetworks returns the LayerZero testnet table
func DefaultNetworks() []Network {
	return []Network{
		{Name: "mumbai", ChainID: 10109},
		{Name: "goerli", ChainID: 10121},
		{Name: "optimismTestnet", ChainID: 10132},
		{Name: "fantom_testnet", ChainID: 10012},
		{Name: "bsc_testnet", ChainID: 10002},
	}
}

// Secrets are only read from the environment
type Secrets struct {
	// SignerKey is the hex private key signing intents in simulations. A
	// key is generated when empty.
	SignerKey string `env:"LZGATE_SIGNER_KEY"`
	// OperatorKey is the hex private key of the collect relayer operator
	OperatorKey string `env:"LZGATE_OPERATOR_KEY"`
}

// Config is the lzgate configuration
type Config struct {
	LogLevel             string        `mapstructure:"log-level" json:"log-level"`
	Networks             []Network     `mapstructure:"networks" json:"networks"`
	SourceNetwork        string        `mapstructure:"source-network" json:"source-network"`
	RemoteNetwork        string        `mapstructure:"remote-network" json:"remote-network"`
	RemoteGas            uint64        `mapstructure:"remote-gas" json:"remote-gas"`
	QueuedDelivery       bool          `mapstructure:"queued-delivery" json:"queued-delivery"`
	PumpInterval         time.Duration `mapstructure:"pump-interval" json:"pump-interval"`
	WatcherCacheSize     int           `mapstructure:"watcher-cache-size" json:"watcher-cache-size"`
	RetryInitialInterval time.Duration `mapstructure:"retry-initial-interval" json:"retry-initial-interval"`
	RetryTimeout         time.Duration `mapstructure:"retry-timeout" json:"retry-timeout"`

	Secrets Secrets `mapstructure:"-" json:"-"`
}

// LoadSecrets reads the secrets from the environment
func (c *Config) LoadSecrets() error {
	if err := env.Parse(&c.Secrets); err != nil {
		return fmt.Errorf("failed to parse secrets: %w", err)
	}
	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.LogLevel)
	}
	if len(c.Networks) == 0 {
		return errNoNetworks
	}
	names := make(map[string]struct{}, len(c.Networks))
	ids := make(map[uint16]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		if n.Name == "" || n.ChainID == 0 {
			return fmt.Errorf("%w: %+v", errInvalidNetwork, n)
		}
		if _, ok := names[n.Name]; ok {
			return fmt.Errorf("%w: name %s", errDuplicateNetwork, n.Name)
		}
		if _, ok := ids[n.ChainID]; ok {
			return fmt.Errorf("%w: chain id %d", errDuplicateNetwork, n.ChainID)
		}
		names[n.Name] = struct{}{}
		ids[n.ChainID] = struct{}{}
	}
	for _, name := range []string{c.SourceNetwork, c.RemoteNetwork} {
		if _, ok := c.Network(name); !ok {
			return fmt.Errorf("%w: %q", errUnknownNetwork, name)
		}
	}
	if c.PumpInterval <= 0 {
		return errInvalidPumpInterval
	}
	if c.WatcherCacheSize <= 0 {
		return errInvalidCacheSize
	}
	if c.RetryInitialInterval <= 0 || c.RetryTimeout < c.RetryInitialInterval {
		return errInvalidRetryIntervals
	}
	return nil
}

// Network returns the network named name
func (c *Config) Network(name string) (Network, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return Network{}, false
}

// ChainID resolves a network name to its LayerZero chain id
func (c *Config) ChainID(name string) (uint16, error) {
	n, ok := c.Network(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownNetwork, name)
	}
	return n.ChainID, nil
}

// Gas returns the remote gas estimate put in adapter params
func (c *Config) Gas() uint64 {
	if c.RemoteGas == 0 {
		return payload.DefaultGas
	}
	return c.RemoteGas
}

// ZapLevel returns the configured log level
func (c *Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
