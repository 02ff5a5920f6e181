// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/lzgate/payload"
)

func buildConfig(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := BuildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := BuildViper(fs)
	if err != nil {
		return Config{}, err
	}
	return NewConfig(v)
}

func TestDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := buildConfig(t)
	require.NoError(err)
	require.Equal("info", cfg.LogLevel)
	require.Equal(zapcore.InfoLevel, cfg.ZapLevel())
	require.Equal(DefaultNetworks(), cfg.Networks)
	require.Equal("mumbai", cfg.SourceNetwork)
	require.Equal("goerli", cfg.RemoteNetwork)
	require.Equal(payload.DefaultGas, cfg.Gas())
	require.Equal(defaultPumpInterval, cfg.PumpInterval)
	require.Equal(defaultWatcherCacheSize, cfg.WatcherCacheSize)
	require.False(cfg.QueuedDelivery)

	for name, id := range map[string]uint16{
		"mumbai":          10109,
		"goerli":          10121,
		"optimismTestnet": 10132,
		"fantom_testnet":  10012,
		"bsc_testnet":     10002,
	} {
		got, err := cfg.ChainID(name)
		require.NoError(err)
		require.Equal(id, got, name)
	}
	_, err = cfg.ChainID("mainnet")
	require.ErrorIs(err, errUnknownNetwork)
}

func TestPrecedence(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "lzgate.json")
	require.NoError(os.WriteFile(path, []byte(`{
		"log-level": "debug",
		"remote-network": "optimismTestnet",
		"remote-gas": 350000,
		"pump-interval": "1s",
		"watcher-cache-size": 16
	}`), 0o600))

	t.Setenv("LZGATE_REMOTE_GAS", "400000")
	t.Setenv("LZGATE_SIGNER_KEY", "0xabc")

	cfg, err := buildConfig(t, "--config-file", path, "--log-level", "warn")
	require.NoError(err)
	require.Equal("warn", cfg.LogLevel)
	require.Equal("optimismTestnet", cfg.RemoteNetwork)
	require.Equal(uint64(400_000), cfg.Gas())
	require.Equal(time.Second, cfg.PumpInterval)
	require.Equal(16, cfg.WatcherCacheSize)
	require.Equal("0xabc", cfg.Secrets.SignerKey)
	require.Empty(cfg.Secrets.OperatorKey)
}

func TestConfigFileNetworks(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "lzgate.json")
	require.NoError(os.WriteFile(path, []byte(`{
		"networks": [
			{"name": "hardhat", "chain-id": 31337},
			{"name": "localhost", "chain-id": 31338}
		],
		"source-network": "hardhat",
		"remote-network": "localhost"
	}`), 0o600))

	cfg, err := buildConfig(t, "--config-file", path)
	require.NoError(err)
	require.Len(cfg.Networks, 2)
	id, err := cfg.ChainID("localhost")
	require.NoError(err)
	require.Equal(uint16(31338), id)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := buildConfig(t, "--config-file", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogLevel:             "info",
			Networks:             DefaultNetworks(),
			SourceNetwork:        "mumbai",
			RemoteNetwork:        "goerli",
			PumpInterval:         time.Millisecond,
			WatcherCacheSize:     1,
			RetryInitialInterval: time.Millisecond,
			RetryTimeout:         time.Second,
		}
	}
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:        "bad log level",
			modify:      func(c *Config) { c.LogLevel = "loud" },
			expectedErr: errInvalidLogLevel,
		},
		{
			name:        "no networks",
			modify:      func(c *Config) { c.Networks = nil },
			expectedErr: errNoNetworks,
		},
		{
			name:        "zero chain id",
			modify:      func(c *Config) { c.Networks = append(c.Networks, Network{Name: "zero"}) },
			expectedErr: errInvalidNetwork,
		},
		{
			name:        "duplicate name",
			modify:      func(c *Config) { c.Networks = append(c.Networks, Network{Name: "mumbai", ChainID: 1}) },
			expectedErr: errDuplicateNetwork,
		},
		{
			name:        "duplicate chain id",
			modify:      func(c *Config) { c.Networks = append(c.Networks, Network{Name: "other", ChainID: 10109}) },
			expectedErr: errDuplicateNetwork,
		},
		{
			name:        "unknown remote",
			modify:      func(c *Config) { c.RemoteNetwork = "rinkeby" },
			expectedErr: errUnknownNetwork,
		},
		{
			name:        "zero pump interval",
			modify:      func(c *Config) { c.PumpInterval = 0 },
			expectedErr: errInvalidPumpInterval,
		},
		{
			name:        "zero cache",
			modify:      func(c *Config) { c.WatcherCacheSize = 0 },
			expectedErr: errInvalidCacheSize,
		},
		{
			name:        "timeout shorter than interval",
			modify:      func(c *Config) { c.RetryTimeout = 0 },
			expectedErr: errInvalidRetryIntervals,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
