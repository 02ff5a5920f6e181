// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildFlagSet returns the flags shared by every lzgate command
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("lzgate", pflag.ContinueOnError)
	AddFlags(fs)
	return fs
}

// AddFlags registers the configuration flags on fs
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "Path to a JSON config file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level")
	fs.String(SourceNetworkKey, defaultSourceNetwork, "Network hosting the platform and the gated modules")
	fs.String(RemoteNetworkKey, defaultRemoteNetwork, "Network hosting the relay proxy and the gating tokens")
	fs.Uint64(RemoteGasKey, 0, "Destination gas put in adapter params, 0 for the default")
	fs.Bool(QueuedDeliveryKey, false, "Queue packets until the relayer delivers them")
}

// NewConfig builds and validates the configuration held by v
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid lzgate configuration: %w", err)
	}
	return cfg, nil
}

// BuildViper binds fs and the LZGATE_ environment to a new viper instance,
// then merges the JSON file named by --config-file if there is one.
// remote-gas is read from LZGATE_REMOTE_GAS.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}
	return v, nil
}

// SetDefaultConfigValues sets the lowest precedence value of every key
func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(NetworksKey, DefaultNetworks())
	v.SetDefault(SourceNetworkKey, defaultSourceNetwork)
	v.SetDefault(RemoteNetworkKey, defaultRemoteNetwork)
	v.SetDefault(PumpIntervalKey, defaultPumpInterval)
	v.SetDefault(WatcherCacheSizeKey, defaultWatcherCacheSize)
	v.SetDefault(RetryInitialIntervalKey, defaultRetryInitialInterval)
	v.SetDefault(RetryTimeoutKey, defaultRetryTimeout)
}

// BuildConfig decodes v into a Config. A flag beats the environment, which
// beats the config file, which beats the defaults. Secrets never come from
// flags or files, only from the environment.
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.LoadSecrets(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
