/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/mjsoltani/peyvandyar/config"
)

const cfgDefaultKeyPrefix = "upstream"

// Default values.
const (
	DefaultTimeout              = 30 * time.Second
	DefaultUserAgent            = "peyvandyar"
	DefaultSlowRequestThreshold = time.Second
)

const (
	cfgKeyTimeout                    = "timeout"
	cfgKeyUserAgent                  = "userAgent"
	cfgKeyHeaders                    = "headers"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled             = "metrics.enabled"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// LoggerConfig represents configuration options for HTTP client logs.
type LoggerConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold"`
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Config represents options for the upstream HTTP client.
type Config struct {
	// Timeout bounds a single HTTP call. There is no other deadline for the gateway operations.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UserAgent is set in outgoing requests that have no User-Agent header.
	UserAgent string `mapstructure:"userAgent" yaml:"userAgent"`

	// Headers are static headers added to every outgoing request.
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`

	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Logger: LoggerConfig{
			Enabled:              true,
			Mode:                 LoggingModeAll,
			SlowRequestThreshold: DefaultSlowRequestThreshold,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	dp.SetDefault(cfgKeyUserAgent, DefaultUserAgent)
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerMode, string(LoggingModeAll))
	dp.SetDefault(cfgKeyLoggerSlowRequestThreshold, DefaultSlowRequestThreshold.String())
	dp.SetDefault(cfgKeyMetricsEnabled, true)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("cannot be negative"))
	}
	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	c.Headers = nil
	if dp.IsSet(cfgKeyHeaders) {
		if err = dp.UnmarshalKey(cfgKeyHeaders, &c.Headers, func(dc *mapstructure.DecoderConfig) {
			dc.WeaklyTypedInput = true
		}); err != nil {
			return err
		}
	}

	if err = c.setLoggerConfig(dp); err != nil {
		return err
	}
	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setLoggerConfig(dp config.DataProvider) (err error) {
	if c.Logger.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	var mode string
	if mode, err = dp.GetString(cfgKeyLoggerMode); err != nil {
		return err
	}
	if c.Logger.Mode = LoggingMode(mode); !c.Logger.Mode.IsValid() {
		return dp.WrapKeyErr(cfgKeyLoggerMode, fmt.Errorf("invalid mode %q, choose one of: [none, all, failed]", mode))
	}
	if c.Logger.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold); err != nil {
		return err
	}
	if c.Logger.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLoggerSlowRequestThreshold, fmt.Errorf("cannot be negative"))
	}
	return nil
}
