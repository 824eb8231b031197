/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/mjsoltani/peyvandyar/config"
	"github.com/mjsoltani/peyvandyar/internal/ratelimit"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress                 = "address"
	cfgKeyServerTimeoutsWrite           = "timeouts.write"
	cfgKeyServerTimeoutsRead            = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle            = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyServerLimitsMaxBodySize       = "limits.maxBodySize"
	cfgKeyServerLogRequestStart         = "log.requestStart"
	cfgKeyServerLogAddRequestInfo       = "log.addRequestInfo"
	cfgKeyServerLogSlowRequestThreshold = "log.slowRequestThreshold"
	cfgKeyServerRateLimitEnabled        = "rateLimit.enabled"
	cfgKeyServerRateLimitAlg            = "rateLimit.alg"
	cfgKeyServerRateLimitCount          = "rateLimit.count"
	cfgKeyServerRateLimitPeriod         = "rateLimit.period"
	cfgKeyServerRateLimitBurst          = "rateLimit.burst"
	cfgKeyServerRateLimitMaxKeys        = "rateLimit.maxKeys"
	cfgKeyServerRateLimitDryRun         = "rateLimit.dryRun"
)

// Default values.
const (
	DefaultAddress              = ":8080"
	DefaultTimeoutsWrite        = 5 * time.Minute // Requests may wait for the upstream budget.
	DefaultTimeoutsRead         = 15 * time.Second
	DefaultTimeoutsReadHeader   = 10 * time.Second
	DefaultTimeoutsIdle         = time.Minute
	DefaultTimeoutsShutdown     = 5 * time.Second
	DefaultMaxBodySize          = 1024 * 1024
	DefaultSlowRequestThreshold = time.Second
	DefaultRateLimitCount       = 100
	DefaultRateLimitPeriod      = time.Second
	DefaultRateLimitMaxKeys     = 10000
)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      time.Duration `mapstructure:"write" yaml:"write"`
	Read       time.Duration `mapstructure:"read" yaml:"read"`
	ReadHeader time.Duration `mapstructure:"readHeader" yaml:"readHeader"`
	Idle       time.Duration `mapstructure:"idle" yaml:"idle"`
	Shutdown   time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// LimitsConfig represents a set of configuration parameters for HTTPServer relating to limits.
type LimitsConfig struct {
	// MaxBodySizeBytes is the maximum size of the request body in bytes. Zero disables the check.
	MaxBodySizeBytes config.BytesCount `mapstructure:"maxBodySize" yaml:"maxBodySize"`
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart           bool          `mapstructure:"requestStart" yaml:"requestStart"`
	AddRequestInfoToLogger bool          `mapstructure:"addRequestInfo" yaml:"addRequestInfo"`
	SlowRequestThreshold   time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold"`
}

// RateLimitConfig represents options of the inbound per-client rate limiting.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Alg     ratelimit.Alg `mapstructure:"alg" yaml:"alg"`
	Count   int           `mapstructure:"count" yaml:"count"`
	Period  time.Duration `mapstructure:"period" yaml:"period"`
	Burst   int           `mapstructure:"burst" yaml:"burst"`
	MaxKeys int           `mapstructure:"maxKeys" yaml:"maxKeys"`
	DryRun  bool          `mapstructure:"dryRun" yaml:"dryRun"`
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		Address:   DefaultAddress,
		Timeouts: TimeoutsConfig{
			Write:      DefaultTimeoutsWrite,
			Read:       DefaultTimeoutsRead,
			ReadHeader: DefaultTimeoutsReadHeader,
			Idle:       DefaultTimeoutsIdle,
			Shutdown:   DefaultTimeoutsShutdown,
		},
		Limits: LimitsConfig{MaxBodySizeBytes: DefaultMaxBodySize},
		Log:    LogConfig{SlowRequestThreshold: DefaultSlowRequestThreshold},
		RateLimit: RateLimitConfig{
			Alg:     ratelimit.AlgLeakyBucket,
			Count:   DefaultRateLimitCount,
			Period:  DefaultRateLimitPeriod,
			MaxKeys: DefaultRateLimitMaxKeys,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, DefaultAddress)

	dp.SetDefault(cfgKeyServerTimeoutsWrite, DefaultTimeoutsWrite.String())
	dp.SetDefault(cfgKeyServerTimeoutsRead, DefaultTimeoutsRead.String())
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, DefaultTimeoutsReadHeader.String())
	dp.SetDefault(cfgKeyServerTimeoutsIdle, DefaultTimeoutsIdle.String())
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, DefaultTimeoutsShutdown.String())

	dp.SetDefault(cfgKeyServerLimitsMaxBodySize, "1M")

	dp.SetDefault(cfgKeyServerLogRequestStart, false)
	dp.SetDefault(cfgKeyServerLogAddRequestInfo, false)
	dp.SetDefault(cfgKeyServerLogSlowRequestThreshold, DefaultSlowRequestThreshold.String())

	dp.SetDefault(cfgKeyServerRateLimitEnabled, false)
	dp.SetDefault(cfgKeyServerRateLimitAlg, string(ratelimit.AlgLeakyBucket))
	dp.SetDefault(cfgKeyServerRateLimitCount, DefaultRateLimitCount)
	dp.SetDefault(cfgKeyServerRateLimitPeriod, DefaultRateLimitPeriod.String())
	dp.SetDefault(cfgKeyServerRateLimitBurst, 0)
	dp.SetDefault(cfgKeyServerRateLimitMaxKeys, DefaultRateLimitMaxKeys)
	dp.SetDefault(cfgKeyServerRateLimitDryRun, false)
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyServerAddress, fmt.Errorf("cannot be empty"))
	}
	if err = c.Timeouts.set(dp); err != nil {
		return err
	}
	if c.Limits.MaxBodySizeBytes, err = dp.GetBytesCount(cfgKeyServerLimitsMaxBodySize); err != nil {
		return err
	}
	if err = c.Log.set(dp); err != nil {
		return err
	}
	return c.RateLimit.set(dp)
}

func (t *TimeoutsConfig) set(dp config.DataProvider) error {
	for _, item := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyServerTimeoutsWrite, &t.Write},
		{cfgKeyServerTimeoutsRead, &t.Read},
		{cfgKeyServerTimeoutsReadHeader, &t.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &t.Idle},
		{cfgKeyServerTimeoutsShutdown, &t.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("cannot be negative"))
		}
		*item.dst = dur
	}
	return nil
}

func (l *LogConfig) set(dp config.DataProvider) (err error) {
	if l.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	if l.AddRequestInfoToLogger, err = dp.GetBool(cfgKeyServerLogAddRequestInfo); err != nil {
		return err
	}
	l.SlowRequestThreshold, err = dp.GetDuration(cfgKeyServerLogSlowRequestThreshold)
	return err
}

func (rl *RateLimitConfig) set(dp config.DataProvider) (err error) {
	if rl.Enabled, err = dp.GetBool(cfgKeyServerRateLimitEnabled); err != nil {
		return err
	}
	algStr, err := dp.GetString(cfgKeyServerRateLimitAlg)
	if err != nil {
		return err
	}
	if rl.Alg, err = ratelimit.ParseAlg(algStr); err != nil {
		return dp.WrapKeyErr(cfgKeyServerRateLimitAlg, err)
	}
	if rl.Count, err = dp.GetInt(cfgKeyServerRateLimitCount); err != nil {
		return err
	}
	if rl.Count <= 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitCount, fmt.Errorf("must be positive"))
	}
	if rl.Period, err = dp.GetDuration(cfgKeyServerRateLimitPeriod); err != nil {
		return err
	}
	if rl.Period <= 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitPeriod, fmt.Errorf("must be positive"))
	}
	if rl.Burst, err = dp.GetInt(cfgKeyServerRateLimitBurst); err != nil {
		return err
	}
	if rl.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitBurst, fmt.Errorf("cannot be negative"))
	}
	if rl.MaxKeys, err = dp.GetInt(cfgKeyServerRateLimitMaxKeys); err != nil {
		return err
	}
	if rl.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitMaxKeys, fmt.Errorf("cannot be negative"))
	}
	rl.DryRun, err = dp.GetBool(cfgKeyServerRateLimitDryRun)
	return err
}
