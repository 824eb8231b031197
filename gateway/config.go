/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mjsoltani/peyvandyar/config"
)

const cfgDefaultKeyPrefix = "gateway"

// Default values.
const (
	DefaultMaxRequests      = 60
	DefaultWindow           = 60 * time.Second
	DefaultMinDelay         = 200 * time.Millisecond
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheMaxEntries  = 10000
	DefaultRetryMaxAttempts = 3
	DefaultRetryBackoffBase = time.Second
)

const (
	cfgKeyBaseURL              = "baseURL"
	cfgKeyRateLimitMaxRequests = "rateLimit.maxRequests"
	cfgKeyRateLimitWindow      = "rateLimit.window"
	cfgKeyRateLimitMinDelay    = "rateLimit.minDelay"
	cfgKeyQueueMaxLength       = "queue.maxLength"
	cfgKeyCacheTTL             = "cache.ttl"
	cfgKeyCacheMaxEntries      = "cache.maxEntries"
	cfgKeyRetryMaxAttempts     = "retry.maxAttempts"
	cfgKeyRetryBackoffBase     = "retry.backoffBase"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RateLimitConfig is the outbound request budget. It does not change during the process lifetime.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"maxRequests" yaml:"maxRequests"`
	Window      time.Duration `mapstructure:"window" yaml:"window"`
	MinDelay    time.Duration `mapstructure:"minDelay" yaml:"minDelay"`
}

// QueueConfig represents options for the request queue.
type QueueConfig struct {
	// MaxLength bounds the number of waiting requests. Zero means unbounded.
	MaxLength int `mapstructure:"maxLength" yaml:"maxLength"`
}

// CacheConfig represents options for the product details cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxEntries int           `mapstructure:"maxEntries" yaml:"maxEntries"`
}

// RetryConfig represents options for retrying mutations.
type RetryConfig struct {
	// MaxAttempts is used when the caller passes a non-positive attempts count.
	MaxAttempts int `mapstructure:"maxAttempts" yaml:"maxAttempts"`

	// BackoffBase is multiplied by 2^attempt to get the delay after a failed attempt.
	BackoffBase time.Duration `mapstructure:"backoffBase" yaml:"backoffBase"`
}

// Config represents a set of configuration parameters for the gateway.
type Config struct {
	BaseURL   string          `mapstructure:"baseURL" yaml:"baseURL"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit"`
	Queue     QueueConfig     `mapstructure:"queue" yaml:"queue"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values and the given upstream base URL.
func NewDefaultConfig(baseURL string) *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		BaseURL:   baseURL,
		RateLimit: RateLimitConfig{MaxRequests: DefaultMaxRequests, Window: DefaultWindow, MinDelay: DefaultMinDelay},
		Cache:     CacheConfig{TTL: DefaultCacheTTL, MaxEntries: DefaultCacheMaxEntries},
		Retry:     RetryConfig{MaxAttempts: DefaultRetryMaxAttempts, BackoffBase: DefaultRetryBackoffBase},
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
	dp.SetDefault(cfgKeyRateLimitMaxRequests, DefaultMaxRequests)
	dp.SetDefault(cfgKeyRateLimitWindow, DefaultWindow.String())
	dp.SetDefault(cfgKeyRateLimitMinDelay, DefaultMinDelay.String())
	dp.SetDefault(cfgKeyQueueMaxLength, 0)
	dp.SetDefault(cfgKeyCacheTTL, DefaultCacheTTL.String())
	dp.SetDefault(cfgKeyCacheMaxEntries, DefaultCacheMaxEntries)
	dp.SetDefault(cfgKeyRetryMaxAttempts, DefaultRetryMaxAttempts)
	dp.SetDefault(cfgKeyRetryBackoffBase, DefaultRetryBackoffBase.String())
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	if err := c.setBaseURL(dp); err != nil {
		return err
	}
	if err := c.setRateLimit(dp); err != nil {
		return err
	}

	var err error
	if c.Queue.MaxLength, err = getNonNegativeInt(dp, cfgKeyQueueMaxLength); err != nil {
		return err
	}

	if c.Cache.TTL, err = dp.GetDuration(cfgKeyCacheTTL); err != nil {
		return err
	}
	if c.Cache.TTL <= 0 {
		return dp.WrapKeyErr(cfgKeyCacheTTL, fmt.Errorf("must be positive"))
	}
	if c.Cache.MaxEntries, err = getPositiveInt(dp, cfgKeyCacheMaxEntries); err != nil {
		return err
	}

	if c.Retry.MaxAttempts, err = getPositiveInt(dp, cfgKeyRetryMaxAttempts); err != nil {
		return err
	}
	if c.Retry.BackoffBase, err = dp.GetDuration(cfgKeyRetryBackoffBase); err != nil {
		return err
	}
	if c.Retry.BackoffBase < 0 {
		return dp.WrapKeyErr(cfgKeyRetryBackoffBase, fmt.Errorf("cannot be negative"))
	}
	return nil
}

func (c *Config) setBaseURL(dp config.DataProvider) (err error) {
	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	if c.BaseURL == "" {
		return dp.WrapKeyErr(cfgKeyBaseURL, fmt.Errorf("cannot be empty"))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return dp.WrapKeyErr(cfgKeyBaseURL, fmt.Errorf("scheme must be http or https, got %q", u.Scheme))
	}
	return nil
}

func (c *Config) setRateLimit(dp config.DataProvider) (err error) {
	if c.RateLimit.MaxRequests, err = getPositiveInt(dp, cfgKeyRateLimitMaxRequests); err != nil {
		return err
	}
	if c.RateLimit.Window, err = dp.GetDuration(cfgKeyRateLimitWindow); err != nil {
		return err
	}
	if c.RateLimit.Window <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitWindow, fmt.Errorf("must be positive"))
	}
	if c.RateLimit.MinDelay, err = dp.GetDuration(cfgKeyRateLimitMinDelay); err != nil {
		return err
	}
	if c.RateLimit.MinDelay < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitMinDelay, fmt.Errorf("cannot be negative"))
	}
	return nil
}

func getPositiveInt(dp config.DataProvider, key string) (int, error) {
	v, err := dp.GetInt(key)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, dp.WrapKeyErr(key, fmt.Errorf("must be positive"))
	}
	return v, nil
}

func getNonNegativeInt(dp config.DataProvider, key string) (int, error) {
	v, err := dp.GetInt(key)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, dp.WrapKeyErr(key, fmt.Errorf("cannot be negative"))
	}
	return v, nil
}
