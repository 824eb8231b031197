/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/config"
	"github.com/mjsoltani/peyvandyar/internal/ratelimit"
)

func TestConfigWithLoader(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg *Config
		expectedErr string
	}{
		{
			name:        "defaults",
			cfgData:     "",
			expectedCfg: NewDefaultConfig(),
		},
		{
			name: "custom values",
			cfgData: `
server:
  address: 127.0.0.1:9090
  timeouts:
    write: 10m
    read: 5s
    readHeader: 2s
    idle: 30s
    shutdown: 20s
  limits:
    maxBodySize: 512K
  log:
    requestStart: true
    addRequestInfo: true
    slowRequestThreshold: 3s
  rateLimit:
    enabled: true
    alg: sliding_window
    count: 10
    period: 1m
    maxKeys: 100
    dryRun: true
`,
			expectedCfg: &Config{
				keyPrefix: cfgDefaultKeyPrefix,
				Address:   "127.0.0.1:9090",
				Timeouts: TimeoutsConfig{
					Write: 10 * time.Minute, Read: 5 * time.Second, ReadHeader: 2 * time.Second,
					Idle: 30 * time.Second, Shutdown: 20 * time.Second,
				},
				Limits: LimitsConfig{MaxBodySizeBytes: 512 * 1024},
				Log:    LogConfig{RequestStart: true, AddRequestInfoToLogger: true, SlowRequestThreshold: 3 * time.Second},
				RateLimit: RateLimitConfig{
					Enabled: true, Alg: ratelimit.AlgSlidingWindow, Count: 10, Period: time.Minute, MaxKeys: 100, DryRun: true,
				},
			},
		},
		{
			name:        "empty address",
			cfgData:     "server:\n  address: \"\"\n",
			expectedErr: "server.address: cannot be empty",
		},
		{
			name:        "negative timeout",
			cfgData:     "server:\n  timeouts:\n    shutdown: -1s\n",
			expectedErr: "server.timeouts.shutdown: cannot be negative",
		},
		{
			name:        "unknown rate limit alg",
			cfgData:     "server:\n  rateLimit:\n    alg: token_bucket\n",
			expectedErr: `server.rateLimit.alg: unknown rate limit alg "token_bucket"`,
		},
		{
			name:        "zero rate limit count",
			cfgData:     "server:\n  rateLimit:\n    count: 0\n",
			expectedErr: "server.rateLimit.count: must be positive",
		},
		{
			name:        "malformed body size",
			cfgData:     "server:\n  limits:\n    maxBodySize: lots\n",
			expectedErr: "server.limits.maxBodySize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			if tt.expectedErr != "" {
				require.ErrorContains(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg, cfg)
		})
	}
}
