/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/config"
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
upstream:
  timeout: 5s
  userAgent: my-agent
  headers:
    X-Shop-Id: 42
  logger:
    mode: failed
    slowRequestThreshold: 250ms
  metrics:
    enabled: false
`,
			expectedCfg: &Config{
				keyPrefix: cfgDefaultKeyPrefix,
				Timeout:   5 * time.Second,
				UserAgent: "my-agent",
				Headers:   map[string]string{"x-shop-id": "42"},
				Logger: LoggerConfig{
					Enabled:              true,
					Mode:                 LoggingModeFailed,
					SlowRequestThreshold: 250 * time.Millisecond,
				},
				Metrics: MetricsConfig{Enabled: false},
			},
		},
		{
			name:        "negative timeout",
			cfgData:     "upstream:\n  timeout: -1s\n",
			expectedErr: "upstream.timeout: cannot be negative",
		},
		{
			name:        "unknown logging mode",
			cfgData:     "upstream:\n  logger:\n    mode: verbose\n",
			expectedErr: `upstream.logger.mode: invalid mode "verbose"`,
		},
		{
			name:        "malformed timeout",
			cfgData:     "upstream:\n  timeout: soon\n",
			expectedErr: "upstream.timeout",
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
