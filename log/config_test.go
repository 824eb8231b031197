/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "defaults",
			cfgData:     ``,
			expectedCfg: NewDefaultConfig,
		},
		{
			name: "file output with rotation",
			cfgData: `
log:
  level: warn
  format: text
  output: file
  addCaller: true
  file:
    path: peyvandyar.log
    rotation:
      compress: true
      maxSize: 100M
      maxBackups: 42
      maxAgeDays: 7
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelWarn
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.AddCaller = true
				cfg.File.Path = "peyvandyar.log"
				cfg.File.Rotation.Compress = true
				cfg.File.Rotation.MaxSize = 100 * 1024 * 1024
				cfg.File.Rotation.MaxBackups = 42
				cfg.File.Rotation.MaxAgeDays = 7
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedErr string
	}{
		{
			name:        "unknown level",
			cfgData:     "log:\n  level: trace\n",
			expectedErr: `log.level: unknown value "trace", should be one of [error warn info debug]`,
		},
		{
			name:        "file output without path",
			cfgData:     "log:\n  output: file\n",
			expectedErr: "log.file.path: cannot be empty when \"file\" output is used",
		},
		{
			name:        "too small rotation size",
			cfgData:     "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
			expectedErr: "log.file.rotation.maxSize: should be >= 1M",
		},
		{
			name:        "negative max age",
			cfgData:     "log:\n  file:\n    rotation:\n      maxAgeDays: -1\n",
			expectedErr: "log.file.rotation.maxAgeDays: should be >= 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErr)
		})
	}
}
