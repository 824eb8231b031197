/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mjsoltani/peyvandyar/config"
	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/httpserver"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/profserver"
)

// EnvVarsPrefix is the prefix of environment variables overriding configuration values
// (e.g. PEYVANDYAR_GATEWAY_BASEURL).
const EnvVarsPrefix = "PEYVANDYAR"

// AppConfig is the whole service configuration.
type AppConfig struct {
	Log       *log.Config        `yaml:"log"`
	Server    *httpserver.Config `yaml:"server"`
	Upstream  *httpclient.Config `yaml:"upstream"`
	Gateway   *gateway.Config    `yaml:"gateway"`
	Profiling *profserver.Config `yaml:"profiling"`
}

// NewAppConfig creates an AppConfig with empty sections ready to be loaded.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:       log.NewConfig(),
		Server:    httpserver.NewConfig(),
		Upstream:  httpclient.NewConfig(),
		Gateway:   gateway.NewConfig(),
		Profiling: profserver.NewConfig(),
	}
}

// LoadAppConfig loads the configuration from the file (if path is not empty) and environment variables.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(EnvVarsPrefix)
	var err error
	if path == "" {
		err = loader.Load(cfg.Log, cfg.Server, cfg.Upstream, cfg.Gateway, cfg.Profiling)
	} else {
		err = loader.LoadFromFile(path, dataTypeByExt(path), cfg.Log, cfg.Server, cfg.Upstream, cfg.Gateway, cfg.Profiling)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func dataTypeByExt(path string) config.DataType {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.DataTypeJSON
	}
	return config.DataTypeYAML
}
