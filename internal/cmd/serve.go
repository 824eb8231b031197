/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/service"
)

func newServeCommand(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API in front of the product API",
		Long: `Start the HTTP API in front of the product API.

SIGINT or SIGTERM stops the service gracefully: the HTTP server drains requests in progress,
then the gateway completes its current upstream call and rejects the queued ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadAppConfig(opts.configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *AppConfig) error {
	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	app, err := NewApp(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to create service", log.Error(err))
		return err
	}
	logger.Info("starting peyvandyar",
		log.String("version", versionInfo.Version),
		log.String("upstream", cfg.Gateway.BaseURL),
		log.Int("max_requests", cfg.Gateway.RateLimit.MaxRequests),
		log.Duration("window", cfg.Gateway.RateLimit.Window),
	)
	if err = service.New(logger, app).StartContext(ctx); err != nil {
		return fmt.Errorf("run service: %w", err)
	}
	return nil
}

func newConfigCommand(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadAppConfig(opts.configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			return enc.Close()
		},
	}
}
