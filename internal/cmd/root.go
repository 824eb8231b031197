/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

// Package cmd implements the peyvandyar command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version information, set by the main package.
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by the main package with the values injected at build time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

type rootOpts struct {
	configPath string
}

// NewRootCommand creates the root command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOpts{}
	rootCmd := &cobra.Command{
		Use:           "peyvandyar",
		Short:         "Rate-limited, cached and retrying gateway to the product API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to a YAML or JSON config file; values may be overridden by "+EnvVarsPrefix+"_* environment variables")

	rootCmd.AddCommand(newServeCommand(opts), newConfigCommand(opts), newVersionCommand())
	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	return rootCmd.ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "peyvandyar %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
			return err
		},
	}
}
