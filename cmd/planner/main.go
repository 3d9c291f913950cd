// Command planner partitions a spreadsheet of points into territories and
// days, then sequences each (territory, day) route.
package main

import (
	"fmt"
	"os"
	"territory-route-service/internal/config"
	"territory-route-service/internal/platform/obs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set via -ldflags at build time.
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "planner",
		Short:         "Territory and daily route planner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (yaml, json or toml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")

	cmd.AddCommand(
		newPlanCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// loadConfig resolves configuration for cmd and installs the global logger.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := obs.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	obs.SetLogger(logger)

	return cfg, logger, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the planner version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
