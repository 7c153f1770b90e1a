package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mentesana/offgate"
)

var (
	// Global flags.
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "offgate",
	Short: "Offline cache gateway for the mentesana app",
	Long: `Offgate intercepts every request the mentesana app issues and serves it
from named, versioned cache partitions using per-category strategies
(cache-first, network-first, stale-while-revalidate,
cache-first-with-validation).

Examples:
  # Run the gateway in front of the app origin
  offgate serve --config ./offgate.yaml

  # Show per-partition entry counts
  offgate stats --config ./offgate.yaml

  # Warm specific URLs into the dynamic partition
  offgate preload --config ./offgate.yaml /img/logo.png /assets/app.css`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./offgate.yaml", "path to the gateway configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger builds the CLI logger, honoring --verbose.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	return cfg.Build()
}

// newGateway builds a gateway from the configured file.
func newGateway(ctx context.Context, log *zap.Logger, extra ...offgate.Option) (*offgate.Gateway, error) {
	fileOpt, err := offgate.WithConfigFile(ctx, configPath)
	if err != nil {
		return nil, err
	}

	opts := append([]offgate.Option{fileOpt, offgate.WithLogger(log)}, extra...)
	gw, err := offgate.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gateway: %w", err)
	}
	return gw, nil
}
