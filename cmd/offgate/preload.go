package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var preloadCmd = &cobra.Command{
	Use:   "preload [URL...]",
	Short: "Eagerly warm URLs into the dynamic partition",
	Long: `Fetch each URL and store the response into the dynamic partition.
Relative URLs are resolved against the configured origin. Individual
failures are reported but do not stop the run.

Example:
  offgate preload --config ./offgate.yaml /img/logo.png /assets/app.css`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreload,
}

func init() {
	rootCmd.AddCommand(preloadCmd)
}

func runPreload(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	gw, err := newGateway(ctx, log)
	if err != nil {
		return err
	}
	defer gw.Close()

	result := gw.PreloadResources(ctx, args)

	for _, u := range result.Stored {
		fmt.Printf("stored %s\n", u)
	}
	for _, u := range result.Failed {
		fmt.Printf("failed %s\n", u)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d resources failed", len(result.Failed), len(args))
	}
	return nil
}
