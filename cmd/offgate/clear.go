package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache partition",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
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

	cleared, err := gw.ClearCaches(ctx)
	if err != nil {
		return fmt.Errorf("clearing caches: %w", err)
	}

	if len(cleared) == 0 {
		fmt.Println("No partitions to clear.")
		return nil
	}
	for _, name := range cleared {
		fmt.Printf("deleted %s\n", name)
	}
	return nil
}
