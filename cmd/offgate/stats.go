package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-partition entry counts",
	Long: `Display the entry count of every cache partition currently present,
including stale partitions left behind by previous versions.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	counts, err := gw.CacheStats(ctx)
	if err != nil {
		return fmt.Errorf("collecting stats: %w", err)
	}

	if len(counts) == 0 {
		fmt.Println("No partitions found.")
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		fmt.Printf("%-40s %d\n", name, counts[name])
		total += counts[name]
	}
	fmt.Printf("%-40s %d\n", "total", total)

	return nil
}
