package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/cache"
)

func init() {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show result cache statistics",
		Long: `Show hit/miss statistics for the query result cache.

Statistics are per-process; use this at the end of an interactive query
session, or poll the cache from a long-running deployment.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			resultCache := initCache()
			defer resultCache.Close()
			printStats(resultCache.Stats())
			return nil
		},
	}

	rootCmd.AddCommand(statsCmd)
}

func printStats(stats cache.Stats) {
	fmt.Println(headerStyle.Render("Result cache"))
	fmt.Printf("  entries:   %d\n", stats.Size)
	fmt.Printf("  bytes:     %d\n", stats.SizeBytes)
	fmt.Printf("  hits:      %d\n", stats.HitCount)
	fmt.Printf("  misses:    %d\n", stats.MissCount)
	fmt.Printf("  evictions: %d\n", stats.Evictions)
	fmt.Printf("  hit rate:  %.1f%%\n", stats.HitRate*100)
}
