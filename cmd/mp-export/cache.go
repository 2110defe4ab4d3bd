// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mp-export/internal/cache"
	"github.com/pdiddy/mp-export/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the response cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached responses and recent export runs",
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response (run history is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Clear(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached responses from %s\n", n, store.Path())
		return nil
	},
}

func init() {
	cacheListCmd.Flags().Int("runs", 10, "number of recent runs to show (0 for all)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("runs")
	ctx := context.Background()

	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries(ctx)
	if err != nil {
		return err
	}
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("Cache: %s\n\n", store.Path())
	if len(entries) == 0 {
		fmt.Println("No cached responses.")
	} else {
		fmt.Printf("%-12s  %-19s  %8s  %s\n", "Key", "Fetched", "Records", "Criteria")
		fmt.Println(strings.Repeat("-", 78))
		for _, e := range entries {
			fmt.Printf("%-12s  %-19s  %8d  %s\n",
				e.Key[:12], e.FetchedAt.Local().Format(time.DateTime), e.Records, truncate(e.Criteria, 40))
		}
	}

	fmt.Println()
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	fmt.Printf("%-36s  %-12s  %-19s  %7s  %s\n", "Run", "Profile", "Started", "Rows", "Output")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Printf("%-36s  %-12s  %-19s  %7d  %s\n",
			r.ID, r.Profile, r.StartedAt.Local().Format(time.DateTime), r.Written, r.Output)
	}
	return nil
}

func openCache() (*cache.Store, error) {
	dir := viper.GetString("cache_dir")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("no cache at %s", dir)
	}
	return cache.Open(types.CacheConfig{Dir: dir})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
