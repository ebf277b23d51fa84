package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doxsearch/mcp-server/internal/config"
	"github.com/doxsearch/mcp-server/internal/indexing"
	"github.com/doxsearch/mcp-server/internal/lookup"
)

var (
	flagShards string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:           "doxsearch",
	Short:         "Query and check Doxygen search index shards",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagShards, "shards", "", "shard directory (default <data dir>/shards)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")
}

// shardDirectory resolves --shards, falling back to the configured data directory
func shardDirectory() string {
	if flagShards != "" {
		return flagShards
	}
	return config.Load().ShardDir()
}

func loadShards() (*indexing.ShardSet, error) {
	dir := shardDirectory()
	set, err := indexing.LoadShardDir(dir)
	if err != nil {
		return nil, err
	}
	if len(set.Shards) == 0 {
		return nil, fmt.Errorf("no shards found in %s", dir)
	}
	return set, nil
}

func loadTable() (*lookup.Table, error) {
	set, err := loadShards()
	if err != nil {
		return nil, err
	}
	// One query per process, nothing to cache
	return lookup.Build(set.Shards, lookup.WithCacheSize(0))
}
