package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

var emitCmd = &cobra.Command{
	Use:   "emit <out-dir>",
	Short: "Regroup all entries and write normalized shards plus searchdata.js",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadShards()
		if err != nil {
			return err
		}

		sections, shards := searchdata.Group(set.Entries())
		if err := searchdata.WriteDir(args[0], sections, shards); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d shards and %s to %s\n", len(shards), searchdata.SectionsFile, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
}
