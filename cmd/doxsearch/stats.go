package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry and target counts per category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		stats := table.Stats()

		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Fprintf(out, "Shards:  %d\n", stats.Shards)
		fmt.Fprintf(out, "Keys:    %d\n", stats.Keys)
		fmt.Fprintf(out, "Targets: %d\n", stats.Targets)

		categories := make([]string, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(out, "  %-12s %d entries\n", c, stats.ByCategory[c])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
