package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doxsearch/mcp-server/internal/lookup"
)

var (
	flagMode  string
	flagLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query <term>",
	Short: "Look up a symbol by exact key, prefix or substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := lookup.ParseMode(flagMode)
		if err != nil {
			return err
		}

		table, err := loadTable()
		if err != nil {
			return err
		}

		results, err := table.Search(cmd.Context(), args[0], mode, flagLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Fprintf(out, "No matches for %q\n", args[0])
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s (%s, %s)\n", r.Display, r.Key, r.Match)
			for _, t := range r.Targets {
				fmt.Fprintf(out, "  %s  %s\n", t.URL, t.Scope)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&flagMode, "mode", "auto", "match mode: auto, exact, prefix or substring")
	queryCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of keys (0 for no limit)")
	rootCmd.AddCommand(queryCmd)
}
