package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doxsearch/mcp-server/internal/searchdata"
)

var flagSchema bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check shards for structural problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadShards()
		if err != nil {
			return err
		}

		var problems []searchdata.Problem
		for _, shard := range set.Shards {
			problems = append(problems, searchdata.Validate(shard, set.Sections)...)
			if flagSchema {
				schemaProblems, err := searchdata.ValidateJSON(shard)
				if err != nil {
					return err
				}
				problems = append(problems, schemaProblems...)
			}
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(problems); err != nil {
				return err
			}
		} else {
			for _, p := range problems {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "%d shards checked, %d findings\n", len(set.Shards), len(problems))
		}

		if searchdata.HasErrors(problems) {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&flagSchema, "schema", false, "also validate against the JSON schema")
	rootCmd.AddCommand(validateCmd)
}
