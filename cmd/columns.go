package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/newsmerge-cli/internal/registry"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show the managed column configuration",
	Long:  "Validates and prints the configured destination columns, synonyms, and the placeholder/protection sentinels.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cols, err := registry.Load(cfg.Columns.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tKIND")
		for _, c := range cols.Columns {
			fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Kind)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(cols.Synonyms) > 0 {
			fmt.Println("\nSynonyms:")
			labels := make([]string, 0, len(cols.Synonyms))
			for label := range cols.Synonyms {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				fmt.Printf("  %q -> %q\n", label, cols.Synonyms[label])
			}
		}

		fmt.Printf("\nPlaceholders: %v\nProtection marker: %q\n", cols.Placeholders, cols.ProtectMarker)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
