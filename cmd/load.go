package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/table"
)

var loadCmd = &cobra.Command{
	Use:   "load <sheet.xlsx>",
	Short: "Load an existing destination sheet into the store",
	Long:  "Reads the managed columns of a destination XLSX sheet into the store so merges extend the existing cell contents. Spans are recovered from (News: <url>) annotations in the text.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "load")
		if err != nil {
			return err
		}
		defer env.Close()

		mem, err := table.ImportXLSX(ctx, args[0], env.Registry)
		if err != nil {
			return err
		}

		cells := 0
		for _, company := range mem.Companies() {
			for column, cell := range mem.Row(company) {
				if cell.Text == "" {
					continue
				}
				if err := env.Store.WriteCell(ctx, company, column, cell); err != nil {
					return err
				}
				cells++
			}
		}

		zap.L().Info("sheet loaded",
			zap.String("path", args[0]),
			zap.Int("companies", len(mem.Companies())),
			zap.Int("cells", cells),
		)
		fmt.Printf("loaded %d companies (%d cells) from %s\n", len(mem.Companies()), cells, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
