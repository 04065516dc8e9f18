package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/table"
	"github.com/sells-group/newsmerge-cli/pkg/notion"
)

var (
	exportXLSXPath string
	exportNotion   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export merged company rows",
	Long:  "Writes the merged destination table to an XLSX file and/or a Notion database. Notion export keeps hyperlink provenance as link annotations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if exportXLSXPath == "" && !exportNotion {
			return eris.New("nothing to do: pass --xlsx and/or --notion")
		}

		env, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Store.Companies(ctx)
		if err != nil {
			return err
		}

		if exportXLSXPath != "" {
			mem := table.NewMemory()
			for _, company := range companies {
				cells, err := env.Store.RowCells(ctx, company)
				if err != nil {
					return err
				}
				for column, cell := range cells {
					if err := mem.WriteCell(ctx, company, column, cell); err != nil {
						return err
					}
				}
			}
			if err := table.ExportXLSX(exportXLSXPath, env.Registry, mem); err != nil {
				return err
			}
			fmt.Printf("wrote %d rows to %s\n", len(companies), exportXLSXPath)
		}

		if exportNotion {
			if err := cfg.ValidateNotion(); err != nil {
				return err
			}
			client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
			for _, company := range companies {
				cells, err := env.Store.RowCells(ctx, company)
				if err != nil {
					return err
				}
				if err := notion.ExportRow(ctx, client, cfg.Notion.CompanyDB, company, cells); err != nil {
					return err
				}
				zap.L().Debug("exported row to notion", zap.String("company", company))
			}
			fmt.Printf("exported %d rows to Notion\n", len(companies))
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportXLSXPath, "xlsx", "", "write the table to this XLSX file")
	exportCmd.Flags().BoolVar(&exportNotion, "notion", false, "export rows to the configured Notion database")
	rootCmd.AddCommand(exportCmd)
}
