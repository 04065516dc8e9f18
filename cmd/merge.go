package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

var mergeCompany string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge stored news entries into company rows",
	Long:  "Runs the batch merge: every stored news entry is parsed and folded into its company's cells. Re-running is safe; already-absorbed facts are no-ops.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "merge")
		if err != nil {
			return err
		}
		defer env.Close()

		entriesByCompany, err := env.Store.EntriesByCompany(ctx)
		if err != nil {
			return err
		}
		if mergeCompany != "" {
			entries := entriesByCompany[mergeCompany]
			if len(entries) == 0 {
				return eris.Errorf("no entries for company %q", mergeCompany)
			}
			entriesByCompany = map[string][]model.NewsEntry{mergeCompany: entries}
		}

		run, err := env.Store.CreateRun(ctx)
		if err != nil {
			return err
		}

		result, runErr := env.Driver.Run(ctx, env.Store, entriesByCompany, cfg.Batch.MaxConcurrentCompanies)

		run.Status = model.RunStatusComplete
		if runErr != nil {
			run.Status = model.RunStatusFailed
			run.Error = runErr.Error()
		}
		run.Companies = result.Companies
		run.Entries = result.Entries
		run.Applied = result.Applied
		run.Skipped = result.Skipped
		if err := env.Store.FinishRun(ctx, *run); err != nil {
			zap.L().Warn("record merge run", zap.Error(err))
		}

		if runErr != nil {
			return eris.Wrap(runErr, "merge")
		}

		zap.L().Info("merge complete",
			zap.String("run_id", run.ID),
			zap.Int("companies", result.Companies),
			zap.Int("entries", result.Entries),
			zap.Int("applied", result.Applied),
			zap.Int("skipped", result.Skipped),
		)
		fmt.Printf("merged %d companies, %d entries: %d cells updated, %d updates skipped\n",
			result.Companies, result.Entries, result.Applied, result.Skipped)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeCompany, "company", "", "merge a single company only")
	rootCmd.AddCommand(mergeCmd)
}
