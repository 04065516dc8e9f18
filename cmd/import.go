package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/newsmerge-cli/internal/fetcher"
	"github.com/sells-group/newsmerge-cli/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import <source>...",
	Short: "Import news-entry dumps into the store",
	Long:  "Loads collector dump files (CSV or XLSX; local paths, http(s):// or ftp:// URLs) and stores their news entries for later merging.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "import")
		if err != nil {
			return err
		}
		defer env.Close()

		f := fetcher.New(
			fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:  cfg.Fetch.UserAgent,
				Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries: cfg.Fetch.MaxRetries,
				RateLimit:  rate.Limit(cfg.Fetch.RateLimit),
			}),
			fetcher.NewFTPFetcher(fetcher.FTPOptions{
				Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			}),
		)

		total := 0
		for _, source := range args {
			entries, err := loadEntries(ctx, f, source)
			if err != nil {
				return eris.Wrapf(err, "import %s", source)
			}
			for _, e := range entries {
				if _, err := env.Store.AddEntry(ctx, e); err != nil {
					return eris.Wrapf(err, "import %s", source)
				}
			}
			zap.L().Info("imported dump",
				zap.String("source", source),
				zap.Int("entries", len(entries)),
			)
			total += len(entries)
		}

		fmt.Printf("imported %d entries from %d source(s)\n", total, len(args))
		return nil
	},
}

// loadEntries fetches one dump source and parses it. Remote XLSX sources
// are spooled to a temp file because the XLSX reader needs random access.
func loadEntries(ctx context.Context, f *fetcher.Fetcher, source string) ([]model.NewsEntry, error) {
	if !fetcher.IsXLSX(source) {
		rc, err := f.Open(ctx, source)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return fetcher.ParseEntriesCSV(ctx, rc)
	}

	if _, err := os.Stat(source); err == nil {
		return fetcher.ParseEntriesXLSX(source)
	}

	rc, err := f.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "newsmerge-dump-*.xlsx")
	if err != nil {
		return nil, eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return nil, eris.Wrap(err, "spool xlsx dump")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "close temp file")
	}
	return fetcher.ParseEntriesXLSX(tmp.Name())
}

func init() {
	rootCmd.AddCommand(importCmd)
}
