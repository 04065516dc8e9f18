package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for merge requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /webhook/merge", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Company string          `json:"company"`
				Entry   model.NewsEntry `json:"entry"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if req.Company == "" {
				http.Error(w, `{"error":"company is required"}`, http.StatusBadRequest)
				return
			}

			entries := []model.NewsEntry{req.Entry}
			if req.Entry.FactBlob == "" {
				// No inline entry: merge everything stored for the company.
				stored, err := env.Store.ListEntries(r.Context(), req.Company)
				if err != nil {
					zap.L().Error("webhook: list entries", zap.Error(err))
					http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
					return
				}
				entries = stored
			}

			applied := 0
			for _, entry := range entries {
				applied += env.Driver.MergeEntry(r.Context(), env.Store, req.Company, entry)
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{
				"company": req.Company,
				"entries": len(entries),
				"applied": applied,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Close()
		}()

		zap.L().Info("webhook server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override configured server port")
	rootCmd.AddCommand(serveCmd)
}
