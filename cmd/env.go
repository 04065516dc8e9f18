package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/merge"
	"github.com/sells-group/newsmerge-cli/internal/model"
	"github.com/sells-group/newsmerge-cli/internal/registry"
	"github.com/sells-group/newsmerge-cli/internal/store"
)

// env bundles the long-lived dependencies shared by the subcommands.
type env struct {
	Store    store.Store
	Columns  *registry.ColumnConfig
	Registry *model.ColumnRegistry
	Driver   *merge.Driver
}

// initEnv validates the configuration for the command's mode, opens the
// store, runs migrations, and builds the merge driver from the configured
// column registry.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	cols, err := registry.Load(cfg.Columns.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg := cols.Registry()
	policy := merge.NewPolicy(cols.Placeholders, cols.ProtectMarker)

	return &env{
		Store:    st,
		Columns:  cols,
		Registry: reg,
		Driver:   merge.NewDriver(reg, policy),
	}, nil
}

// Close releases the env's resources.
func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
