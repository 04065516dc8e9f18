// Package store persists companies, collected news entries, destination
// cells, and merge-run bookkeeping.
package store

import (
	"context"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// Store defines the persistence interface for the merge pipeline.
// ReadCell and WriteCell satisfy the merge driver's Table contract, so a
// Store can be handed to the batch driver directly. Reading an absent cell
// returns an empty RichText, not an error.
type Store interface {
	// Entries
	AddEntry(ctx context.Context, entry model.NewsEntry) (*model.NewsEntry, error)
	ListEntries(ctx context.Context, company string) ([]model.NewsEntry, error)
	EntriesByCompany(ctx context.Context) (map[string][]model.NewsEntry, error)

	// Cells
	ReadCell(ctx context.Context, company, column string) (model.RichText, error)
	WriteCell(ctx context.Context, company, column string, cell model.RichText) error
	Companies(ctx context.Context) ([]string, error)
	RowCells(ctx context.Context, company string) (map[string]model.RichText, error)

	// Runs
	CreateRun(ctx context.Context) (*model.MergeRun, error)
	FinishRun(ctx context.Context, run model.MergeRun) error
	ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
