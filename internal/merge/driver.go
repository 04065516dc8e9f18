package merge

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/newsmerge-cli/internal/model"
	"github.com/sells-group/newsmerge-cli/internal/payload"
)

// Table is the backing destination table. Implementations must serialize
// writes to the same cell; the driver guarantees at most one merge in
// flight per company row.
type Table interface {
	ReadCell(ctx context.Context, company, column string) (model.RichText, error)
	WriteCell(ctx context.Context, company, column string, cell model.RichText) error
}

// Result aggregates the counters for one batch merge.
type Result struct {
	Companies int `json:"companies"`
	Entries   int `json:"entries"`
	Applied   int `json:"applied"`
	Skipped   int `json:"skipped"`
}

// Driver iterates companies × news entries × parsed updates and applies
// the merge policy to each resolved destination cell.
type Driver struct {
	registry *model.ColumnRegistry
	policy   *Policy
}

// NewDriver creates a batch merge driver.
func NewDriver(registry *model.ColumnRegistry, policy *Policy) *Driver {
	return &Driver{registry: registry, policy: policy}
}

// Run merges every company's entries into the table, processing companies
// concurrently up to the given limit. Each company is a single row, so
// per-cell merges never race. A bad entry or update costs only itself:
// losing one fact is acceptable, regressing a cell's content is not.
func (d *Driver) Run(ctx context.Context, table Table, entriesByCompany map[string][]model.NewsEntry, concurrency int) (Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	companies := make([]string, 0, len(entriesByCompany))
	for company, entries := range entriesByCompany {
		if len(entries) > 0 {
			companies = append(companies, company)
		}
	}
	sort.Strings(companies)

	var applied, skipped, entryCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, company := range companies {
		entries := entriesByCompany[company]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, entry := range entries {
				a, s := d.mergeEntry(gctx, table, company, entry)
				applied.Add(int64(a))
				skipped.Add(int64(s))
				entryCount.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	return Result{
		Companies: len(companies),
		Entries:   int(entryCount.Load()),
		Applied:   int(applied.Load()),
		Skipped:   int(skipped.Load()),
	}, err
}

// MergeEntry applies one news entry to one company row and returns the
// number of cells changed.
func (d *Driver) MergeEntry(ctx context.Context, table Table, company string, entry model.NewsEntry) int {
	applied, _ := d.mergeEntry(ctx, table, company, entry)
	return applied
}

func (d *Driver) mergeEntry(ctx context.Context, table Table, company string, entry model.NewsEntry) (applied, skipped int) {
	log := zap.L().With(zap.String("company", company))

	parsed := payload.Parse(entry.FactBlob)
	if len(parsed.Updates) == 0 {
		log.Debug("merge: no parseable updates in fact blob",
			zap.String("kind", string(parsed.Kind)),
		)
		return 0, 0
	}

	for _, update := range parsed.Updates {
		col := d.registry.Resolve(update.Label)
		if col == nil {
			log.Debug("merge: unresolved label dropped", zap.String("label", update.Label))
			skipped++
			continue
		}

		cell, err := table.ReadCell(ctx, company, col.Name)
		if err != nil {
			log.Warn("merge: read cell failed",
				zap.String("column", col.Name),
				zap.Error(err),
			)
			skipped++
			continue
		}

		merged, outcome := d.policy.Merge(col, cell, update.RawValue, entry.PublicationYear, entry.StoryURL)
		if !outcome.Changed {
			skipped++
			continue
		}

		if err := table.WriteCell(ctx, company, col.Name, merged); err != nil {
			log.Warn("merge: write cell failed",
				zap.String("column", col.Name),
				zap.Error(err),
			)
			skipped++
			continue
		}
		applied++
	}
	return applied, skipped
}
