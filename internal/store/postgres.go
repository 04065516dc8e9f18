package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS news_entries (
	id               TEXT PRIMARY KEY,
	company          TEXT NOT NULL,
	fact_blob        TEXT NOT NULL,
	publication_year TEXT NOT NULL DEFAULT '',
	story_url        TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cells (
	company     TEXT NOT NULL,
	column_name TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	spans       JSONB NOT NULL DEFAULT '[]',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (company, column_name)
);

CREATE TABLE IF NOT EXISTS merge_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	companies  INTEGER NOT NULL DEFAULT 0,
	entries    INTEGER NOT NULL DEFAULT 0,
	applied    INTEGER NOT NULL DEFAULT 0,
	skipped    INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_news_entries_company ON news_entries(company);
CREATE INDEX IF NOT EXISTS idx_merge_runs_status ON merge_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AddEntry(ctx context.Context, entry model.NewsEntry) (*model.NewsEntry, error) {
	if entry.Company == "" {
		return nil, eris.New("postgres: entry missing company")
	}
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO news_entries (id, company, fact_blob, publication_year, story_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Company, entry.FactBlob, entry.PublicationYear, entry.StoryURL, entry.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert entry")
	}
	return &entry, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, company string) ([]model.NewsEntry, error) {
	query := `SELECT id, company, fact_blob, publication_year, story_url, created_at
	          FROM news_entries ORDER BY created_at, id`
	args := []any{}
	if company != "" {
		query = `SELECT id, company, fact_blob, publication_year, story_url, created_at
		         FROM news_entries WHERE company = $1 ORDER BY created_at, id`
		args = append(args, company)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	var entries []model.NewsEntry
	for rows.Next() {
		var e model.NewsEntry
		if err := rows.Scan(&e.ID, &e.Company, &e.FactBlob, &e.PublicationYear, &e.StoryURL, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate entries")
}

func (s *PostgresStore) EntriesByCompany(ctx context.Context) (map[string][]model.NewsEntry, error) {
	entries, err := s.ListEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	byCompany := make(map[string][]model.NewsEntry)
	for _, e := range entries {
		byCompany[e.Company] = append(byCompany[e.Company], e)
	}
	return byCompany, nil
}

func (s *PostgresStore) ReadCell(ctx context.Context, company, column string) (model.RichText, error) {
	var cell model.RichText
	var spansJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT text, spans FROM cells WHERE company = $1 AND column_name = $2`,
		company, column,
	).Scan(&cell.Text, &spansJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RichText{}, nil
	}
	if err != nil {
		return model.RichText{}, eris.Wrapf(err, "postgres: read cell %s/%s", company, column)
	}
	if err := json.Unmarshal(spansJSON, &cell.Spans); err != nil {
		return model.RichText{}, eris.Wrapf(err, "postgres: decode spans %s/%s", company, column)
	}
	return cell, nil
}

func (s *PostgresStore) WriteCell(ctx context.Context, company, column string, cell model.RichText) error {
	spansJSON, err := json.Marshal(cell.Spans)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal spans")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO cells (company, column_name, text, spans, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (company, column_name) DO UPDATE SET
		   text = excluded.text, spans = excluded.spans, updated_at = excluded.updated_at`,
		company, column, cell.Text, spansJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: write cell %s/%s", company, column)
}

func (s *PostgresStore) Companies(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company FROM cells
		 UNION SELECT company FROM news_entries
		 ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: iterate companies")
}

func (s *PostgresStore) RowCells(ctx context.Context, company string) (map[string]model.RichText, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, text, spans FROM cells WHERE company = $1`,
		company,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: row cells %s", company)
	}
	defer rows.Close()

	cells := make(map[string]model.RichText)
	for rows.Next() {
		var column string
		var spansJSON []byte
		var cell model.RichText
		if err := rows.Scan(&column, &cell.Text, &spansJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		if err := json.Unmarshal(spansJSON, &cell.Spans); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode spans %s/%s", company, column)
		}
		cells[column] = cell
	}
	return cells, eris.Wrap(rows.Err(), "postgres: iterate cells")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.MergeRun, error) {
	run := &model.MergeRun{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO merge_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run model.MergeRun) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE merge_runs SET status = $1, companies = $2, entries = $3, applied = $4, skipped = $5, error = $6, updated_at = $7
		 WHERE id = $8`,
		string(run.Status), run.Companies, run.Entries, run.Applied, run.Skipped, run.Error, time.Now().UTC(), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, companies, entries, applied, skipped, error, created_at, updated_at
		 FROM merge_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var r model.MergeRun
		var status string
		if err := rows.Scan(&r.ID, &status, &r.Companies, &r.Entries, &r.Applied, &r.Skipped, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
