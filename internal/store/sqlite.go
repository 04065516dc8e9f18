package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS news_entries (
	id               TEXT PRIMARY KEY,
	company          TEXT NOT NULL,
	fact_blob        TEXT NOT NULL,
	publication_year TEXT NOT NULL DEFAULT '',
	story_url        TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cells (
	company     TEXT NOT NULL,
	column_name TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	spans       TEXT NOT NULL DEFAULT '[]',
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
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
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_news_entries_company ON news_entries(company);
CREATE INDEX IF NOT EXISTS idx_merge_runs_status ON merge_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddEntry(ctx context.Context, entry model.NewsEntry) (*model.NewsEntry, error) {
	if entry.Company == "" {
		return nil, eris.New("sqlite: entry missing company")
	}
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO news_entries (id, company, fact_blob, publication_year, story_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Company, entry.FactBlob, entry.PublicationYear, entry.StoryURL, entry.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert entry")
	}
	return &entry, nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, company string) ([]model.NewsEntry, error) {
	query := `SELECT id, company, fact_blob, publication_year, story_url, created_at
	          FROM news_entries ORDER BY created_at, id`
	args := []any{}
	if company != "" {
		query = `SELECT id, company, fact_blob, publication_year, story_url, created_at
		         FROM news_entries WHERE company = ? ORDER BY created_at, id`
		args = append(args, company)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close()

	var entries []model.NewsEntry
	for rows.Next() {
		var e model.NewsEntry
		if err := rows.Scan(&e.ID, &e.Company, &e.FactBlob, &e.PublicationYear, &e.StoryURL, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate entries")
}

func (s *SQLiteStore) EntriesByCompany(ctx context.Context) (map[string][]model.NewsEntry, error) {
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

func (s *SQLiteStore) ReadCell(ctx context.Context, company, column string) (model.RichText, error) {
	var cell model.RichText
	var spansJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT text, spans FROM cells WHERE company = ? AND column_name = ?`,
		company, column,
	).Scan(&cell.Text, &spansJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RichText{}, nil
	}
	if err != nil {
		return model.RichText{}, eris.Wrapf(err, "sqlite: read cell %s/%s", company, column)
	}
	if err := json.Unmarshal([]byte(spansJSON), &cell.Spans); err != nil {
		return model.RichText{}, eris.Wrapf(err, "sqlite: decode spans %s/%s", company, column)
	}
	return cell, nil
}

func (s *SQLiteStore) WriteCell(ctx context.Context, company, column string, cell model.RichText) error {
	spansJSON, err := json.Marshal(cell.Spans)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal spans")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cells (company, column_name, text, spans, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (company, column_name) DO UPDATE SET
		   text = excluded.text, spans = excluded.spans, updated_at = excluded.updated_at`,
		company, column, cell.Text, string(spansJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: write cell %s/%s", company, column)
}

func (s *SQLiteStore) Companies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company FROM cells
		 UNION SELECT company FROM news_entries
		 ORDER BY company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func (s *SQLiteStore) RowCells(ctx context.Context, company string) (map[string]model.RichText, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name, text, spans FROM cells WHERE company = ?`,
		company,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: row cells %s", company)
	}
	defer rows.Close()

	cells := make(map[string]model.RichText)
	for rows.Next() {
		var column, spansJSON string
		var cell model.RichText
		if err := rows.Scan(&column, &cell.Text, &spansJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		if err := json.Unmarshal([]byte(spansJSON), &cell.Spans); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode spans %s/%s", company, column)
		}
		cells[column] = cell
	}
	return cells, eris.Wrap(rows.Err(), "sqlite: iterate cells")
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.MergeRun, error) {
	run := &model.MergeRun{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO merge_runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run model.MergeRun) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE merge_runs SET status = ?, companies = ?, entries = ?, applied = ?, skipped = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Companies, run.Entries, run.Applied, run.Skipped, run.Error, time.Now().UTC(), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.MergeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, companies, entries, applied, skipped, error, created_at, updated_at
		 FROM merge_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.MergeRun
	for rows.Next() {
		var r model.MergeRun
		var status string
		if err := rows.Scan(&r.ID, &status, &r.Companies, &r.Entries, &r.Applied, &r.Skipped, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s not found: %s", entity, id)
	}
	return nil
}
