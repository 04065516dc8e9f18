// Package table provides destination-table implementations: an in-memory
// table and XLSX import/export. Rows are keyed by company name; cells are
// rich text with hyperlink spans.
package table

import (
	"context"
	"sort"
	"sync"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// Memory is an in-memory destination table. Safe for concurrent use; the
// per-cell mutex gives the "one merge in flight per cell" guarantee the
// merge driver relies on.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]map[string]model.RichText
}

// NewMemory creates an empty in-memory table.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]map[string]model.RichText)}
}

// ReadCell returns the cell for (company, column), or an empty cell.
func (m *Memory) ReadCell(_ context.Context, company, column string) (model.RichText, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row, ok := m.rows[company]; ok {
		return row[column].Clone(), nil
	}
	return model.RichText{}, nil
}

// WriteCell stores the cell for (company, column), creating the row if needed.
func (m *Memory) WriteCell(_ context.Context, company, column string, cell model.RichText) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[company]
	if !ok {
		row = make(map[string]model.RichText)
		m.rows[company] = row
	}
	row[column] = cell.Clone()
	return nil
}

// Companies returns the row keys in sorted order.
func (m *Memory) Companies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	companies := make([]string, 0, len(m.rows))
	for c := range m.rows {
		companies = append(companies, c)
	}
	sort.Strings(companies)
	return companies
}

// Row returns a copy of one company's cells keyed by column name.
func (m *Memory) Row(company string) map[string]model.RichText {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row := make(map[string]model.RichText, len(m.rows[company]))
	for col, cell := range m.rows[company] {
		row[col] = cell.Clone()
	}
	return row
}
