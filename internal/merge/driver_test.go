package merge

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// memTable is a minimal in-memory Table for driver tests.
type memTable struct {
	mu   sync.Mutex
	rows map[string]map[string]model.RichText
}

func newMemTable() *memTable {
	return &memTable{rows: make(map[string]map[string]model.RichText)}
}

func (m *memTable) ReadCell(_ context.Context, company, column string) (model.RichText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[company][column].Clone(), nil
}

func (m *memTable) WriteCell(_ context.Context, company, column string, cell model.RichText) error {
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

func (m *memTable) companies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for c := range m.rows {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (m *memTable) row(company string) map[string]model.RichText {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.RichText, len(m.rows[company]))
	for col, cell := range m.rows[company] {
		out[col] = cell.Clone()
	}
	return out
}

func testRegistry() *model.ColumnRegistry {
	return model.NewColumnRegistry(
		[]model.ColumnSpec{
			{Name: "Equipment", Kind: model.KindFreeText},
			{Name: "Number of employees", Kind: model.KindFreeText},
			{Name: "CNC 5-axis", Kind: model.KindBooleanFlag},
		},
		map[string]string{"Machinery": "Equipment"},
	)
}

func testDriver() *Driver {
	return NewDriver(testRegistry(), testPolicy())
}

func TestDriver_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := newMemTable()
	require.NoError(t, mem.WriteCell(ctx, "Acme Machining", "Equipment", model.RichText{Text: "refer to site"}))

	entries := map[string][]model.NewsEntry{
		"Acme Machining": {
			{
				Company:         "Acme Machining",
				FactBlob:        `{"Equipment": "5-axis CNC", "CNC 5-axis": "Yes"}`,
				PublicationYear: "2023",
				StoryURL:        "https://x/1",
			},
			{
				Company:         "Acme Machining",
				FactBlob:        `Machinery ; "wire EDM"`,
				PublicationYear: "2024",
				StoryURL:        "https://x/2",
			},
		},
	}

	res, err := testDriver().Run(ctx, mem, entries, 2)
	require.NoError(t, err)
	assert.Equal(t, Result{Companies: 1, Entries: 2, Applied: 3, Skipped: 0}, res)

	equip, err := mem.ReadCell(ctx, "Acme Machining", "Equipment")
	require.NoError(t, err)
	assert.Equal(t, "5-axis CNC (News: 2023) ; wire EDM (News: 2024)", equip.Text)
	require.Len(t, equip.Spans, 2)
	assert.Equal(t, "https://x/1", equip.Spans[0].URL)
	assert.Equal(t, "(News: 2023)", equip.Text[equip.Spans[0].Start:equip.Spans[0].End])
	assert.Equal(t, "https://x/2", equip.Spans[1].URL)
	assert.Equal(t, "(News: 2024)", equip.Text[equip.Spans[1].Start:equip.Spans[1].End])

	flag, err := mem.ReadCell(ctx, "Acme Machining", "CNC 5-axis")
	require.NoError(t, err)
	assert.Equal(t, "Yes", flag.Text)
	require.Len(t, flag.Spans, 1)
	assert.Equal(t, "https://x/1", flag.Spans[0].URL)
}

func TestDriver_RerunIsNoOp(t *testing.T) {
	ctx := context.Background()
	mem := newMemTable()
	entries := map[string][]model.NewsEntry{
		"Acme": {{
			Company:         "Acme",
			FactBlob:        `{"Equipment": "5-axis CNC"}`,
			PublicationYear: "2023",
			StoryURL:        "https://x/1",
		}},
	}
	d := testDriver()

	first, err := d.Run(ctx, mem, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Applied)

	second, err := d.Run(ctx, mem, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Applied)
	assert.Equal(t, 1, second.Skipped)

	cell, err := mem.ReadCell(ctx, "Acme", "Equipment")
	require.NoError(t, err)
	assert.Equal(t, "5-axis CNC (News: 2023)", cell.Text)
}

func TestDriver_UnresolvedLabelSkipped(t *testing.T) {
	ctx := context.Background()
	mem := newMemTable()
	entries := map[string][]model.NewsEntry{
		"Acme": {{
			Company:         "Acme",
			FactBlob:        `{"CEO favorite color": "blue", "Equipment": "lathe"}`,
			PublicationYear: "2023",
		}},
	}

	res, err := testDriver().Run(ctx, mem, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	row := mem.row("Acme")
	assert.NotContains(t, row, "CEO favorite color")
}

func TestDriver_UnparseableBlobCostsOnlyItself(t *testing.T) {
	ctx := context.Background()
	mem := newMemTable()
	entries := map[string][]model.NewsEntry{
		"Acme": {
			{Company: "Acme", FactBlob: "the quarterly call went well"},
			{Company: "Acme", FactBlob: `{"Equipment": "lathe"}`, PublicationYear: "2023"},
		},
	}

	res, err := testDriver().Run(ctx, mem, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 1, res.Applied)
}

// failingTable errors on every write to one column.
type failingTable struct {
	*memTable
	column string
}

func (f *failingTable) WriteCell(ctx context.Context, company, column string, cell model.RichText) error {
	if column == f.column {
		return errors.New("write rejected")
	}
	return f.memTable.WriteCell(ctx, company, column, cell)
}

func TestDriver_WriteFailureIsolatedToOneCell(t *testing.T) {
	ctx := context.Background()
	ft := &failingTable{memTable: newMemTable(), column: "Equipment"}
	entries := map[string][]model.NewsEntry{
		"Acme": {{
			Company:         "Acme",
			FactBlob:        `{"Equipment": "lathe", "Number of employees": "40"}`,
			PublicationYear: "2023",
		}},
	}

	res, err := testDriver().Run(ctx, ft, entries, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	cell, rerr := ft.ReadCell(ctx, "Acme", "Number of employees")
	require.NoError(t, rerr)
	assert.Equal(t, "40 (News: 2023)", cell.Text)
}

func TestDriver_ConcurrentCompanies(t *testing.T) {
	ctx := context.Background()
	mem := newMemTable()
	entries := make(map[string][]model.NewsEntry)
	for _, company := range []string{"Acme", "Brightside", "Cobalt", "Dynatool", "Edgewise"} {
		entries[company] = []model.NewsEntry{{
			Company:         company,
			FactBlob:        `{"Equipment": "lathe"}`,
			PublicationYear: "2023",
			StoryURL:        "https://x/" + company,
		}}
	}

	res, err := testDriver().Run(ctx, mem, entries, 3)
	require.NoError(t, err)
	assert.Equal(t, Result{Companies: 5, Entries: 5, Applied: 5, Skipped: 0}, res)
	assert.Len(t, mem.companies(), 5)
}
