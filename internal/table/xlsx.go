package table

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/newsmerge-cli/internal/merge"
	"github.com/sells-group/newsmerge-cli/internal/model"
)

// companyHeader is the sheet column holding the row key.
const companyHeader = "Company Name"

// ImportXLSX loads a destination sheet into an in-memory table. Only
// columns managed by the registry are read; analyst "Notes:" columns and
// anything else stay on the sheet untouched. Hyperlink spans cannot be
// read back from plain XLSX text, so spans are recovered from the
// self-describing "(News: <url>)" tokens embedded in the cell text.
func ImportXLSX(ctx context.Context, path string, registry *model.ColumnRegistry) (*Memory, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("table: xlsx %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return NewMemory(), nil
	}

	header := rowStrings(sheet.Rows[0])
	companyIdx := -1
	managed := make(map[int]string)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == companyHeader {
			companyIdx = i
			continue
		}
		if registry.ByName(name) != nil {
			managed[i] = name
		}
	}
	if companyIdx < 0 {
		return nil, eris.Errorf("table: xlsx %s missing %q header", path, companyHeader)
	}

	mem := NewMemory()
	for _, row := range sheet.Rows[1:] {
		cells := rowStrings(row)
		if companyIdx >= len(cells) {
			continue
		}
		company := strings.TrimSpace(cells[companyIdx])
		if company == "" {
			continue
		}
		for i, column := range managed {
			if i >= len(cells) {
				continue
			}
			text := cells[i]
			cell := model.RichText{
				Text:  text,
				Spans: merge.PreserveSpans("", nil, text, len(text), ""),
			}
			if err := mem.WriteCell(ctx, company, column, cell); err != nil {
				return nil, err
			}
		}
	}
	return mem, nil
}

// ExportXLSX writes the table's managed columns to an XLSX file: one row
// per company, header row first. Link spans survive round-trips only via
// the self-describing annotations inside the text.
func ExportXLSX(path string, registry *model.ColumnRegistry, mem *Memory) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Output")
	if err != nil {
		return eris.Wrap(err, "table: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = companyHeader
	for _, name := range registry.Names() {
		header.AddCell().Value = name
	}

	for _, company := range mem.Companies() {
		cells := mem.Row(company)
		row := sheet.AddRow()
		row.AddCell().Value = company
		for _, name := range registry.Names() {
			row.AddCell().Value = cells[name].Text
		}
	}

	return eris.Wrapf(f.Save(path), "table: save xlsx %s", path)
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}
