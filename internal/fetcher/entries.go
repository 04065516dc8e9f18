package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// entryColumns maps accepted dump header names onto NewsEntry fields.
// Collectors have shipped several header spellings over time.
var entryColumns = map[string]string{
	"company":          "company",
	"company name":     "company",
	"fact_blob":        "fact_blob",
	"fact blob":        "fact_blob",
	"facts":            "fact_blob",
	"publication_year": "publication_year",
	"publication year": "publication_year",
	"year":             "publication_year",
	"story_url":        "story_url",
	"story url":        "story_url",
	"url":              "story_url",
	"source":           "story_url",
}

// ParseEntriesCSV reads a news-entry dump in CSV form. The first row must
// be a header; rows missing a company or fact blob are skipped.
func ParseEntriesCSV(ctx context.Context, r io.Reader) ([]model.NewsEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // collectors pad rows inconsistently

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read csv header")
	}
	fields := mapHeader(header)
	if fields["company"] < 0 || fields["fact_blob"] < 0 {
		return nil, eris.New("fetcher: csv dump missing company or fact blob column")
	}

	var entries []model.NewsEntry
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}
		if e, ok := recordToEntry(record, fields); ok {
			entries = append(entries, e)
		}
	}
}

// ParseEntriesXLSX reads a news-entry dump from the first sheet of an
// XLSX file.
func ParseEntriesXLSX(path string) ([]model.NewsEntry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, nil
	}
	sheet := f.Sheets[0]

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, c := range sheet.Rows[0].Cells {
		header[i] = c.String()
	}
	fields := mapHeader(header)
	if fields["company"] < 0 || fields["fact_blob"] < 0 {
		return nil, eris.Errorf("fetcher: xlsx dump %s missing company or fact blob column", path)
	}

	var entries []model.NewsEntry
	for _, row := range sheet.Rows[1:] {
		record := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			record[i] = c.String()
		}
		if e, ok := recordToEntry(record, fields); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func mapHeader(header []string) map[string]int {
	fields := map[string]int{
		"company":          -1,
		"fact_blob":        -1,
		"publication_year": -1,
		"story_url":        -1,
	}
	for i, name := range header {
		key, ok := entryColumns[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if fields[key] < 0 {
			fields[key] = i
		}
	}
	return fields
}

func recordToEntry(record []string, fields map[string]int) (model.NewsEntry, bool) {
	at := func(key string) string {
		i := fields[key]
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	e := model.NewsEntry{
		Company:         at("company"),
		FactBlob:        at("fact_blob"),
		PublicationYear: at("publication_year"),
		StoryURL:        at("story_url"),
	}
	if e.Company == "" || e.FactBlob == "" {
		return model.NewsEntry{}, false
	}
	return e, true
}
