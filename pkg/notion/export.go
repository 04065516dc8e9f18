package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// CellRichText converts a destination cell into Notion rich text. Each
// link span becomes its own text segment carrying a link annotation, and
// the gaps between spans become plain segments, so the exported page
// shows the same hyperlinked provenance the sheet does.
func CellRichText(cell model.RichText) []notionapi.RichText {
	if cell.Text == "" {
		return nil
	}

	var parts []notionapi.RichText
	emit := func(text, url string) {
		if text == "" {
			return
		}
		rt := notionapi.RichText{
			Type:      notionapi.ObjectTypeText,
			Text:      &notionapi.Text{Content: text},
			PlainText: text,
		}
		if url != "" {
			rt.Text.Link = &notionapi.Link{Url: url}
			rt.Href = url
		}
		parts = append(parts, rt)
	}

	prev := 0
	for _, span := range cell.Spans {
		if span.Start < prev || span.End > len(cell.Text) {
			continue
		}
		emit(cell.Text[prev:span.Start], "")
		emit(cell.Text[span.Start:span.End], span.URL)
		prev = span.End
	}
	emit(cell.Text[prev:], "")
	return parts
}

// ExportRow creates or updates the Notion page for one company, writing
// each managed column as a rich_text property.
func ExportRow(ctx context.Context, c Client, dbID, company string, cells map[string]model.RichText) error {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{
				Type:      notionapi.ObjectTypeText,
				Text:      &notionapi.Text{Content: company},
				PlainText: company,
			}},
		},
	}
	for column, cell := range cells {
		rt := CellRichText(cell)
		if rt == nil {
			continue
		}
		props[column] = notionapi.RichTextProperty{RichText: rt}
	}

	pageID, err := findPage(ctx, c, dbID, company)
	if err != nil {
		return err
	}

	if pageID != "" {
		_, err = c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
		return eris.Wrapf(err, "notion: update row %s", company)
	}

	_, err = c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(dbID)},
		Properties: props,
	})
	return eris.Wrapf(err, "notion: create row %s", company)
}

// findPage looks up an existing page by exact company title. Returns empty
// when the row has not been exported before.
func findPage(ctx context.Context, c Client, dbID, company string) (string, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Name",
			RichText: &notionapi.TextFilterCondition{Equals: company},
		},
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: find row %s", company)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	if len(resp.Results) > 1 {
		zap.L().Warn("notion: multiple pages for company, updating first",
			zap.String("company", company),
		)
	}
	return string(resp.Results[0].ID), nil
}
