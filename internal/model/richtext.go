package model

import "sort"

// LinkSpan attaches a source URL to a half-open byte range [Start, End)
// of a cell's text. Spans record which URL substantiates that range's claim.
type LinkSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	URL   string `json:"url"`
}

// RichText is a destination cell: plain text plus hyperlink spans.
// Invariant: spans are sorted by Start, non-overlapping, and within
// [0, len(Text)]. Offsets are byte offsets into the UTF-8 text.
type RichText struct {
	Text  string     `json:"text"`
	Spans []LinkSpan `json:"spans,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r RichText) Clone() RichText {
	out := RichText{Text: r.Text}
	if len(r.Spans) > 0 {
		out.Spans = make([]LinkSpan, len(r.Spans))
		copy(out.Spans, r.Spans)
	}
	return out
}

// Valid reports whether every span is in-bounds, well-formed, and the
// span list is sorted and non-overlapping.
func (r RichText) Valid() bool {
	prev := 0
	for _, s := range r.Spans {
		if s.Start < prev || s.Start >= s.End || s.End > len(r.Text) {
			return false
		}
		prev = s.End
	}
	return true
}

// NormalizeSpans sorts spans by start offset and drops any span that is
// out of bounds or overlaps an earlier one. Earlier spans win on overlap.
func NormalizeSpans(text string, spans []LinkSpan) []LinkSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]LinkSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := sorted[:0]
	prev := 0
	for _, s := range sorted {
		if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
			continue
		}
		if s.Start < prev {
			continue
		}
		out = append(out, s)
		prev = s.End
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
