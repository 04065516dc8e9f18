package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// requireValidSpans asserts the core span invariant: sorted, non-overlapping,
// in-bounds. A violation is an implementation bug, never bad input.
func requireValidSpans(t *testing.T, text string, spans []model.LinkSpan) {
	t.Helper()
	require.True(t, model.RichText{Text: text, Spans: spans}.Valid(),
		"spans %v out of bounds or overlapping for text %q", spans, text)
}

func TestPreserveSpans_FreshCellAnnotated(t *testing.T) {
	text := "5-axis CNC (News: 2023)"
	spans := PreserveSpans("", nil, text, 0, "https://x/1")

	requireValidSpans(t, text, spans)
	require.Len(t, spans, 1)
	assert.Equal(t, "(News: 2023)", text[spans[0].Start:spans[0].End])
	assert.Equal(t, "https://x/1", spans[0].URL)
}

func TestPreserveSpans_BareNewsToken(t *testing.T) {
	text := "family owned (News)"
	spans := PreserveSpans("", nil, text, 0, "https://x/2")

	requireValidSpans(t, text, spans)
	require.Len(t, spans, 1)
	assert.Equal(t, "(News)", text[spans[0].Start:spans[0].End])
}

func TestPreserveSpans_OldSpansCarriedOnAppend(t *testing.T) {
	oldText := "5-axis CNC (News: 2023)"
	oldSpans := []model.LinkSpan{{Start: 11, End: 23, URL: "https://x/1"}}
	newText := oldText + " ; wire EDM (News: 2024)"

	spans := PreserveSpans(oldText, oldSpans, newText, len(oldText), "https://x/2")

	requireValidSpans(t, newText, spans)
	require.Len(t, spans, 2)
	assert.Equal(t, "https://x/1", spans[0].URL)
	assert.Equal(t, "(News: 2023)", newText[spans[0].Start:spans[0].End])
	assert.Equal(t, "https://x/2", spans[1].URL)
	assert.Equal(t, "(News: 2024)", newText[spans[1].Start:spans[1].End])
}

func TestPreserveSpans_OldSpansDroppedOnOverwrite(t *testing.T) {
	// Placeholder overwritten: old text is not a prefix of the new text,
	// so its spans do not apply.
	spans := PreserveSpans("refer to site", []model.LinkSpan{{Start: 0, End: 5, URL: "https://old"}},
		"5-axis CNC (News: 2023)", 0, "https://x/1")

	requireValidSpans(t, "5-axis CNC (News: 2023)", spans)
	require.Len(t, spans, 1)
	assert.Equal(t, "https://x/1", spans[0].URL)
}

func TestPreserveSpans_SelfDescribingURLTokens(t *testing.T) {
	// URL-carrying tokens are linked wherever they appear, including in
	// the preserved history of a legacy cell with no recorded spans.
	text := "acquired (News: https://a/1) ; expanded (News: https://b/2)"
	spans := PreserveSpans("", nil, text, len(text), "")

	requireValidSpans(t, text, spans)
	require.Len(t, spans, 2)
	assert.Equal(t, "https://a/1", spans[0].URL)
	assert.Equal(t, "https://b/2", spans[1].URL)
	assert.Equal(t, "(News: https://a/1)", text[spans[0].Start:spans[0].End])
}

func TestPreserveSpans_LegacyBareNewsWord(t *testing.T) {
	text := "old fact News 2019"
	spans := PreserveSpans("", nil, text, 0, "https://x/3")

	requireValidSpans(t, text, spans)
	require.Len(t, spans, 1)
	assert.Equal(t, "News", text[spans[0].Start:spans[0].End])
	assert.Equal(t, "https://x/3", spans[0].URL)
}

func TestPreserveSpans_BareWordNotDoubleLinkedInsideToken(t *testing.T) {
	text := "fact (News: 2023)"
	spans := PreserveSpans("", nil, text, 0, "https://x/1")

	requireValidSpans(t, text, spans)
	// One span over the whole token; the "News" inside it must not get a
	// second overlapping span.
	require.Len(t, spans, 1)
	assert.Equal(t, "(News: 2023)", text[spans[0].Start:spans[0].End])
}

func TestPreserveSpans_NoStoryURLNoAppendedSpans(t *testing.T) {
	text := "fact (News: 2023)"
	spans := PreserveSpans("", nil, text, 0, "")
	assert.Empty(t, spans)
}

func TestPreserveSpans_OnlyAppendedSliceScannedForYearTokens(t *testing.T) {
	oldText := "first (News: 2020)"
	newText := oldText + " ; second (News: 2021)"
	// No old spans recorded and no whole-text URL tokens: only the
	// appended token may be linked to the new story.
	spans := PreserveSpans(oldText, nil, newText, len(oldText), "https://x/9")

	requireValidSpans(t, newText, spans)
	require.Len(t, spans, 1)
	assert.Equal(t, "(News: 2021)", newText[spans[0].Start:spans[0].End])
	assert.Equal(t, "https://x/9", spans[0].URL)
}

func TestPreserveSpans_AppendedStartClamped(t *testing.T) {
	text := "fact (News)"
	assert.NotPanics(t, func() {
		requireValidSpans(t, text, PreserveSpans("", nil, text, -5, "https://x/1"))
		requireValidSpans(t, text, PreserveSpans("", nil, text, len(text)+10, "https://x/1"))
	})
}

// Provenance non-loss: every span present after merge n stays present (by
// coverage) after merge n+1.
func TestPreserveSpans_RepeatedMergesKeepAllSpans(t *testing.T) {
	text := "a (News: 2020)"
	spans := PreserveSpans("", nil, text, 0, "https://x/1")

	for i, next := range []string{" ; b (News: 2021)", " ; c (News)"} {
		newText := text + next
		url := "https://x/" + strings.Repeat("n", i+1)
		newSpans := PreserveSpans(text, spans, newText, len(text), url)
		requireValidSpans(t, newText, newSpans)
		require.Len(t, newSpans, len(spans)+1)

		for j, old := range spans {
			assert.Equal(t, old, newSpans[j], "span %d lost after merge", j)
		}
		text, spans = newText, newSpans
	}
}
