package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSpans_SortsByStart(t *testing.T) {
	text := "alpha beta gamma"
	spans := NormalizeSpans(text, []LinkSpan{
		{Start: 11, End: 16, URL: "https://c"},
		{Start: 0, End: 5, URL: "https://a"},
		{Start: 6, End: 10, URL: "https://b"},
	})

	require.Len(t, spans, 3)
	assert.Equal(t, "https://a", spans[0].URL)
	assert.Equal(t, "https://b", spans[1].URL)
	assert.Equal(t, "https://c", spans[2].URL)
	assert.True(t, RichText{Text: text, Spans: spans}.Valid())
}

func TestNormalizeSpans_DropsOutOfBounds(t *testing.T) {
	spans := NormalizeSpans("short", []LinkSpan{
		{Start: 0, End: 5, URL: "https://ok"},
		{Start: 3, End: 99, URL: "https://long"},
		{Start: -1, End: 2, URL: "https://neg"},
		{Start: 4, End: 4, URL: "https://zero"},
	})

	require.Len(t, spans, 1)
	assert.Equal(t, "https://ok", spans[0].URL)
}

func TestNormalizeSpans_EarlierSpanWinsOverlap(t *testing.T) {
	text := "sold to PE in 2021"
	spans := NormalizeSpans(text, []LinkSpan{
		{Start: 0, End: 10, URL: "https://first"},
		{Start: 5, End: 14, URL: "https://overlaps"},
		{Start: 10, End: 18, URL: "https://adjacent"},
	})

	require.Len(t, spans, 2)
	assert.Equal(t, "https://first", spans[0].URL)
	assert.Equal(t, "https://adjacent", spans[1].URL)
}

func TestNormalizeSpans_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, NormalizeSpans("text", nil))
	assert.Nil(t, NormalizeSpans("", []LinkSpan{{Start: 0, End: 3, URL: "https://x"}}))
}

func TestRichText_CloneDoesNotAlias(t *testing.T) {
	orig := RichText{Text: "fact", Spans: []LinkSpan{{Start: 0, End: 4, URL: "https://x"}}}
	clone := orig.Clone()
	clone.Spans[0].URL = "https://mutated"

	assert.Equal(t, "https://x", orig.Spans[0].URL)
}

func TestRichText_Valid(t *testing.T) {
	assert.True(t, RichText{Text: "plain"}.Valid())
	assert.True(t, RichText{
		Text:  "ab cd",
		Spans: []LinkSpan{{Start: 0, End: 2, URL: "u"}, {Start: 3, End: 5, URL: "v"}},
	}.Valid())
	assert.False(t, RichText{
		Text:  "ab cd",
		Spans: []LinkSpan{{Start: 0, End: 3, URL: "u"}, {Start: 2, End: 5, URL: "v"}},
	}.Valid())
	assert.False(t, RichText{Text: "ab", Spans: []LinkSpan{{Start: 0, End: 3, URL: "u"}}}.Valid())
}

func TestColumnRegistry_Resolve(t *testing.T) {
	r := NewColumnRegistry(
		[]ColumnSpec{
			{Name: "Equipment", Kind: KindFreeText},
			{Name: "CNC 5-axis", Kind: KindBooleanFlag},
		},
		map[string]string{"Machinery": "Equipment"},
	)

	require.NotNil(t, r.Resolve("Equipment"))
	assert.Equal(t, "Equipment", r.Resolve("Machinery").Name)
	assert.Nil(t, r.Resolve("equipment"), "matching is case-sensitive")
	assert.Nil(t, r.Resolve("Unknown label"))

	assert.Equal(t, 1, r.Position("CNC 5-axis"))
	assert.Equal(t, -1, r.Position("Unknown"))
	assert.Equal(t, []string{"Equipment", "CNC 5-axis"}, r.Names())
}
