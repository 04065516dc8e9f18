package merge

import (
	"regexp"
	"strings"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

var (
	// Self-describing provenance token carrying its own URL. These can
	// appear anywhere in a cell, including inside preserved history.
	newsURLTokenRx = regexp.MustCompile(`\(News:\s*(https?://[^\s)]+)\)`)
	// Year-annotated or bare provenance token produced by Normalize.
	newsTokenRx = regexp.MustCompile(`\(News(?::\s*(?:19|20)\d{2})?\)`)
	// Legacy cells link the bare word "News" instead of the whole token.
	newsWordRx = regexp.MustCompile(`\bNews\b`)
)

// PreserveSpans computes the hyperlink spans for a cell's new text after a
// merge. oldText must be a prefix of newText (the policy only overwrites
// from empty or appends); appendedStart is the offset where the newly
// appended portion begins.
//
// Old spans are carried over untouched (prefix offsets are stable). The
// whole text is then scanned for self-describing "(News: <url>)" tokens,
// and the appended slice for "(News: <year>)"/"(News)" tokens and the
// legacy bare "News" word, which link to storyURL. The result is sorted,
// non-overlapping, and in-bounds; on overlap the earliest claim wins, so
// no annotation visible in the text ever loses its link across merges.
func PreserveSpans(oldText string, oldSpans []model.LinkSpan, newText string, appendedStart int, storyURL string) []model.LinkSpan {
	var spans []model.LinkSpan

	if oldText != "" && strings.HasPrefix(newText, oldText) {
		spans = append(spans, oldSpans...)
	}

	for _, m := range newsURLTokenRx.FindAllStringSubmatchIndex(newText, -1) {
		spans = append(spans, model.LinkSpan{
			Start: m[0],
			End:   m[1],
			URL:   newText[m[2]:m[3]],
		})
	}

	if appendedStart < 0 {
		appendedStart = 0
	}
	if appendedStart > len(newText) {
		appendedStart = len(newText)
	}
	appended := newText[appendedStart:]

	if storyURL != "" {
		for _, m := range newsTokenRx.FindAllStringIndex(appended, -1) {
			spans = append(spans, model.LinkSpan{
				Start: appendedStart + m[0],
				End:   appendedStart + m[1],
				URL:   storyURL,
			})
		}
		for _, m := range newsWordRx.FindAllStringIndex(appended, -1) {
			spans = append(spans, model.LinkSpan{
				Start: appendedStart + m[0],
				End:   appendedStart + m[1],
				URL:   storyURL,
			})
		}
	}

	return model.NormalizeSpans(newText, spans)
}
