// Package merge implements the fact merge engine: value normalization,
// the per-cell merge policy, hyperlink span preservation, and the batch
// driver that folds collected news facts into company rows.
package merge

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

const (
	// FlagYes is the only affirmative value a boolean-flag column holds.
	FlagYes = "Yes"
	// FlagNI is the inconclusive marker for boolean-flag columns.
	FlagNI = "NI"
)

var (
	newsParenRx    = regexp.MustCompile(`\s*\(News[^)]*\)`)
	trailingYearRx = regexp.MustCompile(`\s*,\s*(?:19|20)\d{2}\s*$`)
	yearTokenRx    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// Normalize converts a raw update value into the canonical display string
// for a column of the given kind.
//
// Boolean-flag values fold onto "Yes"/"NI" by prefix; anything else is
// returned unchanged and the policy treats it as inconclusive. Free-text
// values are stripped of prior "(News...)" annotations and trailing ", YEAR"
// suffixes, then re-annotated with the effective year.
func Normalize(kind model.ColumnKind, rawValue, publicationYear string) string {
	if kind == model.KindBooleanFlag {
		return normalizeFlag(rawValue)
	}
	return normalizeText(rawValue, publicationYear)
}

func normalizeFlag(rawValue string) string {
	v := strings.ToLower(strings.TrimSpace(rawValue))
	switch {
	case strings.HasPrefix(v, "yes"):
		return FlagYes
	case strings.HasPrefix(v, "ni"):
		return FlagNI
	default:
		return rawValue
	}
}

func normalizeText(rawValue, publicationYear string) string {
	base := newsParenRx.ReplaceAllString(rawValue, "")
	base = trailingYearRx.ReplaceAllString(base, "")
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}

	year := effectiveYear(rawValue, publicationYear)
	if year == "" {
		return base + " (News)"
	}
	return base + " (News: " + year + ")"
}

// effectiveYear picks the earliest substantiated year for a fact. An article
// may describe something older than its own publish date ("acquired in 2019"
// published 2024), so the minimum of the publication year and every 4-digit
// year mentioned in the text wins. Ties keep the first occurrence in reading
// order. Empty when neither source yields a year.
func effectiveYear(rawValue, publicationYear string) string {
	best := ""
	bestN := 0
	if n, ok := parseYear(publicationYear); ok {
		best, bestN = strings.TrimSpace(publicationYear), n
	}
	for _, tok := range yearTokenRx.FindAllString(rawValue, -1) {
		n, ok := parseYear(tok)
		if !ok {
			continue
		}
		if best == "" || n < bestN {
			best, bestN = tok, n
		}
	}
	return best
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !yearTokenRx.MatchString(s) || len(s) != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
