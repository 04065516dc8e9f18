package merge

import (
	"strings"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// cellState classifies a destination cell's current text.
type cellState int

const (
	stateEmpty cellState = iota
	statePlaceholder
	stateProtected
	stateReal
)

// Policy decides whether and how one destination cell is mutated by an
// incoming fact. Placeholder sentinels and the protection marker vary per
// deployment and are injected rather than hard-coded.
type Policy struct {
	placeholders  []string
	protectMarker string
}

// NewPolicy creates a merge policy. placeholders are the "no information
// yet" sentinels (matched case-insensitively against trimmed cell text);
// protectMarker flags human-entered content that must never be lost.
func NewPolicy(placeholders []string, protectMarker string) *Policy {
	return &Policy{placeholders: placeholders, protectMarker: protectMarker}
}

func (p *Policy) classify(text string) cellState {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return stateEmpty
	}
	if p.protectMarker != "" && strings.Contains(text, p.protectMarker) {
		return stateProtected
	}
	for _, ph := range p.placeholders {
		if strings.EqualFold(trimmed, ph) {
			return statePlaceholder
		}
	}
	return stateReal
}

// Merge applies one parsed update to a cell and returns the resulting cell
// plus the outcome. The input cell is never mutated. Merging the same fact
// twice yields the same cell as merging it once, so re-running a partially
// failed batch is always safe.
func (p *Policy) Merge(col *model.ColumnSpec, cell model.RichText, rawValue, publicationYear, storyURL string) (model.RichText, model.MergeOutcome) {
	if col.Kind == model.KindBooleanFlag {
		return p.mergeFlag(cell, rawValue, publicationYear, storyURL)
	}
	return p.mergeText(cell, rawValue, publicationYear, storyURL)
}

func (p *Policy) mergeFlag(cell model.RichText, rawValue, publicationYear, storyURL string) (model.RichText, model.MergeOutcome) {
	// A flag already proven true is never re-derived.
	if strings.TrimSpace(cell.Text) == FlagYes {
		return cell, model.MergeOutcome{}
	}

	normalized := Normalize(model.KindBooleanFlag, rawValue, publicationYear)
	// Inconclusive values take no action; a cell is never downgraded to NI.
	if normalized != FlagYes {
		return cell, model.MergeOutcome{}
	}

	switch p.classify(cell.Text) {
	case stateEmpty, statePlaceholder:
		out := model.RichText{Text: FlagYes}
		if storyURL != "" {
			out.Spans = []model.LinkSpan{{Start: 0, End: len(out.Text), URL: storyURL}}
		}
		return out, model.MergeOutcome{Changed: out.Text != cell.Text}
	default:
		// Protected or unexpected real text in a flag column is left alone.
		return cell, model.MergeOutcome{}
	}
}

func (p *Policy) mergeText(cell model.RichText, rawValue, publicationYear, storyURL string) (model.RichText, model.MergeOutcome) {
	normalized := Normalize(model.KindFreeText, rawValue, publicationYear)
	if normalized == "" {
		return cell, model.MergeOutcome{}
	}

	var newText string
	appendedStart := 0
	switch p.classify(cell.Text) {
	case stateEmpty, statePlaceholder:
		newText = normalized
	default:
		// Real or protected content: dedup, else append. Protection guards
		// against loss of the marked content, not against further appends.
		if strings.Contains(cell.Text, normalized) {
			return cell, model.MergeOutcome{}
		}
		newText = cell.Text + " ; " + normalized
		appendedStart = len(cell.Text)
	}

	out := model.RichText{
		Text:  newText,
		Spans: PreserveSpans(cell.Text, cell.Spans, newText, appendedStart, storyURL),
	}
	return out, model.MergeOutcome{Changed: out.Text != cell.Text}
}
