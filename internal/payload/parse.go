// Package payload parses the encoding-ambiguous fact blobs emitted by the
// news collectors. Upstream producers have historically emitted three
// incompatible encodings for the same facts, and old rows on record still
// carry the old ones, so the parser sniffs the shape once and falls through
// liberally rather than rejecting.
package payload

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/sells-group/newsmerge-cli/internal/model"
)

// Kind tags the encoding the parser detected for a fact blob.
type Kind string

const (
	KindEmpty  Kind = "empty"
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindLines  Kind = "lines"
)

// Payload is the parse result: the detected encoding plus the extracted
// updates. Downstream code never re-sniffs the blob's shape.
type Payload struct {
	Kind    Kind
	Updates []model.ParsedUpdate
}

// lineRx matches the legacy line encoding: `Label ; "Value text" [, YEAR]`.
// A dangling comma with no year is tolerated.
var lineRx = regexp.MustCompile(`^\s*([^;"]+?)\s*;\s*"(.*)"\s*(?:,\s*((?:19|20)\d{2})?\s*)?$`)

// Parse extracts (label, value) updates from one fact blob.
//
// Formats are tried in order: JSON object, JSON array, line format. A
// candidate that fails to parse falls through to the next; if nothing
// matches the result carries zero updates. Parse never returns an error:
// a malformed payload costs its facts, not the batch.
func Parse(factBlob string) Payload {
	trimmed := strings.TrimSpace(factBlob)
	if trimmed == "" {
		return Payload{Kind: KindEmpty}
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if updates, ok := parseObject(trimmed); ok {
			return Payload{Kind: KindObject, Updates: updates}
		}
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		if updates, ok := parseArray(trimmed); ok {
			return Payload{Kind: KindArray, Updates: updates}
		}
	}

	if updates := parseLines(trimmed); len(updates) > 0 {
		return Payload{Kind: KindLines, Updates: updates}
	}

	return Payload{Kind: KindEmpty}
}

// parseObject decodes a JSON object into one update per key/value pair,
// preserving document key order. Non-string values are re-serialized to
// their JSON text.
func parseObject(s string) ([]model.ParsedUpdate, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	var updates []model.ParsedUpdate
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		updates = append(updates, model.ParsedUpdate{Label: key, RawValue: rawToString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	// Anything after the closing brace means the blob was not a single
	// object; fall through to the next format rather than drop facts.
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return updates, true
}

// parseArray decodes a JSON array and dispatches each element: strings are
// re-parsed as line format and flattened in, objects are handled per
// parseObject. Elements of any other type are skipped.
func parseArray(s string) ([]model.ParsedUpdate, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, false
	}

	var updates []model.ParsedUpdate
	for _, elem := range elems {
		e := strings.TrimSpace(string(elem))
		switch {
		case strings.HasPrefix(e, `"`):
			var line string
			if err := json.Unmarshal(elem, &line); err != nil {
				continue
			}
			updates = append(updates, parseLines(line)...)
		case strings.HasPrefix(e, "{"):
			if obj, ok := parseObject(e); ok {
				updates = append(updates, obj...)
			}
		}
	}
	return updates, true
}

// parseLines extracts updates from the line encoding. Lines that do not
// match the pattern are silently dropped so blobs with mixed prose still
// yield their parseable facts.
func parseLines(s string) []model.ParsedUpdate {
	var updates []model.ParsedUpdate
	for _, line := range strings.Split(s, "\n") {
		m := lineRx.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		raw := m[2]
		if m[3] != "" {
			// Keep the trailing year attached; the normalizer strips it
			// after folding it into the effective-year computation.
			raw += ", " + m[3]
		}
		updates = append(updates, model.ParsedUpdate{Label: strings.TrimSpace(m[1]), RawValue: raw})
	}
	return updates
}

// rawToString renders a JSON value as the update's raw value: strings are
// unquoted, everything else keeps its JSON text.
func rawToString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	return s
}
