package model

import "time"

// NewsEntry is one collected news fact payload for a company. Entries are
// produced by the (external) collector stage and are immutable once created.
type NewsEntry struct {
	ID              string    `json:"id,omitempty"`
	Company         string    `json:"company"`
	FactBlob        string    `json:"fact_blob"`
	PublicationYear string    `json:"publication_year,omitempty"` // 4-digit year, or empty
	StoryURL        string    `json:"story_url,omitempty"`        // absolute URL, or empty
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// ParsedUpdate is one (label, value) pair extracted from a fact blob.
type ParsedUpdate struct {
	Label    string `json:"label"`
	RawValue string `json:"raw_value"`
}

// MergeOutcome reports the result of one cell-level merge attempt.
type MergeOutcome struct {
	Changed bool `json:"changed"`
}

// RunStatus represents the current state of a merge run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// MergeRun records one batch merge invocation for audit and re-run safety.
type MergeRun struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Companies int       `json:"companies"`
	Entries   int       `json:"entries"`
	Applied   int       `json:"applied"` // cell merges where the text changed
	Skipped   int       `json:"skipped"` // updates dropped or no-op'd
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
