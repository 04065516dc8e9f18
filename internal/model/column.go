package model

// ColumnKind classifies a destination column's value discipline.
type ColumnKind string

const (
	// KindBooleanFlag columns only ever hold "Yes" or the "NI" placeholder.
	KindBooleanFlag ColumnKind = "boolean-flag"
	// KindFreeText columns accumulate annotated free text.
	KindFreeText ColumnKind = "free-text"
)

// ColumnSpec describes one managed destination column.
type ColumnSpec struct {
	Name string     `json:"name" yaml:"name"`
	Kind ColumnKind `json:"kind" yaml:"kind"`
}

// ColumnRegistry is an indexed collection of column specs plus the label
// synonym table used to route parsed updates to columns.
type ColumnRegistry struct {
	Columns  []ColumnSpec
	byName   map[string]*ColumnSpec
	position map[string]int
	synonyms map[string]string
}

// NewColumnRegistry creates a ColumnRegistry with indexed lookups.
// Column order is preserved and exposed via Position for sheet IO.
func NewColumnRegistry(columns []ColumnSpec, synonyms map[string]string) *ColumnRegistry {
	r := &ColumnRegistry{
		Columns:  columns,
		byName:   make(map[string]*ColumnSpec, len(columns)),
		position: make(map[string]int, len(columns)),
		synonyms: synonyms,
	}
	for i := range r.Columns {
		c := &r.Columns[i]
		r.byName[c.Name] = c
		r.position[c.Name] = i
	}
	return r
}

// Resolve maps a parsed label to its destination column. The synonym table
// is consulted first, then the label itself, with exact case-sensitive
// matching only. A nil result means the update should be dropped:
// mis-routing a fact into the wrong column is worse than losing it.
func (r *ColumnRegistry) Resolve(label string) *ColumnSpec {
	name := label
	if alias, ok := r.synonyms[label]; ok {
		name = alias
	}
	return r.byName[name]
}

// ByName returns the spec for an exact column name, or nil.
func (r *ColumnRegistry) ByName(name string) *ColumnSpec {
	return r.byName[name]
}

// Position returns the zero-based column index for a column name,
// or -1 when the name is not managed.
func (r *ColumnRegistry) Position(name string) int {
	if i, ok := r.position[name]; ok {
		return i
	}
	return -1
}

// Names returns the managed column names in declaration order.
func (r *ColumnRegistry) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}
