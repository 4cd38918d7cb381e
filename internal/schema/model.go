// Package schema holds the column-level data model shared by introspection,
// DDL generation, and loading, plus the CREATE TABLE renderer.
package schema

// Column is one (name, source type) pair as reported by a source. SourceType
// is an opaque token in the source system's own grammar, e.g. "DECIMAL(10,2)"
// or "timestamp[us, tz=UTC]". Columns are value types and never mutated after
// introspection.
type Column struct {
	Name       string
	SourceType string
}

// Table is an ordered column list. Order is significant end to end: the DDL
// column order must match the column order of every transferred row, so
// nothing in this package (or its consumers) may reorder a Table.
type Table []Column

// Names returns the column names in table order.
func (t Table) Names() []string {
	out := make([]string, len(t))
	for i, c := range t {
		out[i] = c.Name
	}
	return out
}
