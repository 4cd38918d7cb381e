package schema

import (
	"fmt"
	"strings"

	"pqload/internal/typemap"
)

// Options controls DDL rendering.
type Options struct {
	// TableName is the target table, optionally schema-qualified.
	TableName string

	// System selects the type grammar the SourceType tokens are written in.
	System typemap.System

	// LowercaseColumns lowercases column names in the emitted DDL.
	LowercaseColumns bool
}

// BuildCreateTableSQL renders a CREATE TABLE statement for t.
//
// The output is deterministic: the same table and options always produce
// byte-identical SQL, one column definition per line in source order, no
// constraints or keys. Execution is the caller's job; this function only
// renders text.
func BuildCreateTableSQL(t Table, opts Options, m *typemap.Mapper) (string, error) {
	if strings.TrimSpace(opts.TableName) == "" {
		return "", fmt.Errorf("ddl: table name is required")
	}
	if len(t) == 0 {
		return "", fmt.Errorf("ddl: table %s has no columns", opts.TableName)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(opts.TableName)
	b.WriteString(" (\n")

	// Cleaning can collapse distinct source names ("a.b" and "a-b" both
	// become "a_b"). Catch that here with both source names in hand instead
	// of letting the target reject the statement.
	seen := make(map[string]string, len(t))
	for i, col := range t {
		name := CleanName(col.Name, opts.LowercaseColumns)
		if name == "" {
			return "", fmt.Errorf("ddl: column %d of %s has an empty name after cleaning (source name %q)",
				i, opts.TableName, col.Name)
		}
		if prev, dup := seen[name]; dup {
			return "", fmt.Errorf("ddl: columns %q and %q of %s both clean to %q",
				prev, col.Name, opts.TableName, name)
		}
		seen[name] = col.Name
		b.WriteString("    ")
		b.WriteString(name)
		b.WriteString(" ")
		b.WriteString(m.Map(opts.System, col.SourceType))
		if i < len(t)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString(");")
	return b.String(), nil
}

// BuildDropTableSQL renders the guarded drop used before re-creating a table.
func BuildDropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
}
