// Package typemap translates source column type tokens into Postgres-flavored
// SQL type strings.
//
// Three source type systems are supported:
//
//   - DuckDB SQL types as reported by DESCRIBE (e.g. "BIGINT", "DECIMAL(10,2)",
//     "TIMESTAMP WITH TIME ZONE")
//   - Arrow/parquet logical types (e.g. "int64", "timestamp[us, tz=UTC]",
//     "decimal128(38,9)")
//   - Frame dtypes from in-memory tabular frames (e.g. "int64", "float64",
//     "datetime64[ns]", "object")
//
// Mapping is a pure, total function: unknown tokens never fail, they degrade
// to a usable type instead (pass-through for SQL-ish systems, TEXT for Arrow).
// This is deliberate: an unmapped exotic type must not block DDL generation
// for the other hundred columns in the file.
package typemap

import "strings"

// System identifies which source type grammar a token came from.
type System int

const (
	SystemDuckDB System = iota
	SystemArrow
	SystemFrame
)

// String returns the lowercase system name used in logs and errors.
func (s System) String() string {
	switch s {
	case SystemDuckDB:
		return "duckdb"
	case SystemArrow:
		return "arrow"
	case SystemFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// parameterized lists the base types whose parenthesized precision/scale (or
// length) suffix must survive the mapping verbatim.
var parameterized = map[string]bool{
	"DECIMAL": true,
	"NUMERIC": true,
	"CHAR":    true,
	"VARCHAR": true,
}

// Mapper converts source type tokens to target SQL types.
//
// The per-system tables are fixed at construction and never mutated, so a
// single Mapper is safe to share across goroutines. Use New for the canonical
// tables; NewWithTables exists as a seam for tests and exotic deployments.
type Mapper struct {
	duckdb map[string]string
	arrow  map[string]string
	frame  map[string]string
}

// New returns a Mapper seeded with the canonical mapping tables.
func New() *Mapper {
	return NewWithTables(duckdbToPostgres, arrowToPostgres, frameToPostgres)
}

// NewWithTables builds a Mapper from caller-provided tables. The maps are
// copied so later mutation by the caller cannot leak into the Mapper.
func NewWithTables(duckdb, arrow, frame map[string]string) *Mapper {
	return &Mapper{
		duckdb: copyTable(duckdb),
		arrow:  copyTable(arrow),
		frame:  copyTable(frame),
	}
}

func copyTable(t map[string]string) map[string]string {
	out := make(map[string]string, len(t))
	for k, v := range t {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// Map converts one source type token into a target SQL type string.
//
// The token is split into a base type (text before any '(' or '[') and an
// optional parameter suffix. The base is looked up case-insensitively in the
// system's table. For DECIMAL/NUMERIC/CHAR/VARCHAR the original parenthesized
// suffix is re-appended to the mapped base. Timestamp tokens select a
// timezone-aware target when the token carries a timezone marker.
func (m *Mapper) Map(system System, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return "TEXT"
	}

	switch system {
	case SystemArrow:
		return m.mapArrow(token)
	case SystemFrame:
		return m.mapFrame(token)
	default:
		return m.mapDuckDB(token)
	}
}

// mapDuckDB maps a DuckDB DESCRIBE type token.
//
// Unknown base types pass through unchanged: DuckDB speaks SQL already, so an
// unmapped token (e.g. an ENUM or STRUCT rendering) is more useful verbatim
// than coerced to TEXT.
func (m *Mapper) mapDuckDB(token string) string {
	upper := strings.ToUpper(token)

	// DESCRIBE renders timezone-aware timestamps as a multi-word type, which
	// the single-token table lookup would otherwise miss.
	if strings.HasPrefix(upper, "TIMESTAMP") {
		if strings.Contains(upper, "WITH TIME ZONE") || strings.HasPrefix(upper, "TIMESTAMPTZ") {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	}

	base := baseToken(upper)
	mapped, ok := m.duckdb[base]
	if !ok {
		return token
	}
	if parameterized[base] {
		if suffix := paramSuffix(token); suffix != "" {
			return mapped + suffix
		}
	}
	return mapped
}

// mapArrow maps an Arrow logical type token.
//
// Unknown base types fall back to TEXT rather than pass-through: Arrow tokens
// are not SQL and would never survive a CREATE TABLE as-is.
func (m *Mapper) mapArrow(token string) string {
	lower := strings.ToLower(token)

	if strings.HasPrefix(lower, "timestamp") {
		if strings.Contains(lower, "tz=") {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	}

	// decimal128(38,9) / decimal256(76,10) -> DECIMAL(38,9) etc.
	if strings.HasPrefix(lower, "decimal") {
		if suffix := paramSuffix(token); suffix != "" {
			return "DECIMAL" + strings.ToUpper(suffix)
		}
		return "DECIMAL"
	}

	base := baseToken(strings.ToUpper(lower))
	if mapped, ok := m.arrow[base]; ok {
		return mapped
	}
	return "TEXT"
}

// mapFrame maps an in-memory frame dtype token.
//
// Exact table hits win; otherwise the original loader's substring heuristics
// apply (any "int" dtype is integral, any "float" dtype is floating, and so
// on), with TEXT as the final fallback.
func (m *Mapper) mapFrame(token string) string {
	base := baseToken(strings.ToUpper(token))
	if mapped, ok := m.frame[base]; ok {
		return mapped
	}

	lower := strings.ToLower(token)
	switch {
	case strings.Contains(lower, "datetime"):
		return "TIMESTAMP"
	case strings.Contains(lower, "int"):
		if strings.Contains(lower, "64") {
			return "BIGINT"
		}
		return "INTEGER"
	case strings.Contains(lower, "float"):
		return "DOUBLE PRECISION"
	case strings.Contains(lower, "bool"):
		return "BOOLEAN"
	case strings.Contains(lower, "object"):
		return "VARCHAR"
	default:
		return "TEXT"
	}
}

// baseToken strips everything from the first '(' or '[' onward.
func baseToken(token string) string {
	if i := strings.IndexAny(token, "(["); i >= 0 {
		return strings.TrimSpace(token[:i])
	}
	return token
}

// paramSuffix returns the verbatim "(...)" suffix of a token, or "".
func paramSuffix(token string) string {
	if i := strings.Index(token, "("); i >= 0 {
		return token[i:]
	}
	return ""
}
