package typemap

// Canonical mapping tables. These are seed data for New(); Mapper copies them
// at construction so nothing here is mutable process state.
//
// Notes:
//   - TINYINT maps to SMALLINT because Postgres has no 1-byte integer.
//   - VARCHAR stays VARCHAR so that a length-qualified VARCHAR(n) keeps its
//     suffix and remains valid SQL. Unqualified VARCHAR is equivalent to TEXT
//     in Postgres anyway.
//   - Unsigned Arrow types widen to the next signed Postgres type.

var duckdbToPostgres = map[string]string{
	"INTEGER":     "INTEGER",
	"INT":         "INTEGER",
	"BIGINT":      "BIGINT",
	"HUGEINT":     "NUMERIC",
	"SMALLINT":    "SMALLINT",
	"TINYINT":     "SMALLINT",
	"UINTEGER":    "BIGINT",
	"UBIGINT":     "NUMERIC",
	"USMALLINT":   "INTEGER",
	"UTINYINT":    "SMALLINT",
	"DOUBLE":      "DOUBLE PRECISION",
	"REAL":        "REAL",
	"FLOAT":       "REAL",
	"DECIMAL":     "DECIMAL",
	"NUMERIC":     "NUMERIC",
	"VARCHAR":     "VARCHAR",
	"CHAR":        "CHAR",
	"TEXT":        "TEXT",
	"STRING":      "TEXT",
	"TIMESTAMP":   "TIMESTAMP",
	"TIMESTAMPTZ": "TIMESTAMPTZ",
	"DATE":        "DATE",
	"TIME":        "TIME",
	"INTERVAL":    "INTERVAL",
	"BOOLEAN":     "BOOLEAN",
	"BOOL":        "BOOLEAN",
	"BLOB":        "BYTEA",
	"BYTEA":       "BYTEA",
	"UUID":        "UUID",
	"JSON":        "JSONB",
	"JSONB":       "JSONB",
}

var arrowToPostgres = map[string]string{
	"INT8":         "SMALLINT",
	"INT16":        "SMALLINT",
	"INT32":        "INTEGER",
	"INT64":        "BIGINT",
	"UINT8":        "SMALLINT",
	"UINT16":       "INTEGER",
	"UINT32":       "BIGINT",
	"UINT64":       "BIGINT",
	"HALFFLOAT":    "REAL",
	"FLOAT":        "REAL",
	"FLOAT32":      "REAL",
	"DOUBLE":       "DOUBLE PRECISION",
	"FLOAT64":      "DOUBLE PRECISION",
	"STRING":       "TEXT",
	"LARGE_STRING": "TEXT",
	"UTF8":         "TEXT",
	"BINARY":       "BYTEA",
	"LARGE_BINARY": "BYTEA",
	"BOOL":         "BOOLEAN",
	"DATE32":       "DATE",
	"DATE64":       "DATE",
	"TIME32":       "TIME",
	"TIME64":       "TIME",
}

var frameToPostgres = map[string]string{
	"INT8":       "SMALLINT",
	"INT16":      "SMALLINT",
	"INT32":      "INTEGER",
	"INT64":      "BIGINT",
	"FLOAT32":    "DOUBLE PRECISION",
	"FLOAT64":    "DOUBLE PRECISION",
	"BOOL":       "BOOLEAN",
	"BOOLEAN":    "BOOLEAN",
	"DATETIME64": "TIMESTAMP",
	"OBJECT":     "VARCHAR",
	"CATEGORY":   "TEXT",
	"STRING":     "TEXT",
}
