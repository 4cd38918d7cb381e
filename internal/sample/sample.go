// Package sample cuts a smaller parquet file out of a larger one, using the
// source engine to do the heavy lifting. A 40 GB export becomes a laptop-size
// fixture without ever materializing rows in this process.
package sample

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pqload/internal/schema"
	"pqload/internal/source/duckdb"
)

// Spec describes the sample to cut. Exactly one of Rows or Percentage must
// be set.
type Spec struct {
	// Rows takes the first (or a random) n rows.
	Rows int64

	// Percentage takes that share of rows, in (0, 100]. Sequential from the
	// head of the file unless Random is set.
	Percentage float64

	// OrderBy sorts before cutting. Ignored when Random is set: a sorted
	// random sample is a contradiction the engine would silently resolve,
	// so we resolve it explicitly.
	OrderBy string

	// Random switches from head-of-file to reservoir sampling.
	Random bool
}

// Validate rejects specs that are ambiguous or out of range.
func (s Spec) Validate() error {
	switch {
	case s.Rows == 0 && s.Percentage == 0:
		return fmt.Errorf("sample: either rows or percentage is required")
	case s.Rows != 0 && s.Percentage != 0:
		return fmt.Errorf("sample: rows and percentage are mutually exclusive")
	case s.Rows < 0:
		return fmt.Errorf("sample: rows must be positive, got %d", s.Rows)
	case s.Percentage < 0 || s.Percentage > 100:
		return fmt.Errorf("sample: percentage must be in (0, 100], got %g", s.Percentage)
	}
	return nil
}

// buildSelectSQL renders the inner SELECT for a spec. limit is the resolved
// row count for the sequential paths; the random paths ignore it and hand the
// sizing to the engine's sampler. Pure so the exact SQL shape stays testable
// without an engine.
func buildSelectSQL(in string, s Spec, limit int64) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM read_parquet(")
	b.WriteString(quoteLiteral(in))
	b.WriteString(")")

	switch {
	case s.Random && s.Rows > 0:
		fmt.Fprintf(&b, " USING SAMPLE %d ROWS", s.Rows)
	case s.Random:
		fmt.Fprintf(&b, " USING SAMPLE %g%%", s.Percentage)
	default:
		// Sequential cut: a percentage has already been resolved to a row
		// count, so both spellings share the ORDER BY/LIMIT shape.
		if s.OrderBy != "" {
			fmt.Fprintf(&b, " ORDER BY %s", s.OrderBy)
		}
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String()
}

// buildCopySQL wraps the select in a parquet COPY to the output path.
func buildCopySQL(in, out string, s Spec, limit int64) string {
	return fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", buildSelectSQL(in, s, limit), quoteLiteral(out))
}

// resolveLimit converts a non-random percentage into an absolute row count.
// Truncates like integer division: 2.5% of 1000 rows is 25, of 30 rows is 0.
func resolveLimit(s Spec, total int64) int64 {
	if s.Rows > 0 {
		return s.Rows
	}
	return int64(float64(total) * s.Percentage / 100)
}

// Run cuts the sample described by spec from in and writes it to out.
func Run(ctx context.Context, db *sql.DB, in, out string, spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	var limit int64
	if !spec.Random {
		limit = spec.Rows
		if spec.Percentage > 0 {
			var total int64
			countSQL := fmt.Sprintf("SELECT COUNT(*) FROM read_parquet(%s)", quoteLiteral(in))
			if err := db.QueryRowContext(ctx, countSQL).Scan(&total); err != nil {
				return fmt.Errorf("sample %s: count: %w", in, err)
			}
			limit = resolveLimit(spec, total)
		}
	}

	if _, err := db.ExecContext(ctx, buildCopySQL(in, out, spec, limit)); err != nil {
		return fmt.Errorf("sample %s: %w", in, err)
	}
	return nil
}

// FileInfo summarizes one parquet file.
type FileInfo struct {
	Path    string
	Rows    int64
	Columns schema.Table
}

// Info reports the row count and schema of the parquet file at path.
func Info(ctx context.Context, src *duckdb.Source) (FileInfo, error) {
	cols, err := src.Schema(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	rows, err := src.Count(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Path: src.Path(), Rows: rows, Columns: cols}, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
