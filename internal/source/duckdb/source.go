// Package duckdb implements source.Source over a parquet file using an
// embedded DuckDB engine.
//
// DuckDB does the heavy lifting: schema introspection via DESCRIBE (a
// metadata-only read), paged scans via LIMIT/OFFSET, CSV export via COPY TO,
// and cross-engine bulk transfer via its postgres extension. This package
// only builds the SQL and shapes the results.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	duckdbgo "github.com/duckdb/duckdb-go/v2"

	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/typemap"
)

// Source reads one parquet file through an in-process DuckDB instance.
type Source struct {
	db   *sql.DB
	path string
}

var _ source.Source = (*Source)(nil)
var _ source.CSVExporter = (*Source)(nil)
var _ source.AttachInserter = (*Source)(nil)

// Open creates an in-memory DuckDB instance scoped to one parquet file.
//
// The file must exist and be a readable parquet file; a missing file fails
// here, a corrupt one fails on first query. Both surface as *SchemaReadError
// from Schema, which is what the orchestrator keys its fatal path on.
func Open(ctx context.Context, path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &source.SchemaReadError{Path: path, Err: err}
	}

	connector, err := duckdbgo.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("duckdb connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}
	return &Source{db: db, path: path}, nil
}

// DB exposes the underlying handle for collaborators (the sampler) that run
// their own DuckDB statements.
func (s *Source) DB() *sql.DB { return s.db }

// Path returns the parquet file this source reads.
func (s *Source) Path() string { return s.path }

func (s *Source) System() typemap.System { return typemap.SystemDuckDB }

func (s *Source) Close() error { return s.db.Close() }

// Schema introspects the parquet schema without scanning row data.
//
// DESCRIBE against a SELECT over the file is a metadata operation in DuckDB;
// it reads the parquet footer, not the row groups.
func (s *Source) Schema(ctx context.Context) (schema.Table, error) {
	q := fmt.Sprintf(
		"SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM read_parquet(%s))",
		quoteLiteral(s.path),
	)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &source.SchemaReadError{Path: s.path, Err: err}
	}
	defer rows.Close()

	var out schema.Table
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, &source.SchemaReadError{Path: s.path, Err: err}
		}
		out = append(out, schema.Column{Name: name, SourceType: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, &source.SchemaReadError{Path: s.path, Err: err}
	}
	if len(out) == 0 {
		return nil, &source.SchemaReadError{Path: s.path, Err: fmt.Errorf("no columns found")}
	}
	return out, nil
}

// Count returns the file's total row count. Parquet footers make this a
// metadata read as well.
func (s *Source) Count(ctx context.Context) (int64, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM read_parquet(%s)", quoteLiteral(s.path))
	var n int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.path, err)
	}
	return n, nil
}

// Page returns up to limit rows starting at offset, in schema column order.
func (s *Source) Page(ctx context.Context, offset, limit int64) ([][]any, error) {
	q := fmt.Sprintf(
		"SELECT * FROM read_parquet(%s) LIMIT %d OFFSET %d",
		quoteLiteral(s.path), limit, offset,
	)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("page %s offset=%d: %w", s.path, offset, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("page %s: columns: %w", s.path, err)
	}

	var out [][]any
	for rows.Next() {
		// Scan needs pointer destinations; allocate a values slice and a
		// parallel pointer slice into it.
		vals := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range vals {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("page %s: scan: %w", s.path, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page %s: rows: %w", s.path, err)
	}
	return out, nil
}

// ExportCSV dumps the whole relation to path as headerless delimited text.
func (s *Source) ExportCSV(ctx context.Context, path string, delimiter, quote rune) error {
	q := fmt.Sprintf(
		"COPY (SELECT * FROM read_parquet(%s)) TO %s (HEADER false, DELIMITER %s, QUOTE %s)",
		quoteLiteral(s.path),
		quoteLiteral(path),
		quoteLiteral(string(delimiter)),
		quoteLiteral(string(quote)),
	)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("export csv to %s: %w", path, err)
	}
	return nil
}

// AttachInsert loads DuckDB's postgres extension, attaches the target, and
// inserts the whole relation in one engine-side statement. No row data flows
// through this process.
//
// The attached alias is fixed; one Source performs at most one AttachInsert
// per run, and the attach lives only as long as the in-memory DuckDB does.
func (s *Source) AttachInsert(ctx context.Context, dsn, table string) error {
	steps := []string{
		"INSTALL postgres",
		"LOAD postgres",
		fmt.Sprintf("ATTACH %s AS pg_target (TYPE postgres)", quoteLiteral(dsn)),
		fmt.Sprintf("INSERT INTO pg_target.%s SELECT * FROM read_parquet(%s)", table, quoteLiteral(s.path)),
	}
	for _, q := range steps {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("attach insert into %s: %w", table, err)
		}
	}
	return nil
}

// quoteLiteral renders a DuckDB single-quoted string literal. File paths and
// DSNs are interpolated into statements (DuckDB DDL takes no placeholders
// there), so internal quotes must be doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
