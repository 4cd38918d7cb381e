// Package sqlite implements target.Target for SQLite via modernc.org/sqlite.
//
// SQLite has no server and no COPY protocol, so only DDL and chunked inserts
// are supported. It is the zero-infrastructure target: handy for local smoke
// runs against the same pipeline that later points at Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "modernc.org/sqlite"

	"pqload/internal/target"
)

type Target struct {
	db *sql.DB
}

func init() {
	target.Register("sqlite", New)
}

// New opens (or creates) the database file named by the DSN. "sqlite://" and
// "file://" prefixes are accepted and stripped.
func New(ctx context.Context, cfg target.Config) (target.Target, error) {
	path := strings.TrimPrefix(strings.TrimPrefix(cfg.DSN, "sqlite://"), "file://")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &target.ConnectionError{Kind: "sqlite", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &target.ConnectionError{Kind: "sqlite", Err: err}
	}
	return &Target{db: db}, nil
}

func (t *Target) Kind() string { return "sqlite" }

func (t *Target) Close() { _ = t.db.Close() }

func (t *Target) Exec(ctx context.Context, q string) error {
	_, err := t.db.ExecContext(ctx, q)
	return err
}

func (t *Target) DropTable(ctx context.Context, table string) error {
	_, err := t.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	return err
}

func (t *Target) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return n > 0, nil
}

// InsertBatch inserts rows positionally inside one transaction. SQLite has a
// default limit of 32766 bound parameters per statement, so wide batches are
// split into several statements; the surrounding transaction keeps the batch
// atomic either way.
func (t *Target) InsertBatch(ctx context.Context, table string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	width := len(rows[0])

	const maxParams = 30000
	rowsPerStmt := maxParams / width
	if rowsPerStmt < 1 {
		rowsPerStmt = 1
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert %s: begin: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for start := 0; start < len(rows); start += rowsPerStmt {
		end := start + rowsPerStmt
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(table, rows[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert %s: commit: %w", table, err)
	}
	return total, nil
}

func (t *Target) CopyCSV(ctx context.Context, table string, r io.Reader) (int64, error) {
	return 0, target.ErrCopyUnsupported
}

func (t *Target) ColumnNames(ctx context.Context, table string) ([]string, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("columns of %s: scan: %w", table, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("columns of %s: rows: %w", table, err)
	}
	return out, nil
}

// buildInsertSQL renders a positional multi-row INSERT with '?' placeholders.
func buildInsertSQL(table string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" VALUES ")

	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}

	args := make([]any, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, v)
		}
		b.WriteString(")")
	}
	return b.String(), args
}
