// Package mssql implements target.Target for SQL Server.
//
// SQL Server enforces two hard limits the batch builder must respect: at most
// 2100 bound parameters per statement and at most 1000 row value expressions
// per INSERT. InsertBatch splits a batch into however many statements those
// limits require, inside one transaction so the batch still commits as a
// unit.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"pqload/internal/target"
)

type Target struct {
	db *sql.DB
}

func init() {
	target.Register("mssql", New)
}

func New(ctx context.Context, cfg target.Config) (target.Target, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, &target.ConnectionError{Kind: "mssql", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &target.ConnectionError{Kind: "mssql", Err: err}
	}
	return &Target{db: db}, nil
}

func (t *Target) Kind() string { return "mssql" }

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
		`SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return n > 0, nil
}

func (t *Target) InsertBatch(ctx context.Context, table string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	width := len(rows[0])

	// Stay under both server limits with margin.
	rowsPerStmt := 2000 / width
	if rowsPerStmt > 1000 {
		rowsPerStmt = 1000
	}
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
		`SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`, table)
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

// buildInsertSQL renders a positional multi-row INSERT with @pN placeholders.
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
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, sql.Named(fmt.Sprintf("p%d", p), v))
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}
