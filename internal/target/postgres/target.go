// Package postgres implements target.Target for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"pqload/internal/target"
)

// Target wraps a pgx pool.
type Target struct {
	pool *pgxpool.Pool
}

func init() {
	target.Register("postgres", New)
}

// New opens a pool and verifies connectivity up front. A target we cannot
// reach must fail the run before any DDL is attempted, not halfway through.
func New(ctx context.Context, cfg target.Config) (target.Target, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, &target.ConnectionError{Kind: "postgres", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &target.ConnectionError{Kind: "postgres", Err: err}
	}
	return &Target{pool: pool}, nil
}

func (t *Target) Kind() string { return "postgres" }

func (t *Target) Close() { t.pool.Close() }

func (t *Target) Exec(ctx context.Context, sql string) error {
	_, err := t.pool.Exec(ctx, sql)
	return err
}

func (t *Target) DropTable(ctx context.Context, table string) error {
	_, err := t.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	return err
}

func (t *Target) TableExists(ctx context.Context, table string) (bool, error) {
	schema, name := splitQualifiedName(table)
	if schema == "" {
		schema = "public"
	}

	var exists bool
	err := t.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, schema, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return exists, nil
}

// InsertBatch inserts rows positionally inside one transaction. The extended
// protocol caps a statement at 65535 bound parameters, so wide batches are
// split into several statements; the surrounding transaction keeps the batch
// atomic either way.
func (t *Target) InsertBatch(ctx context.Context, table string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rowsPerStmt := rowsPerStatement(len(rows[0]))

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert %s: begin: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	for start := 0; start < len(rows); start += rowsPerStmt {
		end := start + rowsPerStmt
		if end > len(rows) {
			end = len(rows)
		}
		sql, args := buildInsertSQL(table, rows[start:end])
		cmd, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("insert %s: commit: %w", table, err)
	}
	return total, nil
}

// CopyCSV streams headerless CSV into table via the COPY protocol.
func (t *Target) CopyCSV(ctx context.Context, table string, r io.Reader) (int64, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("copy %s: acquire: %w", table, err)
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyFrom(ctx, r,
		fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv)", table))
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (t *Target) ColumnNames(ctx context.Context, table string) ([]string, error) {
	schema, name := splitQualifiedName(table)
	if schema == "" {
		schema = "public"
	}

	rows, err := t.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`, schema, name)
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

// splitQualifiedName splits "schema.table" into its parts. Only a single dot
// is handled; anything more complex is treated as unqualified.
func splitQualifiedName(name string) (schema, table string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
