package postgres

import (
	"reflect"
	"testing"
)

func TestBuildInsertSQLPlaceholderNumbering(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{1, "a", 1.5},
		{2, "b", 2.5},
	}
	sql, args := buildInsertSQL("trips", rows)

	want := "INSERT INTO trips VALUES ($1, $2, $3), ($4, $5, $6)"
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	wantArgs := []any{1, "a", 1.5, 2, "b", 2.5}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuildInsertSQLSingleRow(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("t", [][]any{{nil}})
	if sql != "INSERT INTO t VALUES ($1)" {
		t.Fatalf("sql = %q", sql)
	}
	if len(args) != 1 || args[0] != nil {
		t.Fatalf("args = %v", args)
	}
}

// TestWideBatchStaysUnderParameterCap verifies that a default-size batch of
// wide rows is split so no single statement carries more bind parameters
// than the extended protocol allows.
func TestWideBatchStaysUnderParameterCap(t *testing.T) {
	t.Parallel()

	const (
		width     = 19
		batchSize = 10000
	)
	rows := make([][]any, batchSize)
	for i := range rows {
		rows[i] = make([]any, width)
	}

	perStmt := rowsPerStatement(width)
	if perStmt*width > maxParams {
		t.Fatalf("rowsPerStatement(%d)=%d exceeds budget: %d params", width, perStmt, perStmt*width)
	}

	var total int
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		_, args := buildInsertSQL("trips", rows[start:end])
		if len(args) > 65535 {
			t.Fatalf("statement at offset %d has %d parameters, over the protocol cap", start, len(args))
		}
		total += len(args)
	}
	if total != batchSize*width {
		t.Fatalf("total args=%d, want %d", total, batchSize*width)
	}
}

func TestRowsPerStatement(t *testing.T) {
	t.Parallel()

	cases := []struct {
		width int
		want  int
	}{
		{width: 1, want: maxParams},
		{width: 19, want: maxParams / 19},
		{width: maxParams + 1, want: 1},
		{width: 0, want: 1},
	}
	for _, c := range cases {
		if got := rowsPerStatement(c.width); got != c.want {
			t.Errorf("rowsPerStatement(%d)=%d, want %d", c.width, got, c.want)
		}
	}
}

func TestSplitQualifiedName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in            string
		schema, table string
	}{
		{"trips", "", "trips"},
		{"public.trips", "public", "trips"},
	}
	for _, c := range cases {
		s, n := splitQualifiedName(c.in)
		if s != c.schema || n != c.table {
			t.Errorf("splitQualifiedName(%q) = (%q, %q), want (%q, %q)", c.in, s, n, c.schema, c.table)
		}
	}
}
