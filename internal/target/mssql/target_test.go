package mssql

import "testing"

func TestBuildInsertSQLNamedPlaceholders(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("trips", [][]any{{1, "a"}, {2, "b"}})
	if sql != "INSERT INTO trips VALUES (@p1, @p2), (@p3, @p4)" {
		t.Fatalf("sql = %q", sql)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
}
