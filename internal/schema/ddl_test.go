package schema

import (
	"strings"
	"testing"

	"pqload/internal/typemap"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	table := Table{
		{Name: "VendorID", SourceType: "INTEGER"},
		{Name: "tpep_pickup_datetime", SourceType: "TIMESTAMP"},
		{Name: "fare_amount", SourceType: "DOUBLE"},
	}
	sql, err := BuildCreateTableSQL(table, Options{TableName: "trips", System: typemap.SystemDuckDB}, typemap.New())
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}

	want := "CREATE TABLE trips (\n" +
		"    VendorID INTEGER,\n" +
		"    tpep_pickup_datetime TIMESTAMP,\n" +
		"    fare_amount DOUBLE PRECISION\n" +
		");"
	if sql != want {
		t.Fatalf("DDL mismatch:\ngot:\n%s\nwant:\n%s", sql, want)
	}
}

func TestBuildCreateTableSQLIdempotent(t *testing.T) {
	t.Parallel()

	table := Table{
		{Name: "id", SourceType: "BIGINT"},
		{Name: "amount", SourceType: "DECIMAL(10,2)"},
	}
	opts := Options{TableName: "public.payments", System: typemap.SystemDuckDB, LowercaseColumns: true}
	m := typemap.New()

	first, err := BuildCreateTableSQL(table, opts, m)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := BuildCreateTableSQL(table, opts, m)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first != second {
		t.Fatalf("DDL not byte-identical across renders:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "amount DECIMAL(10,2)") {
		t.Fatalf("precision suffix lost: %s", first)
	}
}

func TestBuildCreateTableSQLColumnOrderPreserved(t *testing.T) {
	t.Parallel()

	table := Table{
		{Name: "z_last", SourceType: "TEXT"},
		{Name: "a_first", SourceType: "TEXT"},
		{Name: "m_middle", SourceType: "TEXT"},
	}
	sql, err := BuildCreateTableSQL(table, Options{TableName: "t", System: typemap.SystemDuckDB}, typemap.New())
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}

	z := strings.Index(sql, "z_last")
	a := strings.Index(sql, "a_first")
	mm := strings.Index(sql, "m_middle")
	if !(z < a && a < mm) {
		t.Fatalf("column order not preserved: %s", sql)
	}
}

func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	m := typemap.New()
	if _, err := BuildCreateTableSQL(Table{{Name: "a", SourceType: "TEXT"}}, Options{}, m); err == nil {
		t.Error("expected error for missing table name")
	}
	if _, err := BuildCreateTableSQL(Table{}, Options{TableName: "t"}, m); err == nil {
		t.Error("expected error for empty column list")
	}
}

// Distinct source names that clean to the same identifier must be rejected
// here, not by the target's duplicate-column error.
func TestBuildCreateTableSQLNameCollision(t *testing.T) {
	t.Parallel()

	m := typemap.New()

	_, err := BuildCreateTableSQL(Table{
		{Name: "a.b", SourceType: "TEXT"},
		{Name: "a-b", SourceType: "TEXT"},
	}, Options{TableName: "t"}, m)
	if err == nil {
		t.Fatal("expected error for colliding cleaned names")
	}
	for _, want := range []string{"a.b", "a-b", "a_b"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err, want)
		}
	}

	// Lowercasing can introduce collisions that case-preserving avoids.
	mixed := Table{
		{Name: "Fare", SourceType: "TEXT"},
		{Name: "fare", SourceType: "TEXT"},
	}
	if _, err := BuildCreateTableSQL(mixed, Options{TableName: "t"}, m); err != nil {
		t.Errorf("case-distinct names should pass without lowercasing: %v", err)
	}
	if _, err := BuildCreateTableSQL(mixed, Options{TableName: "t", LowercaseColumns: true}, m); err == nil {
		t.Error("expected error for names colliding after lowercasing")
	}
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in        string
		lowercase bool
		want      string
	}{
		{"VendorID", false, "VendorID"},
		{"VendorID", true, "vendorid"},
		{"  padded  ", false, "padded"},
		{"pickup datetime", false, "pickup_datetime"},
		{"fare-amount", true, "fare_amount"},
		{"Poblíž", false, "Pobliz"},
		{"Straße", true, "straße"}, // ß is a letter, not a combining mark
		{"total$ (USD)", false, "total_USD"},
		{"a..b", false, "a_b"},
	}
	for _, c := range cases {
		if got := CleanName(c.in, c.lowercase); got != c.want {
			t.Errorf("CleanName(%q, %v) = %q, want %q", c.in, c.lowercase, got, c.want)
		}
	}
}
