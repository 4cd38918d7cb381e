// Command pqddl prints the CREATE TABLE statement for a parquet file.
//
// It introspects the file's schema through the embedded engine, maps every
// column type to its relational equivalent and emits the DDL on stdout. No
// database connection is made; pipe the output wherever you like.
//
// Usage:
//
//	pqddl -in trips.parquet -table trips
//	pqddl -in trips.parquet -table trips -drop -indexes | psql "$DSN"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pqload/internal/advisor"
	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/source/csvfile"
	"pqload/internal/source/duckdb"
	"pqload/internal/typemap"
)

func main() {
	var (
		flagIn        = flag.String("in", "", "Input parquet file (required)")
		flagTable     = flag.String("table", "", "Destination table name (default: input file stem)")
		flagDrop      = flag.Bool("drop", false, "Emit DROP TABLE IF EXISTS before the CREATE")
		flagIndexes   = flag.Bool("indexes", false, "Emit suggested CREATE INDEX statements after the CREATE")
		flagLowercase = flag.Bool("lowercase", false, "Fold column names to lower case")
	)
	flag.Parse()

	if *flagIn == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		flag.Usage()
		os.Exit(2)
	}
	table := *flagTable
	if table == "" {
		table = tableFromPath(*flagIn)
	}

	ctx := context.Background()

	src, err := openSource(ctx, *flagIn)
	if err != nil {
		fatalf("open source: %v", err)
	}
	defer src.Close()

	cols, err := src.Schema(ctx)
	if err != nil {
		fatalf("%v", err)
	}

	ddl, err := schema.BuildCreateTableSQL(cols, schema.Options{
		TableName:        table,
		System:           src.System(),
		LowercaseColumns: *flagLowercase,
	}, typemap.New())
	if err != nil {
		fatalf("build ddl: %v", err)
	}

	if *flagDrop {
		fmt.Println(schema.BuildDropTableSQL(table))
	}
	fmt.Println(ddl)

	if *flagIndexes {
		for _, s := range advisor.Suggest(table, cols.Names()) {
			fmt.Println(s.SQL)
		}
	}
}

// tableFromPath derives a table name from the input file stem, cleaned into
// a safe identifier ("yellow_tripdata_2024-01.parquet" -> "yellow_tripdata_2024_01").
func tableFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return schema.CleanName(stem, false)
}

// openSource picks the reader by extension: .csv goes through the in-memory
// CSV source, everything else through the engine.
func openSource(ctx context.Context, path string) (source.Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return csvfile.Open(path, csvfile.Options{TrimSpace: true})
	}
	return duckdb.Open(ctx, path)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
