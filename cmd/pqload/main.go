// Command pqload creates a table from a parquet file's schema and loads
// every row into it.
//
// The run is a fixed pipeline: introspect the schema, apply CREATE TABLE,
// move the rows with the selected strategy, then create suggested indexes
// (unless -no-indexes). Any fatal error stops the run; a failed index does
// not.
//
// Usage:
//
//	pqload -in trips.parquet -table trips -dsn postgresql://user:pw@host/db
//	pqload -in trips.parquet -table trips -strategy chunked -batch-size 50000 -drop -no-indexes
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pqload/internal/load"
	"pqload/internal/metrics"
	"pqload/internal/metrics/datadog"
	"pqload/internal/source"
	"pqload/internal/source/csvfile"
	"pqload/internal/source/duckdb"
	"pqload/internal/target"

	// register all target backends; the DSN decides which one runs.
	_ "pqload/internal/target/mssql"
	_ "pqload/internal/target/postgres"
	_ "pqload/internal/target/sqlite"
)

func main() {
	var (
		flagIn        = flag.String("in", "", "Input parquet file (required)")
		flagDSN       = flag.String("dsn", "", "Target DSN (highest priority; falls back to DSN / DSN_* env vars)")
		flagBackend   = flag.String("backend", "", "Target backend for DSN_* env composition: postgres|mssql|sqlite (default: derived from dsn)")
		flagTable     = flag.String("table", "", "Destination table name (required)")
		flagStrategy  = flag.String("strategy", load.DefaultStrategy, "Load strategy: bulk|filecopy|chunked")
		flagBatchSize = flag.Int64("batch-size", load.DefaultBatchSize, "Rows per batch (chunked strategy)")
		flagDrop      = flag.Bool("drop", false, "Drop the table first if it already exists")
		flagNoIndexes = flag.Bool("no-indexes", false, "Skip creating suggested indexes after loading")
		flagLowercase = flag.Bool("lowercase", false, "Fold column names to lower case")
		flagMetrics   = flag.String("metrics-backend", "", "Metrics backend: datadog|none (default: datadog when DD_API_KEY is set)")
		flagVerbose   = flag.Bool("v", false, "Enable verbose logs")
	)
	flag.Parse()

	if *flagIn == "" || *flagTable == "" {
		fmt.Fprintln(os.Stderr, "missing -in or -table")
		flag.Usage()
		os.Exit(2)
	}

	dsn, err := resolveDSN(*flagBackend, *flagDSN)
	if err != nil {
		fatalf("%v", err)
	}
	kind, err := target.KindForDSN(dsn)
	if err != nil {
		fatalf("%v", err)
	}

	ctx := context.Background()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	stopMetrics := setupMetrics(ctx, *flagMetrics, *flagTable, logger)
	defer stopMetrics()

	src, err := openSource(ctx, *flagIn)
	if err != nil {
		fatalf("open source: %v", err)
	}
	defer src.Close()

	tgt, err := target.New(ctx, target.Config{Kind: kind, DSN: dsn})
	if err != nil {
		fatalf("open target: %v", err)
	}
	defer tgt.Close()

	job := load.Job{
		SourcePath:       *flagIn,
		DSN:              dsn,
		Table:            *flagTable,
		Strategy:         *flagStrategy,
		BatchSize:        *flagBatchSize,
		DropIfExists:     *flagDrop,
		CreateIndexes:    !*flagNoIndexes,
		LowercaseColumns: *flagLowercase,
	}

	start := time.Now()
	res, err := load.NewOrchestrator(logger).Run(ctx, src, tgt, job)
	if err != nil {
		logger.Printf("run ended in state %s: %v", res.State, err)
		os.Exit(1)
	}

	if *flagVerbose {
		logger.Printf("ddl:\n%s", res.DDL)
	}
	logger.Printf("done: %d rows into %s.%s in %s",
		res.RowsLoaded, kind, *flagTable, time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics wires the metrics backend: flag, then METRICS_BACKEND, then
// datadog when credentials are in the environment. Failures downgrade to the
// nop backend; a load should never die because a dashboard is unreachable.
// The returned func is the shutdown path: it stops the periodic flush loop
// and submits one final time.
func setupMetrics(ctx context.Context, backendFlag, table string, logger *log.Logger) func() {
	name := backendFlag
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	if name == "" && os.Getenv("DD_API_KEY") != "" {
		name = "datadog"
	}

	switch name {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: table,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			logger.Printf("metrics: datadog init failed: %v; metrics disabled", err)
			return func() {}
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logger.Printf("metrics: datadog close: %v", err)
			}
		}
	case "", "none":
		// nop backend remains
	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
	return func() {}
}

// openSource picks the reader by extension: .csv goes through the in-memory
// CSV source (chunked strategy only), everything else through the engine.
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
