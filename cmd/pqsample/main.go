// Command pqsample cuts a smaller parquet file out of a larger one, or
// reports what a parquet file contains.
//
// Usage:
//
//	pqsample -in trips.parquet -out head.parquet -rows 100000
//	pqsample -in trips.parquet -out pct.parquet -percent 2.5
//	pqsample -in trips.parquet -out rnd.parquet -rows 50000 -random
//	pqsample -in trips.parquet -info
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pqload/internal/sample"
	"pqload/internal/source/duckdb"
)

func main() {
	var (
		flagIn      = flag.String("in", "", "Input parquet file (required)")
		flagOut     = flag.String("out", "", "Output parquet file (required unless -info)")
		flagRows    = flag.Int64("rows", 0, "Number of rows to sample")
		flagPercent = flag.Float64("percent", 0, "Percentage of rows to sample, in (0, 100]")
		flagOrderBy = flag.String("order-by", "", "Sort before cutting (head sampling only)")
		flagRandom  = flag.Bool("random", false, "Random sample instead of head-of-file")
		flagInfo    = flag.Bool("info", false, "Print row count and schema, then exit")
	)
	flag.Parse()

	if *flagIn == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()

	src, err := duckdb.Open(ctx, *flagIn)
	if err != nil {
		fatalf("open source: %v", err)
	}
	defer src.Close()

	if *flagInfo {
		info, err := sample.Info(ctx, src)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s: %d rows, %d columns\n", info.Path, info.Rows, len(info.Columns))
		for _, c := range info.Columns {
			fmt.Printf("  %s  %s\n", c.Name, c.SourceType)
		}
		return
	}

	if *flagOut == "" {
		fmt.Fprintln(os.Stderr, "missing -out")
		flag.Usage()
		os.Exit(2)
	}

	spec := sample.Spec{
		Rows:       *flagRows,
		Percentage: *flagPercent,
		OrderBy:    *flagOrderBy,
		Random:     *flagRandom,
	}
	if err := sample.Run(ctx, src.DB(), *flagIn, *flagOut, spec); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("wrote %s\n", *flagOut)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
