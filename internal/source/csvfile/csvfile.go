// Package csvfile reads a delimited file into an in-memory source.
//
// CSV carries no type information, so column types are inferred by scanning
// the data: a column is INT64 only if every non-empty value parses as an
// integer, FLOAT64 if every value is numeric, BOOL for true/false, and
// OBJECT otherwise. The inferred tokens use the frame grammar, which the
// type mapper already knows how to translate.
//
// The whole file is materialized. That is fine for the fixtures and exports
// this path is meant for; columnar files are the format for anything big.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/source/frame"
)

// Options controls parsing.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// NoHeader treats the first record as data and names columns col_1..col_n.
	NoHeader bool

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool
}

// Open reads the file at path and returns it as a paged source.
func Open(path string, opts Options) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &source.SchemaReadError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}
	r.LazyQuotes = opts.LazyQuotes
	r.ReuseRecord = false

	var header []string
	var records [][]string
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &source.SchemaReadError{Path: path, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if header == nil {
			if opts.NoHeader {
				header = syntheticHeader(len(rec))
				records = append(records, rec)
			} else {
				header = rec
			}
			continue
		}
		records = append(records, rec)
	}
	if header == nil {
		return nil, &source.SchemaReadError{Path: path, Err: fmt.Errorf("empty file")}
	}

	cols := make(schema.Table, len(header))
	for i, name := range header {
		cols[i] = schema.Column{Name: name, SourceType: inferType(records, i)}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(cols))
		for j := range cols {
			var v string
			if j < len(rec) {
				v = rec[j]
			}
			row[j] = coerce(v, cols[j].SourceType)
		}
		rows[i] = row
	}

	return frame.New(cols, rows)
}

func syntheticHeader(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = fmt.Sprintf("col_%d", i+1)
	}
	return h
}

// inferType scans one column and returns the narrowest frame token that
// holds every non-empty value. Empty columns stay OBJECT.
func inferType(records [][]string, col int) string {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, rec := range records {
		if col >= len(rec) || rec[col] == "" {
			continue
		}
		seen = true
		v := rec[col]
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !seen:
		return "OBJECT"
	case isInt:
		return "INT64"
	case isFloat:
		return "FLOAT64"
	case isBool:
		return "BOOL"
	default:
		return "OBJECT"
	}
}

// coerce converts a raw field to the Go value matching the inferred token.
// Empty fields become nil so they load as SQL NULL.
func coerce(v, token string) any {
	if v == "" {
		return nil
	}
	switch token {
	case "INT64":
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case "FLOAT64":
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case "BOOL":
		return strings.EqualFold(v, "true")
	default:
		return v
	}
}
