// Package frame provides an in-memory tabular source.
//
// A Frame is the third supported type system: dtype strings in the style of
// dataframe libraries ("int64", "float64", "datetime64[ns]", "object"). It is
// useful for loading small in-memory relations and doubles as the
// deterministic source for unit tests, since it involves no files and no
// engine.
package frame

import (
	"context"
	"fmt"

	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/typemap"
)

// Frame is an immutable in-memory relation. Build one with New and treat it
// as read-only afterwards.
type Frame struct {
	columns schema.Table
	rows    [][]any
}

var _ source.Source = (*Frame)(nil)

// New validates shape and wraps the data. Every row must have exactly one
// value per column; a ragged row is rejected here rather than surfacing later
// as a mid-load cardinality error.
func New(columns schema.Table, rows [][]any) (*Frame, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("frame: at least one column required")
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("frame: row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Frame{columns: columns, rows: rows}, nil
}

func (f *Frame) System() typemap.System { return typemap.SystemFrame }

func (f *Frame) Close() error { return nil }

func (f *Frame) Schema(ctx context.Context) (schema.Table, error) {
	out := make(schema.Table, len(f.columns))
	copy(out, f.columns)
	return out, nil
}

func (f *Frame) Count(ctx context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *Frame) Page(ctx context.Context, offset, limit int64) ([][]any, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("frame: negative offset or limit")
	}
	n := int64(len(f.rows))
	if offset >= n {
		return nil, nil
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return f.rows[offset:end], nil
}
