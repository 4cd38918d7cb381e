// Package source defines the read-side contract for columnar sources.
//
// A Source exposes schema introspection and paged row access. Strategies that
// need more than that (CSV export, cross-engine attach) type-assert the
// optional capability interfaces; a source that lacks a capability simply
// cannot serve the strategy that requires it.
package source

import (
	"context"
	"fmt"

	"pqload/internal/schema"
	"pqload/internal/typemap"
)

// Source is a columnar relation that can be introspected and paged.
//
// Implementations must report rows in the same column order as Schema, every
// time. Schema must not scan row data.
type Source interface {
	// Schema returns the ordered (name, source type) column list.
	Schema(ctx context.Context) (schema.Table, error)

	// Count returns the total row count.
	Count(ctx context.Context) (int64, error)

	// Page returns up to limit rows starting at offset, in schema column order.
	Page(ctx context.Context, offset, limit int64) ([][]any, error)

	// System identifies the type grammar Schema's SourceType tokens use.
	System() typemap.System

	Close() error
}

// CSVExporter is implemented by sources that can dump their full relation to
// a local delimited file. Used by the file-copy load strategy.
type CSVExporter interface {
	// ExportCSV writes every row to path with no header line.
	ExportCSV(ctx context.Context, path string, delimiter, quote rune) error
}

// AttachInserter is implemented by sources whose engine can attach directly
// to the target database and insert without moving rows through this process.
// Used by the bulk load strategy.
type AttachInserter interface {
	// AttachInsert attaches the target identified by dsn and runs a single
	// INSERT ... SELECT of the whole relation into table.
	AttachInsert(ctx context.Context, dsn, table string) error
}

// SchemaReadError reports an unreadable or malformed source. It is fatal for
// the run: without a schema there is nothing to create or load.
type SchemaReadError struct {
	Path string
	Err  error
}

func (e *SchemaReadError) Error() string {
	return fmt.Sprintf("schema read %s: %v", e.Path, e.Err)
}

func (e *SchemaReadError) Unwrap() error { return e.Err }
