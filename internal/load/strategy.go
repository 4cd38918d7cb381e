// Package load moves rows from a columnar source into a relational target.
//
// Three strategies exist, ordered from fastest to most portable:
//
//   - bulk:     the source engine attaches to the target and inserts
//     directly; rows never pass through this process.
//   - filecopy: the source dumps a temp CSV, the target ingests it with its
//     native bulk-copy protocol.
//   - chunked:  rows are paged out of the source and inserted with
//     parameterized batches, one transaction per batch. Works against any
//     registered target.
//
// The Orchestrator sequences schema introspection, DDL, the chosen
// strategy and index advice as an explicit state machine.
package load

import (
	"context"
	"fmt"

	"pqload/internal/source"
	"pqload/internal/target"
)

// Strategy names accepted by Job.Strategy and ForName.
const (
	StrategyBulk     = "bulk"
	StrategyFileCopy = "filecopy"
	StrategyChunked  = "chunked"
)

// Logger is the minimal logging dependency. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Strategy moves every row of src into the named table on tgt and reports
// how many rows were written.
type Strategy interface {
	Name() string
	Load(ctx context.Context, src source.Source, tgt target.Target, job Job, log Logger) (int64, error)
}

// ForName returns the strategy registered under name. The set is closed:
// a typo fails fast instead of silently falling back.
func ForName(name string) (Strategy, error) {
	switch name {
	case StrategyBulk:
		return &bulkStrategy{}, nil
	case StrategyFileCopy:
		return &fileCopyStrategy{}, nil
	case StrategyChunked:
		return &chunkedStrategy{}, nil
	default:
		return nil, fmt.Errorf("load: unknown strategy %q (want %s, %s or %s)",
			name, StrategyBulk, StrategyFileCopy, StrategyChunked)
	}
}
