// Package target abstracts the relational database rows are loaded into.
//
// Backends register themselves from init() under a kind string; New selects
// one by kind. The interface is intentionally minimal: exactly the
// operations the load pipeline performs, implemented by each backend in its
// own dialect.
package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// Config is the minimal configuration needed to open a target.
type Config struct {
	Kind string
	DSN  string
}

// ErrCopyUnsupported is returned by CopyCSV on backends without a native
// bulk-copy protocol. The file-copy strategy translates it into an
// unsupported-transfer failure.
var ErrCopyUnsupported = errors.New("target: bulk copy not supported by this backend")

// Target is a live connection to one relational database.
type Target interface {
	// Close releases the connection (pool). Call once at the end of a run.
	Close()

	// Exec runs a single DDL or index statement.
	Exec(ctx context.Context, sql string) error

	// DropTable drops table if it exists.
	DropTable(ctx context.Context, table string) error

	// TableExists reports whether table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// InsertBatch inserts rows into table with a parameterized positional
	// multi-row INSERT, atomically per call. Rows must be in DDL column order
	// and all the same width.
	InsertBatch(ctx context.Context, table string, rows [][]any) (int64, error)

	// CopyCSV streams headerless CSV into table using the backend's native
	// bulk protocol, returning the row count. Backends without one return
	// ErrCopyUnsupported.
	CopyCSV(ctx context.Context, table string, r io.Reader) (int64, error)

	// ColumnNames returns the live column catalog of table, in ordinal order.
	ColumnNames(ctx context.Context, table string) ([]string, error)

	// Kind returns the registered backend kind.
	Kind() string
}

// ConnectionError reports an unreachable or unauthenticated target. Fatal.
type ConnectionError struct {
	Kind string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s target: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type factory func(ctx context.Context, cfg Config) (Target, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register installs a backend factory under kind. Call from an init()
// function in the backend package. Double registration panics: backend
// selection must never be ambiguous.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("target: Register called with empty kind")
	}
	if f == nil {
		panic("target: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("target: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a target using the registered factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Target, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("target: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("target: unsupported kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// KindForDSN derives the backend kind from a URI-style connection string.
//
// Recognized schemes: postgres/postgresql, sqlite/file, sqlserver/mssql.
// A bare path is treated as a sqlite database file, which keeps local smoke
// tests a one-flag affair.
func KindForDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		if strings.ContainsAny(dsn, "/\\.") {
			return "sqlite", nil
		}
		return "", fmt.Errorf("target: cannot derive backend from dsn %q", dsn)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "file":
		return "sqlite", nil
	case "sqlserver", "mssql":
		return "mssql", nil
	default:
		return "", fmt.Errorf("target: unsupported dsn scheme %q", u.Scheme)
	}
}
