package load

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/source/frame"
	"pqload/internal/target"
)

type nopLogger struct{}

func (nopLogger) Printf(format string, v ...any) {}

// fakeTarget records every call the pipeline makes.
type fakeTarget struct {
	kind        string
	exists      bool
	existsErr   error
	columns     []string
	columnsErr  error
	copyErr     error
	insertErr   error
	execErr     error
	execSQL     []string
	dropped     []string
	batches     [][][]any
	copiedLines int64
}

func (f *fakeTarget) Close() {}

func (f *fakeTarget) Exec(ctx context.Context, sql string) error {
	if f.execErr != nil {
		return f.execErr
	}
	f.execSQL = append(f.execSQL, sql)
	return nil
}

func (f *fakeTarget) DropTable(ctx context.Context, table string) error {
	f.dropped = append(f.dropped, table)
	f.exists = false
	return nil
}

func (f *fakeTarget) TableExists(ctx context.Context, table string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeTarget) InsertBatch(ctx context.Context, table string, rows [][]any) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.batches = append(f.batches, rows)
	return int64(len(rows)), nil
}

func (f *fakeTarget) CopyCSV(ctx context.Context, table string, r io.Reader) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var n int64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		n++
	}
	f.copiedLines = n
	return n, sc.Err()
}

func (f *fakeTarget) ColumnNames(ctx context.Context, table string) ([]string, error) {
	return f.columns, f.columnsErr
}

func (f *fakeTarget) Kind() string {
	if f.kind == "" {
		return "postgres"
	}
	return f.kind
}

// raggedSource wraps a frame and injects a short row into one page.
type raggedSource struct {
	*frame.Frame
	badOffset int64
}

func (r *raggedSource) Page(ctx context.Context, offset, limit int64) ([][]any, error) {
	rows, err := r.Frame.Page(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if offset == r.badOffset && len(rows) > 0 {
		rows[0] = rows[0][:1]
	}
	return rows, nil
}

// csvFrame adds CSV export on top of a frame, remembering where it wrote.
type csvFrame struct {
	*frame.Frame
	exportErr  error
	exportPath string
}

func (c *csvFrame) ExportCSV(ctx context.Context, path string, delimiter, quote rune) error {
	c.exportPath = path
	if c.exportErr != nil {
		return c.exportErr
	}
	var b strings.Builder
	total, _ := c.Count(ctx)
	rows, err := c.Page(ctx, 0, total)
	if err != nil {
		return err
	}
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				b.WriteRune(delimiter)
			}
			fmt.Fprintf(&b, "%v", v)
		}
		b.WriteByte('\n')
	}
	return writeFile(path, b.String())
}

func newTestFrame(t *testing.T, n int) *frame.Frame {
	t.Helper()
	cols := schema.Table{
		{Name: "trip_id", SourceType: "INT64"},
		{Name: "fare", SourceType: "FLOAT64"},
	}
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), float64(i) * 1.5}
	}
	f, err := frame.New(cols, rows)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestChunkedBatching(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 25000)
	tgt := &fakeTarget{}
	job := Job{SourcePath: "trips.parquet", DSN: "postgres://x", Table: "trips", Strategy: StrategyChunked, BatchSize: 10000}

	s, err := ForName(StrategyChunked)
	if err != nil {
		t.Fatalf("ForName: %v", err)
	}
	n, err := s.Load(context.Background(), src, tgt, job, nopLogger{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 25000 {
		t.Fatalf("loaded=%d, want 25000", n)
	}
	if len(tgt.batches) != 3 {
		t.Fatalf("batches=%d, want 3", len(tgt.batches))
	}
	for i, want := range []int{10000, 10000, 5000} {
		if got := len(tgt.batches[i]); got != want {
			t.Fatalf("batch %d has %d rows, want %d", i, got, want)
		}
	}
}

func TestChunkedExactMultipleStopsCleanly(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 20000)
	tgt := &fakeTarget{}
	job := Job{SourcePath: "p", DSN: "d", Table: "t", Strategy: StrategyChunked, BatchSize: 10000}

	s, _ := ForName(StrategyChunked)
	n, err := s.Load(context.Background(), src, tgt, job, nopLogger{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 20000 || len(tgt.batches) != 2 {
		t.Fatalf("loaded=%d batches=%d, want 20000/2", n, len(tgt.batches))
	}
}

func TestChunkedCardinalityMismatch(t *testing.T) {
	t.Parallel()

	src := &raggedSource{Frame: newTestFrame(t, 30), badOffset: 10}
	tgt := &fakeTarget{}
	job := Job{SourcePath: "p", DSN: "d", Table: "t", Strategy: StrategyChunked, BatchSize: 10}

	s, _ := ForName(StrategyChunked)
	n, err := s.Load(context.Background(), src, tgt, job, nopLogger{})

	var cm *CardinalityMismatchError
	if !errors.As(err, &cm) {
		t.Fatalf("err=%v, want CardinalityMismatchError", err)
	}
	if cm.Expected != 2 || cm.Got != 1 {
		t.Fatalf("mismatch=(%d,%d), want (2,1)", cm.Expected, cm.Got)
	}
	// Only the first batch landed; the malformed one was never sent.
	if n != 10 || len(tgt.batches) != 1 {
		t.Fatalf("loaded=%d batches=%d, want 10/1", n, len(tgt.batches))
	}
}

func TestBulkRequiresAttachCapableSource(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 5)
	tgt := &fakeTarget{}
	job := Job{SourcePath: "p", DSN: "postgresql://host/db", Table: "t", Strategy: StrategyBulk}

	s, _ := ForName(StrategyBulk)
	_, err := s.Load(context.Background(), src, tgt, job, nopLogger{})

	var ut *UnsupportedTransferError
	if !errors.As(err, &ut) {
		t.Fatalf("err=%v, want UnsupportedTransferError", err)
	}
	if ut.Strategy != StrategyBulk {
		t.Fatalf("Strategy=%q, want %q", ut.Strategy, StrategyBulk)
	}
}

type attachFrame struct {
	*frame.Frame
	dsn   string
	table string
}

func (a *attachFrame) AttachInsert(ctx context.Context, dsn, table string) error {
	a.dsn, a.table = dsn, table
	return nil
}

func TestBulkDSNHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dsn     string
		wantDSN string
		wantErr bool
	}{
		{name: "postgresql_passes_through", dsn: "postgresql://h/db", wantDSN: "postgresql://h/db"},
		{name: "postgres_alias_rewritten", dsn: "postgres://h/db", wantDSN: "postgresql://h/db"},
		{name: "other_scheme_rejected", dsn: "mysql://h/db", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src := &attachFrame{Frame: newTestFrame(t, 7)}
			tgt := &fakeTarget{}
			job := Job{SourcePath: "p", DSN: tc.dsn, Table: "trips", Strategy: StrategyBulk}

			s, _ := ForName(StrategyBulk)
			n, err := s.Load(context.Background(), src, tgt, job, nopLogger{})

			if tc.wantErr {
				var ut *UnsupportedTransferError
				if !errors.As(err, &ut) {
					t.Fatalf("err=%v, want UnsupportedTransferError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if n != 7 {
				t.Fatalf("loaded=%d, want 7", n)
			}
			if src.dsn != tc.wantDSN || src.table != "trips" {
				t.Fatalf("attach got (%q,%q), want (%q,%q)", src.dsn, src.table, tc.wantDSN, "trips")
			}
		})
	}
}

func TestBulkRejectsNonPostgresTarget(t *testing.T) {
	t.Parallel()

	src := &attachFrame{Frame: newTestFrame(t, 3)}
	tgt := &fakeTarget{kind: "sqlite"}
	job := Job{SourcePath: "p", DSN: "postgresql://h/db", Table: "t", Strategy: StrategyBulk}

	s, _ := ForName(StrategyBulk)
	_, err := s.Load(context.Background(), src, tgt, job, nopLogger{})

	var ut *UnsupportedTransferError
	if !errors.As(err, &ut) {
		t.Fatalf("err=%v, want UnsupportedTransferError", err)
	}
}

func TestFileCopyRoundTrip(t *testing.T) {
	t.Parallel()

	src := &csvFrame{Frame: newTestFrame(t, 12)}
	tgt := &fakeTarget{}
	job := Job{SourcePath: "p", DSN: "d", Table: "trips", Strategy: StrategyFileCopy}

	s, _ := ForName(StrategyFileCopy)
	n, err := s.Load(context.Background(), src, tgt, job, nopLogger{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 12 || tgt.copiedLines != 12 {
		t.Fatalf("loaded=%d copied=%d, want 12/12", n, tgt.copiedLines)
	}
}

// Staging files must never outlive the strategy, whichever way it exits.
func TestFileCopyRemovesStagingFile(t *testing.T) {
	t.Parallel()

	assertGone := func(t *testing.T, path string) {
		t.Helper()
		if path == "" {
			t.Fatalf("export was never called")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("staging file %s still exists (stat err=%v)", path, err)
		}
	}

	t.Run("after_success", func(t *testing.T) {
		t.Parallel()

		src := &csvFrame{Frame: newTestFrame(t, 5)}
		s, _ := ForName(StrategyFileCopy)
		if _, err := s.Load(context.Background(), src, &fakeTarget{}, Job{Table: "t"}, nopLogger{}); err != nil {
			t.Fatalf("Load: %v", err)
		}
		assertGone(t, src.exportPath)
	})

	t.Run("after_copy_failure", func(t *testing.T) {
		t.Parallel()

		src := &csvFrame{Frame: newTestFrame(t, 5)}
		tgt := &fakeTarget{copyErr: errors.New("connection reset")}
		s, _ := ForName(StrategyFileCopy)
		if _, err := s.Load(context.Background(), src, tgt, Job{Table: "t"}, nopLogger{}); err == nil {
			t.Fatalf("Load succeeded despite copy failure")
		}
		assertGone(t, src.exportPath)
	})

	t.Run("after_export_failure", func(t *testing.T) {
		t.Parallel()

		src := &csvFrame{Frame: newTestFrame(t, 5), exportErr: errors.New("disk full")}
		s, _ := ForName(StrategyFileCopy)
		if _, err := s.Load(context.Background(), src, &fakeTarget{}, Job{Table: "t"}, nopLogger{}); err == nil {
			t.Fatalf("Load succeeded despite export failure")
		}
		assertGone(t, src.exportPath)
	})
}

func TestFileCopyUnsupportedPaths(t *testing.T) {
	t.Parallel()

	t.Run("source_cannot_export", func(t *testing.T) {
		t.Parallel()

		src := newTestFrame(t, 3)
		s, _ := ForName(StrategyFileCopy)
		_, err := s.Load(context.Background(), src, &fakeTarget{}, Job{Table: "t"}, nopLogger{})

		var ut *UnsupportedTransferError
		if !errors.As(err, &ut) {
			t.Fatalf("err=%v, want UnsupportedTransferError", err)
		}
	})

	t.Run("target_has_no_copy", func(t *testing.T) {
		t.Parallel()

		src := &csvFrame{Frame: newTestFrame(t, 3)}
		tgt := &fakeTarget{kind: "sqlite", copyErr: target.ErrCopyUnsupported}
		s, _ := ForName(StrategyFileCopy)
		_, err := s.Load(context.Background(), src, tgt, Job{Table: "t"}, nopLogger{})

		var ut *UnsupportedTransferError
		if !errors.As(err, &ut) {
			t.Fatalf("err=%v, want UnsupportedTransferError", err)
		}
	})
}

func TestJobValidate(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		j := Job{SourcePath: "p", DSN: "d", Table: "t"}
		if err := j.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if j.Strategy != StrategyFileCopy || j.BatchSize != DefaultBatchSize {
			t.Fatalf("defaults not applied: %+v", j)
		}
	})

	tests := []struct {
		name string
		job  Job
	}{
		{name: "missing_source", job: Job{DSN: "d", Table: "t"}},
		{name: "missing_dsn", job: Job{SourcePath: "p", Table: "t"}},
		{name: "missing_table", job: Job{SourcePath: "p", DSN: "d"}},
		{name: "bad_strategy", job: Job{SourcePath: "p", DSN: "d", Table: "t", Strategy: "teleport"}},
		{name: "negative_batch", job: Job{SourcePath: "p", DSN: "d", Table: "t", BatchSize: -1}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			j := tc.job
			if err := j.Validate(); err == nil {
				t.Fatalf("Validate accepted %+v", tc.job)
			}
		})
	}
}

func TestOrchestratorHappyPath(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 25)
	tgt := &fakeTarget{columns: []string{"trip_id", "fare"}}
	job := Job{
		SourcePath:    "trips.parquet",
		DSN:           "postgres://h/db",
		Table:         "trips",
		Strategy:      StrategyChunked,
		BatchSize:     10,
		CreateIndexes: true,
	}

	o := NewOrchestrator(nopLogger{})
	res, err := o.Run(context.Background(), src, tgt, job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("State=%s, want done", res.State)
	}
	if res.RowsLoaded != 25 {
		t.Fatalf("RowsLoaded=%d, want 25", res.RowsLoaded)
	}
	if !strings.HasPrefix(res.DDL, "CREATE TABLE trips (") {
		t.Fatalf("DDL=%q", res.DDL)
	}
	// trip_id matches the identifier patterns; fare matches nothing.
	if res.Indexes.Created() != 1 {
		t.Fatalf("indexes created=%d, want 1", res.Indexes.Created())
	}
	// DDL and the index statement both ran through Exec.
	if len(tgt.execSQL) != 2 {
		t.Fatalf("exec calls=%d, want 2: %v", len(tgt.execSQL), tgt.execSQL)
	}
}

func TestOrchestratorExistingTableWithoutDrop(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 5)
	tgt := &fakeTarget{exists: true}
	job := Job{SourcePath: "p", DSN: "d", Table: "trips", Strategy: StrategyChunked}

	o := NewOrchestrator(nopLogger{})
	res, err := o.Run(context.Background(), src, tgt, job)
	if err == nil {
		t.Fatalf("Run succeeded against existing table without drop")
	}
	if res.State != StateFailed {
		t.Fatalf("State=%s, want failed", res.State)
	}
	// Load never ran.
	if len(tgt.batches) != 0 {
		t.Fatalf("batches=%d, want 0", len(tgt.batches))
	}
}

func TestOrchestratorDropIfExists(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 5)
	tgt := &fakeTarget{exists: true, columns: []string{"trip_id", "fare"}}
	job := Job{SourcePath: "p", DSN: "d", Table: "trips", Strategy: StrategyChunked, DropIfExists: true}

	o := NewOrchestrator(nopLogger{})
	res, err := o.Run(context.Background(), src, tgt, job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("State=%s, want done", res.State)
	}
	if len(tgt.dropped) != 1 || tgt.dropped[0] != "trips" {
		t.Fatalf("dropped=%v, want [trips]", tgt.dropped)
	}
}

func TestOrchestratorIndexFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	src := newTestFrame(t, 5)
	// ColumnNames fails, so the advisor falls back to the source schema.
	tgt := &fakeTarget{columnsErr: errors.New("catalog offline")}
	job := Job{SourcePath: "p", DSN: "d", Table: "trips", Strategy: StrategyChunked, CreateIndexes: true}

	o := NewOrchestrator(nopLogger{})
	res, err := o.Run(context.Background(), src, tgt, job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("State=%s, want done", res.State)
	}
	if res.Indexes.Created() != 1 {
		t.Fatalf("indexes created=%d, want 1", res.Indexes.Created())
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	want := map[State]string{
		StatePending:            "pending",
		StateSchemaIntrospected: "schema_introspected",
		StateDDLApplied:         "ddl_applied",
		StateDataLoaded:         "data_loaded",
		StateIndexesApplied:     "indexes_applied",
		StateDone:               "done",
		StateFailed:             "failed",
	}
	for st, s := range want {
		if st.String() != s {
			t.Fatalf("State(%d).String()=%q, want %q", int(st), st.String(), s)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

var _ source.Source = (*frame.Frame)(nil)
