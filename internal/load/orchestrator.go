package load

import (
	"context"
	"fmt"
	"time"

	"pqload/internal/advisor"
	"pqload/internal/metrics"
	"pqload/internal/schema"
	"pqload/internal/source"
	"pqload/internal/target"
	"pqload/internal/typemap"
)

// State is the orchestrator's position in a run. Transitions are strictly
// forward; any fatal error moves to StateFailed and stops the run.
type State int

const (
	StatePending State = iota
	StateSchemaIntrospected
	StateDDLApplied
	StateDataLoaded
	StateIndexesApplied
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSchemaIntrospected:
		return "schema_introspected"
	case StateDDLApplied:
		return "ddl_applied"
	case StateDataLoaded:
		return "data_loaded"
	case StateIndexesApplied:
		return "indexes_applied"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of one Run. On failure State is StateFailed and the
// other fields reflect how far the run got.
type Result struct {
	State      State
	RowsLoaded int64
	DDL        string
	Indexes    advisor.Report
}

// Orchestrator sequences one create-and-load run.
type Orchestrator struct {
	mapper *typemap.Mapper
	log    Logger
}

// NewOrchestrator builds an orchestrator with the default type mapper.
func NewOrchestrator(log Logger) *Orchestrator {
	return &Orchestrator{mapper: typemap.New(), log: log}
}

// Run executes the full pipeline against an already-open source and target.
//
// Index creation is the only non-fatal stage: a run that loaded every row but
// missed an index still ends in StateDone, with the failures reported in
// Result.Indexes.
func (o *Orchestrator) Run(ctx context.Context, src source.Source, tgt target.Target, job Job) (Result, error) {
	res := Result{State: StatePending}

	if err := job.Validate(); err != nil {
		res.State = StateFailed
		return res, err
	}
	strategy, err := ForName(job.Strategy)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	cols, err := step(job, "introspect", func() (schema.Table, error) {
		return src.Schema(ctx)
	})
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateSchemaIntrospected
	o.log.Printf("introspected %d columns from %s", len(cols), job.SourcePath)

	ddl, err := step(job, "ddl", func() (string, error) {
		return o.applyDDL(ctx, tgt, cols, src.System(), job)
	})
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateDDLApplied
	res.DDL = ddl

	rows, err := step(job, "load", func() (int64, error) {
		return strategy.Load(ctx, src, tgt, job, o.log)
	})
	res.RowsLoaded = rows
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateDataLoaded
	o.log.Printf("loaded %d rows into %s via %s", rows, job.Table, strategy.Name())

	if job.CreateIndexes {
		report, _ := step(job, "index", func() (advisor.Report, error) {
			return o.applyIndexes(ctx, tgt, cols, job), nil
		})
		res.Indexes = report
		res.State = StateIndexesApplied
		for _, oc := range report.Failed() {
			o.log.Printf("index on %s not created: %v", oc.Suggestion.Column, oc.Err)
		}
		o.log.Printf("created %d of %d suggested indexes", report.Created(), len(report.Outcomes))
	}

	res.State = StateDone
	return res, nil
}

// applyDDL builds and executes CREATE TABLE, honoring DropIfExists.
func (o *Orchestrator) applyDDL(ctx context.Context, tgt target.Target, cols schema.Table, sys typemap.System, job Job) (string, error) {
	exists, err := tgt.TableExists(ctx, job.Table)
	if err != nil {
		return "", fmt.Errorf("check table %s: %w", job.Table, err)
	}
	if exists {
		if !job.DropIfExists {
			return "", fmt.Errorf("table %s already exists and drop-if-exists is off", job.Table)
		}
		if err := tgt.DropTable(ctx, job.Table); err != nil {
			return "", fmt.Errorf("drop table %s: %w", job.Table, err)
		}
		o.log.Printf("dropped existing table %s", job.Table)
	}

	ddl, err := schema.BuildCreateTableSQL(cols, schema.Options{
		TableName:        job.Table,
		System:           sys,
		LowercaseColumns: job.LowercaseColumns,
	}, o.mapper)
	if err != nil {
		return "", err
	}
	if err := tgt.Exec(ctx, ddl); err != nil {
		return ddl, fmt.Errorf("apply ddl: %w", err)
	}
	return ddl, nil
}

// applyIndexes suggests and creates indexes against the live table.
//
// Column names come from the target catalog so suggestions match whatever
// case-folding the backend applied. A catalog read failure falls back to the
// introspected names; like index creation itself, it never fails the run.
func (o *Orchestrator) applyIndexes(ctx context.Context, tgt target.Target, cols schema.Table, job Job) advisor.Report {
	names, err := tgt.ColumnNames(ctx, job.Table)
	if err != nil || len(names) == 0 {
		o.log.Printf("column catalog unavailable for %s, using source names: %v", job.Table, err)
		names = cols.Names()
	}
	return advisor.Apply(ctx, tgt, advisor.Suggest(job.Table, names))
}

// step runs fn with duration and status metrics attached.
func step[T any](job Job, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordStep(job.Table, name, err, time.Since(start))
	return v, err
}
