// Package advisor suggests and best-effort creates secondary indexes from
// column naming patterns.
//
// The heuristics are deliberately dumb: temporal-looking and identifier-
// looking columns are the ones ad-hoc analytical queries filter on. The
// suggestions are advisory; creation is isolated per index and a failure
// (commonly "already exists") never stops the remaining suggestions.
package advisor

import (
	"context"
	"fmt"
	"strings"
)

// temporalPatterns and identifierPatterns are matched as substrings of the
// lowercased column name.
var (
	temporalPatterns   = []string{"datetime", "timestamp", "date", "time", "created", "updated"}
	identifierPatterns = []string{"id", "key", "code"}
)

// Suggestion is one single-column index recommendation.
type Suggestion struct {
	Column string
	Reason string // "temporal" or "identifier"
	SQL    string
}

// Outcome records one attempted index creation.
type Outcome struct {
	Suggestion Suggestion
	Err        error // nil on success
}

// Report collects the outcomes of one Apply pass.
type Report struct {
	Outcomes []Outcome
}

// Created returns how many indexes were created successfully.
func (r Report) Created() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that errored.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Suggest returns one suggestion per column whose lowercased name contains a
// temporal or identifier pattern. A column named exactly "id" is skipped: it
// is assumed to be the primary key and already indexed. Pure and
// deterministic; output order follows column order.
func Suggest(table string, columns []string) []Suggestion {
	var out []Suggestion
	for _, col := range columns {
		lower := strings.ToLower(col)

		reason := ""
		switch {
		case matchesAny(lower, temporalPatterns):
			reason = "temporal"
		case lower != "id" && matchesAny(lower, identifierPatterns):
			reason = "identifier"
		default:
			continue
		}

		out = append(out, Suggestion{
			Column: col,
			Reason: reason,
			SQL:    fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s(%s);", table, lower, table, col),
		})
	}
	return out
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Execer is the single statement-execution method Apply needs. target.Target
// satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// IndexCreationError wraps one failed index creation. It never escalates to
// a run failure; it lives inside the Report for observability.
type IndexCreationError struct {
	Column string
	Err    error
}

func (e *IndexCreationError) Error() string {
	return fmt.Sprintf("create index on %s: %v", e.Column, e.Err)
}

func (e *IndexCreationError) Unwrap() error { return e.Err }

// Apply attempts every suggestion independently and reports each outcome.
// One failure does not short-circuit the rest.
func Apply(ctx context.Context, db Execer, suggestions []Suggestion) Report {
	var rep Report
	for _, s := range suggestions {
		var outcome Outcome
		outcome.Suggestion = s
		if err := db.Exec(ctx, s.SQL); err != nil {
			outcome.Err = &IndexCreationError{Column: s.Column, Err: err}
		}
		rep.Outcomes = append(rep.Outcomes, outcome)
	}
	return rep
}
