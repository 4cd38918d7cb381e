// Package metrics is a small, backend-agnostic abstraction for recording
// operational metrics from load runs.
//
// The global backend defaults to a no-op, so instrumentation calls are always
// safe even when no metrics system is configured. Concrete backends live in
// subpackages and register themselves via SetBackend; the rest of the
// codebase depends only on this interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface metric systems implement.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration/size style sample.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures one pipeline stage: latency plus a success/failure
// counter.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter("pqload_step_total", 1, lbls)
	backend.ObserveHistogram("pqload_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts rows moved by a strategy.
func RecordRows(job, strategy string, n int64) {
	backend.IncCounter("pqload_rows_total", float64(n), Labels{"job": job, "strategy": strategy})
}

// RecordBatch counts one committed batch.
func RecordBatch(job, strategy string) {
	backend.IncCounter("pqload_batches_total", 1, Labels{"job": job, "strategy": strategy})
}
