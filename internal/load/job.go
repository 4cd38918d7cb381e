package load

import "fmt"

// Defaults applied by Job.Validate. The file-copy strategy is the default
// because it works against a stock postgres without the attach extension and
// still moves rows through a bulk protocol rather than batched inserts.
const (
	DefaultBatchSize = 10000
	DefaultStrategy  = StrategyFileCopy
)

// Job describes one end-to-end create-and-load run.
type Job struct {
	// SourcePath locates the columnar file to read.
	SourcePath string

	// DSN is the target database connection string.
	DSN string

	// Table is the destination table name, optionally schema-qualified.
	Table string

	// Strategy selects how rows move: bulk, filecopy or chunked.
	Strategy string

	// BatchSize is the rows-per-batch for the chunked strategy.
	// Ignored by the others.
	BatchSize int64

	// DropIfExists drops the destination table before applying DDL.
	// When false and the table already exists, the run fails.
	DropIfExists bool

	// CreateIndexes runs the index advisor after loading.
	CreateIndexes bool

	// LowercaseColumns folds destination column names to lower case.
	LowercaseColumns bool
}

// Validate fills defaults and rejects unusable jobs.
func (j *Job) Validate() error {
	if j.SourcePath == "" {
		return fmt.Errorf("job: source path is required")
	}
	if j.DSN == "" {
		return fmt.Errorf("job: target dsn is required")
	}
	if j.Table == "" {
		return fmt.Errorf("job: table name is required")
	}
	if j.Strategy == "" {
		j.Strategy = DefaultStrategy
	}
	if _, err := ForName(j.Strategy); err != nil {
		return err
	}
	if j.BatchSize == 0 {
		j.BatchSize = DefaultBatchSize
	}
	if j.BatchSize < 0 {
		return fmt.Errorf("job: batch size must be positive, got %d", j.BatchSize)
	}
	return nil
}
