package load

import (
	"context"
	"strings"

	"pqload/internal/source"
	"pqload/internal/target"
)

// bulkStrategy hands the whole transfer to the source engine: it attaches to
// the target database and runs a single INSERT ... SELECT. No rows cross this
// process, which makes it the fastest option when it applies.
type bulkStrategy struct{}

func (bulkStrategy) Name() string { return StrategyBulk }

func (s *bulkStrategy) Load(ctx context.Context, src source.Source, tgt target.Target, job Job, log Logger) (int64, error) {
	attacher, ok := src.(source.AttachInserter)
	if !ok {
		return 0, &UnsupportedTransferError{
			Strategy: s.Name(),
			Reason:   "source engine cannot attach to external databases",
		}
	}
	if tgt.Kind() != "postgres" {
		return 0, &UnsupportedTransferError{
			Strategy: s.Name(),
			Reason:   "only postgres targets can be attached, got " + tgt.Kind(),
		}
	}
	// The attach extension resolves the DSN itself and only understands the
	// postgresql:// spelling. The shorter postgres:// alias is rewritten
	// rather than rejected.
	dsn := job.DSN
	if strings.HasPrefix(dsn, "postgres://") {
		dsn = "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
	}
	if !strings.HasPrefix(dsn, "postgresql://") {
		return 0, &UnsupportedTransferError{
			Strategy: s.Name(),
			Reason:   "bulk transfer needs a postgresql:// dsn",
		}
	}

	total, err := src.Count(ctx)
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}

	log.Printf("bulk: attaching target and inserting %d rows into %s", total, job.Table)
	if err := attacher.AttachInsert(ctx, dsn, job.Table); err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}
	return total, nil
}
