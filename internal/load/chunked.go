package load

import (
	"context"

	"pqload/internal/metrics"
	"pqload/internal/source"
	"pqload/internal/target"
)

// chunkedStrategy pages rows out of the source and writes them with
// parameterized multi-row inserts, one transaction per batch. The most
// portable strategy: any Source and any registered Target will do.
type chunkedStrategy struct{}

func (chunkedStrategy) Name() string { return StrategyChunked }

func (s *chunkedStrategy) Load(ctx context.Context, src source.Source, tgt target.Target, job Job, log Logger) (int64, error) {
	cols, err := src.Schema(ctx)
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}
	width := len(cols)

	total, err := src.Count(ctx)
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}

	var loaded int64
	for batch := 0; ; batch++ {
		offset := int64(batch) * job.BatchSize
		if offset >= total {
			break
		}

		rows, err := src.Page(ctx, offset, job.BatchSize)
		if err != nil {
			return loaded, &LoadError{Strategy: s.Name(), Err: err}
		}
		if len(rows) == 0 {
			break
		}
		// Width is checked before anything is sent so a malformed page fails
		// the run without a half-written batch.
		for _, row := range rows {
			if len(row) != width {
				return loaded, &CardinalityMismatchError{Expected: width, Got: len(row)}
			}
		}

		n, err := tgt.InsertBatch(ctx, job.Table, rows)
		if err != nil {
			return loaded, &LoadError{Strategy: s.Name(), Err: err}
		}
		loaded += n

		metrics.RecordBatch(job.Table, s.Name())
		metrics.RecordRows(job.Table, s.Name(), n)
		log.Printf("chunked: batch %d done, %d/%d rows", batch+1, loaded, total)
	}

	return loaded, nil
}
