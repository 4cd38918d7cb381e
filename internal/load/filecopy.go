package load

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pqload/internal/source"
	"pqload/internal/target"
)

// fileCopyStrategy stages the relation as a headerless CSV in a temp file,
// then streams it through the target's native bulk-copy protocol. Slower than
// bulk but does not require the source engine to reach the target network.
type fileCopyStrategy struct{}

func (fileCopyStrategy) Name() string { return StrategyFileCopy }

func (s *fileCopyStrategy) Load(ctx context.Context, src source.Source, tgt target.Target, job Job, log Logger) (int64, error) {
	exporter, ok := src.(source.CSVExporter)
	if !ok {
		return 0, &UnsupportedTransferError{
			Strategy: s.Name(),
			Reason:   "source cannot export CSV",
		}
	}

	total, err := src.Count(ctx)
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}

	tmp, err := os.CreateTemp("", "pqload-*.csv")
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: fmt.Errorf("create temp file: %w", err)}
	}
	path := tmp.Name()
	// The export below writes through its own handle; ours only reserved the
	// name. Remove the staging file on every exit path, success included.
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()

	log.Printf("filecopy: exporting %d rows to %s", total, path)
	if err := exporter.ExportCSV(ctx, path, ',', '"'); err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: fmt.Errorf("export csv: %w", err)}
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: fmt.Errorf("open staged csv: %w", err)}
	}
	defer func() { _ = f.Close() }()

	log.Printf("filecopy: copying %s into %s", path, job.Table)
	n, err := tgt.CopyCSV(ctx, job.Table, f)
	if errors.Is(err, target.ErrCopyUnsupported) {
		return 0, &UnsupportedTransferError{
			Strategy: s.Name(),
			Reason:   tgt.Kind() + " target has no bulk-copy protocol",
		}
	}
	if err != nil {
		return 0, &LoadError{Strategy: s.Name(), Err: err}
	}
	if n != total {
		return n, &LoadError{
			Strategy: s.Name(),
			Err:      fmt.Errorf("copied %d rows, source reported %d", n, total),
		}
	}
	return n, nil
}
