package load

import "fmt"

// LoadError reports a failure while moving rows. Fatal: a partial load ends
// the run in Failed regardless of how far it got.
type LoadError struct {
	Strategy string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load via %s: %v", e.Strategy, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UnsupportedTransferError reports that the requested strategy cannot run
// against this source/target pairing. Fatal; callers should rerun with a
// strategy both sides support.
type UnsupportedTransferError struct {
	Strategy string
	Reason   string
}

func (e *UnsupportedTransferError) Error() string {
	return fmt.Sprintf("strategy %s unsupported: %s", e.Strategy, e.Reason)
}

// CardinalityMismatchError reports a row whose width differs from the
// introspected schema. The table shape is wrong, so the run stops.
type CardinalityMismatchError struct {
	Expected int
	Got      int
}

func (e *CardinalityMismatchError) Error() string {
	return fmt.Sprintf("row has %d values, schema has %d columns", e.Got, e.Expected)
}
