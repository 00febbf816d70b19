package store

import (
	"fmt"
	"strings"
)

// ValidationError reports why a candidate experience was rejected.
// Every violation is included so the submitter can fix them all in one pass.
type ValidationError struct {
	Violations   []string
	Warnings     []string
	QualityScore float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("experience rejected: %s", strings.Join(e.Violations, "; "))
}

// Itemized returns one line per violation for user-facing display.
func (e *ValidationError) Itemized() []string {
	return append([]string(nil), e.Violations...)
}

// CapacityExceededError is returned when the store is at its record ceiling.
type CapacityExceededError struct {
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("experience store at capacity (%d records)", e.Limit)
}

// PersistenceError wraps a failure to write the experience file. When this
// is returned the in-memory state has been rolled back and the previous
// on-disk document is intact.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CorruptDatabaseError marks an experience file that could not be parsed.
// The store recovers from this internally; the error surfaces only in logs
// and in recovery diagnostics.
type CorruptDatabaseError struct {
	Path string
	Err  error
}

func (e *CorruptDatabaseError) Error() string {
	return fmt.Sprintf("experience file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptDatabaseError) Unwrap() error {
	return e.Err
}
