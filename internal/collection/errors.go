package collection

import (
	"errors"
	"fmt"
)

// Sentinel errors. Structured errors below match them through errors.Is.
var (
	// ErrOutOfRange is returned when an index is outside the valid range of
	// the operation: [0, size) for reads and removals, [0, size] for inserts.
	ErrOutOfRange = errors.New("index out of range")

	// ErrConcurrentModification is returned by an iterator when its list was
	// mutated through the same adapter after iteration started.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNoSuchElement is returned when popping from an empty list.
	ErrNoSuchElement = errors.New("no such element")

	// ErrNoCurrentElement is returned by Iterator.Remove when Next has not
	// produced an element since the last removal.
	ErrNoCurrentElement = errors.New("iterator has no current element")
)

// OutOfRangeError carries the rejected index and the size it was checked
// against.
type OutOfRangeError struct {
	// Op is the operation that rejected the index (e.g., "get", "insert").
	Op string

	// Index is the requested index.
	Index int

	// Size is the list size the index was checked against, or -1 if the
	// index was rejected before the size was read.
	Size int
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	if e.Size < 0 {
		return fmt.Sprintf("%s: index %d out of range", e.Op, e.Index)
	}
	return fmt.Sprintf("%s: index %d out of range for size %d", e.Op, e.Index, e.Size)
}

// Is makes errors.Is(err, ErrOutOfRange) true.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// ConcurrentModificationError reports the modification counts an iterator
// expected and found.
type ConcurrentModificationError struct {
	Expected int64
	Actual   int64
}

// Error implements the error interface.
func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification: expected mod count %d, found %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrConcurrentModification) true.
func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// IsOutOfRange returns true if err is or wraps an out-of-range failure.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

// IsConcurrentModification returns true if err is or wraps a concurrent
// modification failure.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
