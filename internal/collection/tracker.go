package collection

import "sync/atomic"

// Tracker counts confirmed mutations made through one adapter instance.
//
// Iterators snapshot Count at creation and fail fast when it moves. The count
// is local: it says nothing about writes by other adapters or processes on
// the same key.
//
// The zero value is ready to use. Thread-safety: Tracker uses atomic
// operations, so sharing an adapter between goroutines cannot corrupt it.
type Tracker struct {
	count atomic.Int64
}

// Register records one confirmed mutation and returns the new count.
func (t *Tracker) Register() int64 {
	return t.count.Add(1)
}

// Count returns the number of mutations registered so far.
func (t *Tracker) Count() int64 {
	return t.count.Load()
}
