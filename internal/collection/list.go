package collection

import (
	"context"
	"iter"
)

// List is an index-addressable ordered collection. Indexes are 0-based from
// the head.
//
// Preconditions and failures shared by all implementations:
//   - reads and removals require 0 <= index < Len, inserts 0 <= index <= Len,
//     otherwise the error matches ErrOutOfRange and nothing is changed
//   - a mutating call that returns nil has been applied exactly once and
//     increments ModCount exactly once; a failing call leaves ModCount alone
//   - optimistic operations (Set, RemoveAt, Sort with a comparator) may fail
//     with an error matching txn.ErrWatchTimeout under sustained contention
type List[T any] interface {
	// Len returns the current size. It is never cached.
	Len(ctx context.Context) (int, error)
	IsEmpty(ctx context.Context) (bool, error)

	Get(ctx context.Context, index int) (T, error)

	// Set replaces the element at index atomically and returns the element it
	// replaced.
	Set(ctx context.Context, index int, v T) (T, error)

	Add(ctx context.Context, v T) error
	AddFirst(ctx context.Context, v T) error
	AddLast(ctx context.Context, v T) error

	// AddAll appends values in order. It reports whether anything was added.
	AddAll(ctx context.Context, values ...T) (bool, error)

	Insert(ctx context.Context, index int, v T) error

	// InsertAll splices values in at index, preserving their order. It
	// reports whether anything was added.
	InsertAll(ctx context.Context, index int, values ...T) (bool, error)

	// RemoveAt removes exactly the element at index, even when equal values
	// occur elsewhere, and returns it.
	RemoveAt(ctx context.Context, index int) (T, error)
	RemoveFirst(ctx context.Context) (T, error)
	RemoveLast(ctx context.Context) (T, error)

	// Remove deletes the first element equal to v and reports whether one
	// was found.
	Remove(ctx context.Context, v T) (bool, error)

	// RemoveAll deletes every element equal to any of values and returns how
	// many were deleted.
	RemoveAll(ctx context.Context, values ...T) (int, error)

	// IndexOf and LastIndexOf return -1 when v is absent.
	IndexOf(ctx context.Context, v T) (int, error)
	LastIndexOf(ctx context.Context, v T) (int, error)
	Contains(ctx context.Context, v T) (bool, error)
	ContainsAll(ctx context.Context, values ...T) (bool, error)

	// Clear removes every element. Clearing an empty list is not a
	// modification.
	Clear(ctx context.Context) error

	// Sort orders the list. A nil cmp uses the store's native lexicographic
	// order; otherwise elements are sorted stably by cmp.
	Sort(ctx context.Context, cmp func(a, b T) int) error

	// Slice returns a snapshot of all elements.
	Slice(ctx context.Context) ([]T, error)

	// Range returns elements start..stop inclusive; negative offsets count
	// from the tail.
	Range(ctx context.Context, start, stop int) ([]T, error)

	// Iterator returns a fail-fast iterator positioned before the head.
	Iterator() *Iterator[T]

	// All yields every element, then a non-nil error if iteration failed.
	All(ctx context.Context) iter.Seq2[T, error]

	// ModCount returns the number of confirmed mutations made through this
	// instance.
	ModCount() int64
}

// Equal reports whether a and b hold the same elements in the same order.
func Equal[T comparable](ctx context.Context, a, b List[T]) (bool, error) {
	left, err := a.Slice(ctx)
	if err != nil {
		return false, err
	}
	right, err := b.Slice(ctx)
	if err != nil {
		return false, err
	}
	if len(left) != len(right) {
		return false, nil
	}
	for i := range left {
		if left[i] != right[i] {
			return false, nil
		}
	}
	return true, nil
}
