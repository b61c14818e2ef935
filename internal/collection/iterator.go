package collection

import (
	"context"
	"iter"
)

// Iterator walks a List from head to tail, fetching elements in pages.
//
// It is fail-fast: once the list is mutated through the adapter that created
// it, other than by Iterator.Remove, the next call to Next fails with a
// ConcurrentModificationError. Changes made by other clients or adapter
// instances are not detected.
//
// An Iterator is not safe for concurrent use.
type Iterator[T any] struct {
	list     List[T]
	pageSize int
	expected int64

	buf    []T
	bufAt  int // list index of buf[0]
	pos    int // list index of the next element
	cur    T
	curIdx int // -1 when there is no current element
	done   bool
	err    error
}

func newIterator[T any](list List[T], pageSize int) *Iterator[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Iterator[T]{
		list:     list,
		pageSize: pageSize,
		expected: list.ModCount(),
		curIdx:   -1,
	}
}

// Next advances to the next element and reports whether there is one. After
// Next returns false, Err reports why iteration stopped.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if actual := it.list.ModCount(); actual != it.expected {
		return it.fail(&ConcurrentModificationError{Expected: it.expected, Actual: actual})
	}

	off := it.pos - it.bufAt
	if it.buf == nil || off < 0 || off >= len(it.buf) {
		page, err := it.list.Range(ctx, it.pos, it.pos+it.pageSize-1)
		if err != nil {
			return it.fail(err)
		}
		if len(page) == 0 {
			it.done = true
			it.curIdx = -1
			return false
		}
		it.buf = page
		it.bufAt = it.pos
		off = 0
	}

	it.cur = it.buf[off]
	it.curIdx = it.pos
	it.pos++
	return true
}

// Value returns the element produced by the last successful Next.
func (it *Iterator[T]) Value() T {
	return it.cur
}

// Index returns the list index of Value, or -1 when there is none.
func (it *Iterator[T]) Index() int {
	return it.curIdx
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Remove deletes the element last returned by Next from the list. Iteration
// continues with the element that followed it.
func (it *Iterator[T]) Remove(ctx context.Context) error {
	if it.curIdx < 0 {
		return ErrNoCurrentElement
	}
	if actual := it.list.ModCount(); actual != it.expected {
		return &ConcurrentModificationError{Expected: it.expected, Actual: actual}
	}
	if _, err := it.list.RemoveAt(ctx, it.curIdx); err != nil {
		return err
	}
	it.expected = it.list.ModCount()
	it.pos = it.curIdx
	it.curIdx = -1
	it.buf = nil
	return nil
}

// All adapts the iterator to a range-over-func sequence. A failure is yielded
// once as the final pair with the zero value.
func (it *Iterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for it.Next(ctx) {
			if !yield(it.cur, nil) {
				return
			}
		}
		if it.err != nil {
			var zero T
			yield(zero, it.err)
		}
	}
}

func (it *Iterator[T]) fail(err error) bool {
	it.err = err
	it.done = true
	it.curIdx = -1
	return false
}
