package collection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/redislist/internal/codec"
	"github.com/roach88/redislist/internal/rebalance"
	"github.com/roach88/redislist/internal/telemetry"
	"github.com/roach88/redislist/internal/txn"
)

// sentinelPrefix starts every sentinel value. The NUL byte keeps sentinels
// out of the way of ordinary text elements.
const sentinelPrefix = "\x00redislist:sentinel:"

// RedisList is a List stored in one Redis list key.
//
// Each call blocks on its round trips; an instance keeps no element cache and
// re-reads the length whenever a decision depends on it.
type RedisList[T any] struct {
	client   redis.UniversalClient
	key      string
	codec    codec.Codec[T]
	settings *Settings
	inserter *rebalance.Inserter
	tracker  Tracker
}

var _ List[string] = (*RedisList[string])(nil)

// NewRedisList binds a list adapter to key.
func NewRedisList[T any](client redis.UniversalClient, key string, c codec.Codec[T], opts ...Option) *RedisList[T] {
	s := NewSettings(client, opts...)
	return &RedisList[T]{
		client:   client,
		key:      key,
		codec:    c,
		settings: s,
		inserter: rebalance.NewInserter(client, s.Tokens, s.Logger, s.Metrics),
	}
}

// NewStringList binds a list of raw strings to key.
func NewStringList(client redis.UniversalClient, key string, opts ...Option) *RedisList[string] {
	return NewRedisList[string](client, key, codec.String{}, opts...)
}

// Key returns the Redis key backing the list.
func (l *RedisList[T]) Key() string {
	return l.key
}

// ModCount returns the number of confirmed mutations made through l.
func (l *RedisList[T]) ModCount() int64 {
	return l.tracker.Count()
}

func (l *RedisList[T]) Len(ctx context.Context) (n int, err error) {
	ctx, done := l.begin(ctx, "len")
	defer func() { done(err) }()
	return l.size(ctx)
}

func (l *RedisList[T]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := l.Len(ctx)
	return n == 0, err
}

func (l *RedisList[T]) Get(ctx context.Context, index int) (v T, err error) {
	ctx, done := l.begin(ctx, "get", telemetry.IndexAttr(int64(index)))
	defer func() { done(err) }()

	if index < 0 {
		return v, &OutOfRangeError{Op: "get", Index: index, Size: -1}
	}
	size, err := l.size(ctx)
	if err != nil {
		return v, err
	}
	if index >= size {
		return v, &OutOfRangeError{Op: "get", Index: index, Size: size}
	}

	raw, err := l.client.LIndex(ctx, l.key, int64(index)).Result()
	if errors.Is(err, redis.Nil) {
		// Shrunk by another client since the length was read.
		return v, &OutOfRangeError{Op: "get", Index: index, Size: size}
	}
	if err != nil {
		return v, fmt.Errorf("get %q[%d]: %w", l.key, index, err)
	}
	return l.decode(raw)
}

func (l *RedisList[T]) Set(ctx context.Context, index int, v T) (prev T, err error) {
	ctx, done := l.begin(ctx, "set", telemetry.IndexAttr(int64(index)))
	defer func() { done(err) }()

	if index < 0 {
		return prev, &OutOfRangeError{Op: "set", Index: index, Size: -1}
	}
	raw, err := l.codec.Encode(v)
	if err != nil {
		return prev, fmt.Errorf("encode element: %w", err)
	}

	old, err := txn.Run(ctx, l.settings.Txns, l.key,
		func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (txn.Result[string], error) {
			size, err := tx.LLen(ctx, l.key).Result()
			if err != nil {
				return nil, err
			}
			if int64(index) >= size {
				return nil, &OutOfRangeError{Op: "set", Index: index, Size: int(size)}
			}
			before := pipe.LIndex(ctx, l.key, int64(index))
			pipe.LSet(ctx, l.key, int64(index), raw)
			return before.Result, nil
		},
		func() { l.notify(ctx, "set", index, raw) },
	)
	if err != nil {
		return prev, err
	}
	return l.decode(old)
}

func (l *RedisList[T]) Add(ctx context.Context, v T) error {
	return l.push(ctx, "add", false, v)
}

func (l *RedisList[T]) AddLast(ctx context.Context, v T) error {
	return l.push(ctx, "add_last", false, v)
}

func (l *RedisList[T]) AddFirst(ctx context.Context, v T) error {
	return l.push(ctx, "add_first", true, v)
}

func (l *RedisList[T]) AddAll(ctx context.Context, values ...T) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	return true, l.push(ctx, "add_all", false, values...)
}

func (l *RedisList[T]) Insert(ctx context.Context, index int, v T) error {
	_, err := l.InsertAll(ctx, index, v)
	return err
}

// InsertAll splices values in at index.
//
// Index 0 and index == Len are served by a single head or tail push. Any
// other position is handled by the server-side rebalance script, which also
// performs the authoritative bounds check for indexes past the end.
func (l *RedisList[T]) InsertAll(ctx context.Context, index int, values ...T) (added bool, err error) {
	ctx, done := l.begin(ctx, "insert_all",
		telemetry.IndexAttr(int64(index)),
		attribute.Int("redislist.values", len(values)),
	)
	defer func() { done(err) }()

	if index < 0 {
		return false, &OutOfRangeError{Op: "insert", Index: index, Size: -1}
	}
	raw, err := codec.EncodeAll(l.codec, values)
	if err != nil {
		return false, err
	}
	size, err := l.size(ctx)
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		if index > size {
			return false, &OutOfRangeError{Op: "insert", Index: index, Size: size}
		}
		return false, nil
	}

	switch {
	case index == 0:
		reversed := slices.Clone(raw)
		slices.Reverse(reversed)
		if err := l.client.LPush(ctx, l.key, toArgs(reversed)...).Err(); err != nil {
			return false, fmt.Errorf("insert %q[0]: %w", l.key, err)
		}
	case index == size:
		if err := l.client.RPush(ctx, l.key, toArgs(raw)...).Err(); err != nil {
			return false, fmt.Errorf("insert %q[%d]: %w", l.key, index, err)
		}
	default:
		status, err := l.inserter.Insert(ctx, l.key, int64(index)+1, raw)
		if err != nil {
			return false, err
		}
		if status == rebalance.StatusOutOfBounds {
			return false, &OutOfRangeError{Op: "insert", Index: index, Size: size}
		}
	}

	l.notify(ctx, "insert_all", index, raw...)
	return true, nil
}

// RemoveAt removes the element at index inside one optimistic transaction.
//
// The ends are popped directly. An interior slot is overwritten with a fresh
// sentinel which is then removed by value, scanning from whichever end is
// closer, so duplicates of the target elsewhere in the list are never touched.
// The overwrite and the removal commit together or not at all.
func (l *RedisList[T]) RemoveAt(ctx context.Context, index int) (v T, err error) {
	ctx, done := l.begin(ctx, "remove_at", telemetry.IndexAttr(int64(index)))
	defer func() { done(err) }()

	if index < 0 {
		return v, &OutOfRangeError{Op: "remove", Index: index, Size: -1}
	}
	sentinel := sentinelPrefix + l.settings.Tokens.Generate()

	removed, err := txn.Run(ctx, l.settings.Txns, l.key,
		func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (txn.Result[string], error) {
			size, err := tx.LLen(ctx, l.key).Result()
			if err != nil {
				return nil, err
			}
			idx := int64(index)
			if idx >= size {
				return nil, &OutOfRangeError{Op: "remove", Index: index, Size: int(size)}
			}

			switch idx {
			case 0:
				return pipe.LPop(ctx, l.key).Result, nil
			case size - 1:
				return pipe.RPop(ctx, l.key).Result, nil
			}

			current, err := tx.LIndex(ctx, l.key, idx).Result()
			if err != nil {
				return nil, err
			}
			count := int64(1)
			if idx > size/2 {
				count = -1
			}
			pipe.LSet(ctx, l.key, idx, sentinel)
			pipe.LRem(ctx, l.key, count, sentinel)
			return txn.Value(current), nil
		},
		func() { l.notify(ctx, "remove_at", index) },
	)
	if err != nil {
		return v, err
	}
	return l.decode(removed)
}

func (l *RedisList[T]) RemoveFirst(ctx context.Context) (T, error) {
	return l.pop(ctx, "remove_first", true)
}

func (l *RedisList[T]) RemoveLast(ctx context.Context) (T, error) {
	return l.pop(ctx, "remove_last", false)
}

func (l *RedisList[T]) Remove(ctx context.Context, v T) (found bool, err error) {
	ctx, done := l.begin(ctx, "remove")
	defer func() { done(err) }()

	raw, err := l.codec.Encode(v)
	if err != nil {
		return false, fmt.Errorf("encode element: %w", err)
	}
	n, err := l.client.LRem(ctx, l.key, 1, raw).Result()
	if err != nil {
		return false, fmt.Errorf("remove from %q: %w", l.key, err)
	}
	if n == 0 {
		return false, nil
	}
	l.notify(ctx, "remove", -1, raw)
	return true, nil
}

func (l *RedisList[T]) RemoveAll(ctx context.Context, values ...T) (removed int, err error) {
	ctx, done := l.begin(ctx, "remove_all")
	defer func() { done(err) }()

	raw, err := codec.EncodeAll(l.codec, values)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	cmds := make([]*redis.IntCmd, len(raw))
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range raw {
			cmds[i] = pipe.LRem(ctx, l.key, 0, r)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove all from %q: %w", l.key, err)
	}
	for _, cmd := range cmds {
		removed += int(cmd.Val())
	}
	if removed > 0 {
		l.notify(ctx, "remove_all", -1, raw...)
	}
	return removed, nil
}

func (l *RedisList[T]) IndexOf(ctx context.Context, v T) (int, error) {
	return l.position(ctx, "index_of", v, redis.LPosArgs{})
}

// LastIndexOf asks the server for the rightmost match (RANK -1) instead of
// scanning client-side.
func (l *RedisList[T]) LastIndexOf(ctx context.Context, v T) (int, error) {
	return l.position(ctx, "last_index_of", v, redis.LPosArgs{Rank: -1})
}

func (l *RedisList[T]) Contains(ctx context.Context, v T) (bool, error) {
	i, err := l.IndexOf(ctx, v)
	return i >= 0, err
}

func (l *RedisList[T]) ContainsAll(ctx context.Context, values ...T) (bool, error) {
	for _, v := range values {
		ok, err := l.Contains(ctx, v)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (l *RedisList[T]) Clear(ctx context.Context) (err error) {
	ctx, done := l.begin(ctx, "clear")
	defer func() { done(err) }()

	// Redis deletes empty lists, so DEL reports 0 exactly when there was
	// nothing to clear.
	n, err := l.client.Del(ctx, l.key).Result()
	if err != nil {
		return fmt.Errorf("clear %q: %w", l.key, err)
	}
	if n > 0 {
		l.notify(ctx, "clear", -1)
	}
	return nil
}

// Sort orders the list.
//
// With a nil cmp the server sorts lexicographically and stores the result
// back under the same key. A comparator cannot run server-side, so the whole
// list is read under WATCH, sorted locally, and written back in the same
// transaction: this is the one O(n) operation in both directions.
func (l *RedisList[T]) Sort(ctx context.Context, cmp func(a, b T) int) (err error) {
	ctx, done := l.begin(ctx, "sort", attribute.Bool("redislist.native", cmp == nil))
	defer func() { done(err) }()

	if cmp == nil {
		n, err := l.client.SortStore(ctx, l.key, l.key, &redis.Sort{Alpha: true}).Result()
		if err != nil {
			return fmt.Errorf("sort %q: %w", l.key, err)
		}
		if n > 0 {
			l.notify(ctx, "sort", -1)
		}
		return nil
	}

	written := 0
	_, err = txn.Run(ctx, l.settings.Txns, l.key,
		func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (txn.Result[struct{}], error) {
			raw, err := tx.LRange(ctx, l.key, 0, -1).Result()
			if err != nil {
				return nil, err
			}
			written = len(raw)
			if written == 0 {
				return nil, nil
			}
			values, err := codec.DecodeAll(l.codec, raw)
			if err != nil {
				return nil, err
			}
			slices.SortStableFunc(values, cmp)
			sorted, err := codec.EncodeAll(l.codec, values)
			if err != nil {
				return nil, err
			}
			pipe.Del(ctx, l.key)
			pipe.RPush(ctx, l.key, toArgs(sorted)...)
			return nil, nil
		},
		func() {
			if written > 0 {
				l.notify(ctx, "sort", -1)
			}
		},
	)
	return err
}

func (l *RedisList[T]) Slice(ctx context.Context) ([]T, error) {
	return l.Range(ctx, 0, -1)
}

func (l *RedisList[T]) Range(ctx context.Context, start, stop int) (values []T, err error) {
	ctx, done := l.begin(ctx, "range")
	defer func() { done(err) }()

	raw, err := l.client.LRange(ctx, l.key, int64(start), int64(stop)).Result()
	if err != nil {
		return nil, fmt.Errorf("range %q[%d:%d]: %w", l.key, start, stop, err)
	}
	return codec.DecodeAll(l.codec, raw)
}

func (l *RedisList[T]) Iterator() *Iterator[T] {
	return newIterator[T](l, l.settings.PageSize)
}

func (l *RedisList[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return l.Iterator().All(ctx)
}

func (l *RedisList[T]) push(ctx context.Context, op string, head bool, values ...T) (err error) {
	ctx, done := l.begin(ctx, op)
	defer func() { done(err) }()

	raw, err := codec.EncodeAll(l.codec, values)
	if err != nil {
		return err
	}
	index := -1
	if head {
		// LPUSH a b c stores c b a; callers expect their order kept.
		slices.Reverse(raw)
		err = l.client.LPush(ctx, l.key, toArgs(raw)...).Err()
		index = 0
	} else {
		err = l.client.RPush(ctx, l.key, toArgs(raw)...).Err()
	}
	if err != nil {
		return fmt.Errorf("%s %q: %w", op, l.key, err)
	}
	l.notify(ctx, op, index, raw...)
	return nil
}

func (l *RedisList[T]) pop(ctx context.Context, op string, head bool) (v T, err error) {
	ctx, done := l.begin(ctx, op)
	defer func() { done(err) }()

	var raw string
	if head {
		raw, err = l.client.LPop(ctx, l.key).Result()
	} else {
		raw, err = l.client.RPop(ctx, l.key).Result()
	}
	if errors.Is(err, redis.Nil) {
		return v, fmt.Errorf("%s %q: %w", op, l.key, ErrNoSuchElement)
	}
	if err != nil {
		return v, fmt.Errorf("%s %q: %w", op, l.key, err)
	}
	l.notify(ctx, op, -1)
	return l.decode(raw)
}

func (l *RedisList[T]) position(ctx context.Context, op string, v T, args redis.LPosArgs) (i int, err error) {
	ctx, done := l.begin(ctx, op)
	defer func() { done(err) }()

	raw, err := l.codec.Encode(v)
	if err != nil {
		return -1, fmt.Errorf("encode element: %w", err)
	}
	pos, err := l.client.LPos(ctx, l.key, raw, args).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("%s %q: %w", op, l.key, err)
	}
	return int(pos), nil
}

func (l *RedisList[T]) size(ctx context.Context) (int, error) {
	n, err := l.client.LLen(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("len %q: %w", l.key, err)
	}
	return int(n), nil
}

func (l *RedisList[T]) decode(raw string) (T, error) {
	v, err := l.codec.Decode(raw)
	if err != nil {
		return v, fmt.Errorf("decode element: %w", err)
	}
	return v, nil
}

func (l *RedisList[T]) notify(ctx context.Context, op string, index int, raw ...string) {
	l.settings.Notify(ctx, &l.tracker, Mutation{
		Key:    l.key,
		Op:     op,
		Index:  index,
		Values: raw,
	})
}

// begin opens a span for op and returns the function that closes it and
// records the outcome metric.
func (l *RedisList[T]) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	attrs = append(attrs, telemetry.KeyAttr(l.key))
	ctx, span := telemetry.StartSpan(ctx, "list."+op, attrs...)
	return ctx, func(err error) {
		l.settings.Metrics.ObserveOp(op, Outcome(err), time.Since(start))
		telemetry.EndSpan(span, err)
	}
}

// Outcome maps an operation error to its metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case IsOutOfRange(err):
		return telemetry.OutcomeOutOfRange
	case txn.IsWatchTimeout(err):
		return telemetry.OutcomeWatchTimeout
	case IsConcurrentModification(err):
		return telemetry.OutcomeConcurrentMod
	default:
		return telemetry.OutcomeError
	}
}

func toArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
