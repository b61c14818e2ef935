// Package hashmap provides a string-keyed map stored in one Redis hash.
//
// RedisMap shares its options, modification tracking and observers with the
// list adapter in package collection.
package hashmap

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/redislist/internal/codec"
	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/telemetry"
	"github.com/roach88/redislist/internal/txn"
)

// Entry is one field/value pair.
type Entry[V any] struct {
	Field string
	Value V
}

// RedisMap maps string fields to values of type V in a Redis hash.
type RedisMap[V any] struct {
	client   redis.UniversalClient
	key      string
	codec    codec.Codec[V]
	settings *collection.Settings
	tracker  collection.Tracker
}

// New binds a map adapter to key.
func New[V any](client redis.UniversalClient, key string, c codec.Codec[V], opts ...collection.Option) *RedisMap[V] {
	return &RedisMap[V]{
		client:   client,
		key:      key,
		codec:    c,
		settings: collection.NewSettings(client, opts...),
	}
}

// NewStringMap binds a map of raw strings to key.
func NewStringMap(client redis.UniversalClient, key string, opts ...collection.Option) *RedisMap[string] {
	return New[string](client, key, codec.String{}, opts...)
}

// Key returns the Redis key backing the map.
func (m *RedisMap[V]) Key() string {
	return m.key
}

// ModCount returns the number of confirmed mutations made through m.
func (m *RedisMap[V]) ModCount() int64 {
	return m.tracker.Count()
}

func (m *RedisMap[V]) Len(ctx context.Context) (n int, err error) {
	ctx, done := m.begin(ctx, "len")
	defer func() { done(err) }()

	size, err := m.client.HLen(ctx, m.key).Result()
	if err != nil {
		return 0, fmt.Errorf("len %q: %w", m.key, err)
	}
	return int(size), nil
}

func (m *RedisMap[V]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := m.Len(ctx)
	return n == 0, err
}

// Get returns the value stored under field and whether it was present.
func (m *RedisMap[V]) Get(ctx context.Context, field string) (v V, ok bool, err error) {
	ctx, done := m.begin(ctx, "get")
	defer func() { done(err) }()

	raw, err := m.client.HGet(ctx, m.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("get %q[%q]: %w", m.key, field, err)
	}
	v, err = m.decode(raw)
	return v, err == nil, err
}

func (m *RedisMap[V]) ContainsKey(ctx context.Context, field string) (found bool, err error) {
	ctx, done := m.begin(ctx, "contains_key")
	defer func() { done(err) }()

	found, err = m.client.HExists(ctx, m.key, field).Result()
	if err != nil {
		return false, fmt.Errorf("contains key %q[%q]: %w", m.key, field, err)
	}
	return found, nil
}

// ContainsValue scans every value of the hash.
func (m *RedisMap[V]) ContainsValue(ctx context.Context, v V) (found bool, err error) {
	ctx, done := m.begin(ctx, "contains_value")
	defer func() { done(err) }()

	raw, err := m.codec.Encode(v)
	if err != nil {
		return false, fmt.Errorf("encode value: %w", err)
	}
	values, err := m.client.HVals(ctx, m.key).Result()
	if err != nil {
		return false, fmt.Errorf("values %q: %w", m.key, err)
	}
	return slices.Contains(values, raw), nil
}

// Put stores v under field and returns the value it replaced, if any. The
// read of the previous value and the write commit together.
func (m *RedisMap[V]) Put(ctx context.Context, field string, v V) (prev V, replaced bool, err error) {
	ctx, done := m.begin(ctx, "put")
	defer func() { done(err) }()

	raw, err := m.codec.Encode(v)
	if err != nil {
		return prev, false, fmt.Errorf("encode value: %w", err)
	}
	old, err := txn.Run(ctx, m.settings.Txns, m.key,
		func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (txn.Result[*string], error) {
			current, err := m.read(ctx, tx, field)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, m.key, field, raw)
			return txn.Value(current), nil
		},
		func() { m.notify(ctx, "put", field, raw) },
	)
	if err != nil || old == nil {
		return prev, false, err
	}
	prev, err = m.decode(*old)
	return prev, err == nil, err
}

// PutAll stores every entry with a single HSET.
func (m *RedisMap[V]) PutAll(ctx context.Context, entries map[string]V) (err error) {
	ctx, done := m.begin(ctx, "put_all", attribute.Int("redislist.values", len(entries)))
	defer func() { done(err) }()

	if len(entries) == 0 {
		return nil
	}
	args := make([]interface{}, 0, 2*len(entries))
	raws := make([]string, 0, len(entries))
	for _, field := range slices.Sorted(maps.Keys(entries)) {
		raw, err := m.codec.Encode(entries[field])
		if err != nil {
			return fmt.Errorf("encode value for %q: %w", field, err)
		}
		args = append(args, field, raw)
		raws = append(raws, raw)
	}
	if err := m.client.HSet(ctx, m.key, args...).Err(); err != nil {
		return fmt.Errorf("put all %q: %w", m.key, err)
	}
	m.notify(ctx, "put_all", "", raws...)
	return nil
}

// Remove deletes field and returns the value it held, if any.
func (m *RedisMap[V]) Remove(ctx context.Context, field string) (prev V, removed bool, err error) {
	ctx, done := m.begin(ctx, "remove")
	defer func() { done(err) }()

	old, err := txn.Run(ctx, m.settings.Txns, m.key,
		func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (txn.Result[*string], error) {
			current, err := m.read(ctx, tx, field)
			if err != nil || current == nil {
				return nil, err
			}
			pipe.HDel(ctx, m.key, field)
			return txn.Value(current), nil
		},
		nil,
	)
	if err != nil || old == nil {
		return prev, false, err
	}
	m.notify(ctx, "remove", field)
	prev, err = m.decode(*old)
	return prev, err == nil, err
}

func (m *RedisMap[V]) Clear(ctx context.Context) (err error) {
	ctx, done := m.begin(ctx, "clear")
	defer func() { done(err) }()

	n, err := m.client.Del(ctx, m.key).Result()
	if err != nil {
		return fmt.Errorf("clear %q: %w", m.key, err)
	}
	if n > 0 {
		m.notify(ctx, "clear", "")
	}
	return nil
}

// Keys returns the fields in ascending order.
func (m *RedisMap[V]) Keys(ctx context.Context) (fields []string, err error) {
	ctx, done := m.begin(ctx, "keys")
	defer func() { done(err) }()

	fields, err = m.client.HKeys(ctx, m.key).Result()
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", m.key, err)
	}
	slices.Sort(fields)
	return fields, nil
}

// Values returns the values ordered by field.
func (m *RedisMap[V]) Values(ctx context.Context) ([]V, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]V, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// Entries returns a snapshot of the map ordered by field.
func (m *RedisMap[V]) Entries(ctx context.Context) (entries []Entry[V], err error) {
	ctx, done := m.begin(ctx, "entries")
	defer func() { done(err) }()

	all, err := m.client.HGetAll(ctx, m.key).Result()
	if err != nil {
		return nil, fmt.Errorf("entries %q: %w", m.key, err)
	}
	entries = make([]Entry[V], 0, len(all))
	for _, field := range slices.Sorted(maps.Keys(all)) {
		v, err := m.decode(all[field])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		entries = append(entries, Entry[V]{Field: field, Value: v})
	}
	return entries, nil
}

// All yields the entries of a snapshot taken on first use. It fails with a
// ConcurrentModificationError as soon as m is mutated during iteration.
func (m *RedisMap[V]) All(ctx context.Context) iter.Seq2[Entry[V], error] {
	return func(yield func(Entry[V], error) bool) {
		expected := m.ModCount()
		entries, err := m.Entries(ctx)
		if err != nil {
			yield(Entry[V]{}, err)
			return
		}
		for _, e := range entries {
			if err := m.check(expected); err != nil {
				yield(Entry[V]{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// ForEach calls fn for every entry in field order. It stops at the first
// error from fn and fails with a ConcurrentModificationError if fn mutated
// m.
func (m *RedisMap[V]) ForEach(ctx context.Context, fn func(field string, v V) error) error {
	expected := m.ModCount()
	entries, err := m.Entries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e.Field, e.Value); err != nil {
			return err
		}
		if err := m.check(expected); err != nil {
			return err
		}
	}
	return nil
}

func (m *RedisMap[V]) check(expected int64) error {
	if actual := m.ModCount(); actual != expected {
		return &collection.ConcurrentModificationError{Expected: expected, Actual: actual}
	}
	return nil
}

// read returns the raw value of field under the WATCH, or nil if it is unset.
func (m *RedisMap[V]) read(ctx context.Context, tx *redis.Tx, field string) (*string, error) {
	raw, err := tx.HGet(ctx, m.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func (m *RedisMap[V]) decode(raw string) (V, error) {
	v, err := m.codec.Decode(raw)
	if err != nil {
		return v, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func (m *RedisMap[V]) notify(ctx context.Context, op, field string, raw ...string) {
	m.settings.Notify(ctx, &m.tracker, collection.Mutation{
		Key:    m.key,
		Op:     "map." + op,
		Index:  -1,
		Field:  field,
		Values: raw,
	})
}

func (m *RedisMap[V]) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	attrs = append(attrs, telemetry.KeyAttr(m.key))
	ctx, span := telemetry.StartSpan(ctx, "map."+op, attrs...)
	return ctx, func(err error) {
		m.settings.Metrics.ObserveOp("map_"+op, collection.Outcome(err), time.Since(start))
		telemetry.EndSpan(span, err)
	}
}
