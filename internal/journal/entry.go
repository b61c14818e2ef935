package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/redislist/internal/collection"
)

// Entry is one journaled mutation.
type Entry struct {
	Seq        int64     `json:"seq"`
	Key        string    `json:"key"`
	Op         string    `json:"op"`
	Index      int       `json:"index"`
	Field      string    `json:"field,omitempty"`
	Values     []string  `json:"values"`
	ModCount   int64     `json:"mod_count"`
	RecordedAt time.Time `json:"recorded_at"`
}

var _ collection.Observer = (*Store)(nil)

// Observe records m. It implements collection.Observer.
func (s *Store) Observe(ctx context.Context, m collection.Mutation) error {
	_, err := s.Append(ctx, Entry{
		Key:      m.Key,
		Op:       m.Op,
		Index:    m.Index,
		Field:    m.Field,
		Values:   m.Values,
		ModCount: m.ModCount,
	})
	return err
}

// Append inserts e and returns its assigned seq. Seq and RecordedAt of e are
// ignored.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	values := e.Values
	if values == nil {
		values = []string{}
	}
	valsJSON, err := json.Marshal(values)
	if err != nil {
		return 0, fmt.Errorf("append: marshal values: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (key, op, idx, field, vals, mod_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.Key,
		e.Op,
		e.Index,
		e.Field,
		string(valsJSON),
		e.ModCount,
		s.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	return seq, nil
}

// List returns the most recent limit entries for key in ascending seq order.
// An empty key matches every key; a limit <= 0 returns everything.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) List(ctx context.Context, key string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, op, idx, field, vals, mod_count, recorded_at
		FROM (
			SELECT * FROM mutations
			WHERE ? = '' OR key = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, key, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries recorded for key, or for every key
// when key is empty.
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mutations WHERE ? = '' OR key = ?`, key, key,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		valsJSON   string
		recordedAt int64
	)
	if err := rows.Scan(&e.Seq, &e.Key, &e.Op, &e.Index, &e.Field, &valsJSON, &e.ModCount, &recordedAt); err != nil {
		return Entry{}, fmt.Errorf("scan mutation: %w", err)
	}
	if err := json.Unmarshal([]byte(valsJSON), &e.Values); err != nil {
		return Entry{}, fmt.Errorf("mutation %d: unmarshal values: %w", e.Seq, err)
	}
	e.RecordedAt = time.Unix(0, recordedAt).UTC()
	return e, nil
}
