package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/testutil"
)

func TestAppend_AssignsIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.Append(ctx, Entry{Key: "k", Op: "add", Index: -1, ModCount: 1})
	require.NoError(t, err)
	second, err := s.Append(ctx, Entry{Key: "k", Op: "add", Index: -1, ModCount: 2})
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestList_RoundTrip(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := createTestStore(t, WithNow(func() time.Time { return at }))

	_, err := s.Append(ctx, Entry{
		Key:      "list",
		Op:       "insert_all",
		Index:    2,
		Values:   []string{"Bird", "Fish"},
		ModCount: 7,
	})
	require.NoError(t, err)

	entries, err := s.List(ctx, "list", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{
		Seq:        1,
		Key:        "list",
		Op:         "insert_all",
		Index:      2,
		Values:     []string{"Bird", "Fish"},
		ModCount:   7,
		RecordedAt: at,
	}, entries[0])
}

func TestList_NilValuesStoredEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Append(ctx, Entry{Key: "k", Op: "clear", Index: -1, ModCount: 1})
	require.NoError(t, err)

	entries, err := s.List(ctx, "k", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{}, entries[0].Values)
}

func TestList_LimitKeepsMostRecentInOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i := int64(1); i <= 5; i++ {
		_, err := s.Append(ctx, Entry{Key: "k", Op: "add", Index: -1, ModCount: i})
		require.NoError(t, err)
	}

	entries, err := s.List(ctx, "k", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(4), entries[0].ModCount)
	assert.Equal(t, int64(5), entries[1].ModCount)
}

func TestList_FiltersByKey(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, key := range []string{"a", "b", "a"} {
		_, err := s.Append(ctx, Entry{Key: key, Op: "add", Index: -1, ModCount: 1})
		require.NoError(t, err)
	}

	a, err := s.List(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, a, 2)

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.List(ctx, "c", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestObserve_RecordsAdapterMutations(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	_, client := testutil.NewRedis(t)
	l := collection.NewStringList(client, "pets", collection.WithObserver(s))

	_, err := l.AddAll(ctx, "Cat", "Dog", "Home")
	require.NoError(t, err)
	_, err = l.RemoveAt(ctx, 1)
	require.NoError(t, err)
	_, err = l.Get(ctx, 10) // not a mutation
	require.Error(t, err)

	entries, err := s.List(ctx, "pets", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "add_all", entries[0].Op)
	assert.Equal(t, []string{"Cat", "Dog", "Home"}, entries[0].Values)
	assert.Equal(t, int64(1), entries[0].ModCount)

	assert.Equal(t, "remove_at", entries[1].Op)
	assert.Equal(t, 1, entries[1].Index)
	assert.Equal(t, int64(2), entries[1].ModCount)
}
