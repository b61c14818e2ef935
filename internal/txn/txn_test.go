package txn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redislist/internal/telemetry"
	"github.com/roach88/redislist/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_CommitsFirstAttempt(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	require.NoError(t, client.RPush(ctx, "k", "a", "b").Err())

	c := New(client, WithLogger(quietLogger()))
	commits := 0

	prev, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[string], error) {
		old := pipe.LIndex(ctx, "k", 1)
		pipe.LSet(ctx, "k", 1, "B")
		return func() (string, error) { return old.Val(), nil }, nil
	}, func() { commits++ })

	require.NoError(t, err)
	assert.Equal(t, "b", prev)
	assert.Equal(t, 1, commits)
	assert.Equal(t, []string{"a", "B"}, client.LRange(ctx, "k", 0, -1).Val())
}

func TestRun_RetriesAfterConflict(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	other := testutil.NewClient(t, mr.Addr())
	ctx := context.Background()
	require.NoError(t, client.RPush(ctx, "k", "a").Err())

	reg := prometheus.NewRegistry()
	c := New(client, WithLogger(quietLogger()), WithMetrics(telemetry.NewMetrics(reg)))

	attempts := 0
	commits := 0
	got, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[int64], error) {
		attempts++
		n, err := tx.LLen(ctx, "k").Result()
		if err != nil {
			return nil, err
		}
		if attempts == 1 {
			// Another process appends after our WATCH.
			require.NoError(t, other.RPush(ctx, "k", "intruder").Err())
		}
		pipe.RPush(ctx, "k", "mine")
		return Value(n), nil
	}, func() { commits++ })

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, commits)
	assert.Equal(t, int64(2), got, "second attempt must observe the intruder's write")
	assert.Equal(t, []string{"a", "intruder", "mine"}, client.LRange(ctx, "k", 0, -1).Val())
}

func TestRun_WatchTimeout(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	other := testutil.NewClient(t, mr.Addr())
	ctx := context.Background()
	require.NoError(t, client.RPush(ctx, "k", "a").Err())

	c := New(client,
		WithLogger(quietLogger()),
		WithTimeout(time.Second),
		WithClock(testutil.NewSteppingClock(100*time.Millisecond)),
	)

	commits := 0
	_, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[struct{}], error) {
		require.NoError(t, other.RPush(ctx, "k", "x").Err())
		pipe.LSet(ctx, "k", 0, "never")
		return nil, nil
	}, func() { commits++ })

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWatchTimeout))
	assert.True(t, IsWatchTimeout(err))

	var wt *WatchTimeoutError
	require.True(t, errors.As(err, &wt))
	assert.Equal(t, "k", wt.Key)
	assert.Equal(t, 10, wt.Attempts)
	assert.Equal(t, time.Second, wt.Elapsed)
	assert.Zero(t, commits, "onCommit must not run on timeout")

	head, err := client.LIndex(ctx, "k", 0).Result()
	require.NoError(t, err)
	assert.Equal(t, "a", head, "no rejected attempt may leave effects")
}

func TestRun_ZeroTimeoutSingleAttempt(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	other := testutil.NewClient(t, mr.Addr())
	ctx := context.Background()

	c := New(client, WithLogger(quietLogger()), WithTimeout(0))
	attempts := 0
	_, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[struct{}], error) {
		attempts++
		require.NoError(t, other.RPush(ctx, "k", "x").Err())
		pipe.RPush(ctx, "k", "y")
		return nil, nil
	}, nil)

	assert.True(t, IsWatchTimeout(err))
	assert.Equal(t, 1, attempts)
}

func TestRun_WorkErrorNotRetried(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	require.NoError(t, client.RPush(ctx, "k", "a").Err())

	sentinel := errors.New("bounds")
	c := New(client, WithLogger(quietLogger()))
	attempts := 0
	commits := 0
	_, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[string], error) {
		attempts++
		pipe.RPush(ctx, "k", "queued-but-discarded")
		return nil, sentinel
	}, func() { commits++ })

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, commits)
	assert.Equal(t, []string{"a"}, client.LRange(ctx, "k", 0, -1).Val())
}

func TestRun_ContextCanceled(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(client, WithLogger(quietLogger()))
	called := false
	_, err := Run(ctx, c, "k", func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[string], error) {
		called = true
		return nil, nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBackoff_Delay(t *testing.T) {
	assert.Zero(t, Backoff{}.Delay(1))
	assert.Zero(t, Backoff{Initial: time.Millisecond}.Delay(0))

	b := Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, b.Delay(1))
	assert.Equal(t, 20*time.Millisecond, b.Delay(2))
	assert.Equal(t, 40*time.Millisecond, b.Delay(3))
	assert.Equal(t, 50*time.Millisecond, b.Delay(4))
	assert.Equal(t, 50*time.Millisecond, b.Delay(30))

	uncapped := Backoff{Initial: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, uncapped.Delay(4))
}

func TestWatchTimeoutError_Message(t *testing.T) {
	err := &WatchTimeoutError{Key: "list", Attempts: 3, Elapsed: 2 * time.Second}
	assert.Equal(t, `watch timeout: key "list" still contended after 3 attempts (2s)`, err.Error())
	assert.False(t, IsWatchTimeout(errors.New("other")))
}
