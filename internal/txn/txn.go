package txn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/redislist/internal/telemetry"
)

// DefaultTimeout bounds a transaction when no WithTimeout option is given.
const DefaultTimeout = 2 * time.Second

// Clock supplies the current time. time.Now carries a monotonic reading, so
// the default clock is safe against wall-clock jumps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Backoff is an optional exponential pause between rejected attempts.
// The zero value retries immediately.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the pause after the given (1-based) rejected attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 || attempt < 1 {
		return 0
	}
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Controller runs optimistic transactions for one Redis client.
// It holds no per-transaction state and is safe for concurrent use.
type Controller struct {
	client  redis.UniversalClient
	timeout time.Duration
	backoff Backoff
	clock   Clock
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the deadline for one Run. A zero timeout allows exactly
// one attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithBackoff enables a pause between rejected attempts.
func WithBackoff(b Backoff) Option {
	return func(c *Controller) { c.backoff = b }
}

// WithClock overrides the clock used for the deadline (for testing).
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records attempt outcomes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a Controller for client.
func New(client redis.UniversalClient, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		timeout: DefaultTimeout,
		clock:   systemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the underlying Redis client.
func (c *Controller) Client() redis.UniversalClient {
	return c.client
}

// Timeout returns the configured deadline.
func (c *Controller) Timeout() time.Duration {
	return c.timeout
}

// Result yields the value of a committed attempt. It is only called after
// EXEC succeeded, so it may read replies of queued commands.
type Result[T any] func() (T, error)

// Value returns a Result that yields v.
func Value[T any](v T) Result[T] {
	return func() (T, error) { return v, nil }
}

// Work performs one attempt. Reads go through tx and are guarded by the
// WATCH; writes are queued on pipe and applied by EXEC. An attempt that
// queues nothing commits without sending EXEC. A nil Result yields the zero
// value.
type Work[T any] func(ctx context.Context, tx *redis.Tx, pipe redis.Pipeliner) (Result[T], error)

// Run executes work under WATCH key until an attempt commits, work fails,
// ctx is done, or the controller's deadline passes.
//
// onCommit (may be nil) is invoked exactly once per successful Run.
func Run[T any](ctx context.Context, c *Controller, key string, work Work[T], onCommit func()) (T, error) {
	var zero T

	ctx, span := telemetry.StartSpan(ctx, "txn.run", telemetry.KeyAttr(key))
	start := c.clock.Now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			telemetry.EndSpan(span, err)
			return zero, err
		}

		var result Result[T]
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				r, err := work(ctx, tx, pipe)
				if err != nil {
					return err
				}
				result = r
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			c.metrics.TxnAttempt(telemetry.AttemptCommitted)
			if onCommit != nil {
				onCommit()
			}
			if result == nil {
				telemetry.EndSpan(span, nil)
				return zero, nil
			}
			v, err := result()
			telemetry.EndSpan(span, err)
			return v, err

		case errors.Is(err, redis.TxFailedErr):
			c.metrics.TxnAttempt(telemetry.AttemptConflict)
			c.logger.Debug("watched key changed, retrying transaction",
				"key", key,
				"attempt", attempt,
			)

		default:
			c.metrics.TxnAttempt(telemetry.AttemptAborted)
			telemetry.EndSpan(span, err)
			return zero, err
		}

		elapsed := c.clock.Now().Sub(start)
		if elapsed >= c.timeout {
			c.metrics.TxnTimeout()
			c.logger.Warn("transaction deadline exceeded",
				"key", key,
				"attempts", attempt,
				"elapsed", elapsed,
			)
			err := &WatchTimeoutError{Key: key, Attempts: attempt, Elapsed: elapsed}
			telemetry.EndSpan(span, err)
			return zero, err
		}

		if d := c.backoff.Delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				telemetry.EndSpan(span, ctx.Err())
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
}
