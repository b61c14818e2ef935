package collection

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/redislist/internal/telemetry"
	"github.com/roach88/redislist/internal/token"
	"github.com/roach88/redislist/internal/txn"
)

// DefaultPageSize is the number of elements an iterator fetches per LRANGE.
const DefaultPageSize = 1000

// Mutation describes one confirmed change, as passed to an Observer.
type Mutation struct {
	Key string
	Op  string

	// Index is the position the change applied to, or -1 when the operation
	// is not positional.
	Index int

	// Field is the hash field a map mutation applied to, if any.
	Field string

	// Values holds the encoded values written, if any.
	Values []string

	// ModCount is the adapter's modification count after this change.
	ModCount int64
}

// Observer is notified after every confirmed mutation, in order. Errors are
// logged and do not fail the mutation, which has already been applied.
type Observer interface {
	Observe(ctx context.Context, m Mutation) error
}

// Settings is the resolved form of a list of Options. The map adapter in
// package hashmap shares it.
type Settings struct {
	Txns     *txn.Controller
	Tokens   token.Generator
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	Observer Observer
	PageSize int

	txnOpts []txn.Option
}

// Option configures an adapter.
type Option func(*Settings)

// WithController shares an existing transaction controller. It takes
// precedence over WithWatchTimeout and WithBackoff.
func WithController(c *txn.Controller) Option {
	return func(s *Settings) { s.Txns = c }
}

// WithWatchTimeout sets the deadline of the adapter's optimistic transactions.
func WithWatchTimeout(d time.Duration) Option {
	return func(s *Settings) { s.txnOpts = append(s.txnOpts, txn.WithTimeout(d)) }
}

// WithBackoff sets the pause between rejected transaction attempts.
func WithBackoff(b txn.Backoff) Option {
	return func(s *Settings) { s.txnOpts = append(s.txnOpts, txn.WithBackoff(b)) }
}

// WithTokens sets the generator for sentinel values and scratch keys.
func WithTokens(g token.Generator) Option {
	return func(s *Settings) { s.Tokens = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Settings) { s.Logger = l }
}

// WithMetrics records operation metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Settings) { s.Metrics = m }
}

// WithObserver registers an observer for confirmed mutations.
func WithObserver(o Observer) Option {
	return func(s *Settings) { s.Observer = o }
}

// WithPageSize sets how many elements iterators fetch per round trip.
func WithPageSize(n int) Option {
	return func(s *Settings) { s.PageSize = n }
}

// NewSettings applies opts over the defaults for client.
func NewSettings(client redis.UniversalClient, opts ...Option) *Settings {
	s := &Settings{
		Tokens:   token.UUIDv7Generator{},
		Logger:   slog.Default(),
		PageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.Txns == nil {
		txnOpts := append([]txn.Option{
			txn.WithLogger(s.Logger),
			txn.WithMetrics(s.Metrics),
		}, s.txnOpts...)
		s.Txns = txn.New(client, txnOpts...)
	}
	return s
}

// Notify registers one mutation on tracker and forwards it to the observer.
func (s *Settings) Notify(ctx context.Context, tracker *Tracker, m Mutation) {
	m.ModCount = tracker.Register()
	if s.Observer == nil {
		return
	}
	if err := s.Observer.Observe(ctx, m); err != nil {
		s.Logger.Warn("mutation observer failed",
			"key", m.Key,
			"op", m.Op,
			"mod_count", m.ModCount,
			"error", err,
		)
	}
}
