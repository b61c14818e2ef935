package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/token"
	"github.com/roach88/redislist/internal/txn"
)

// Error kinds recorded in the trace.
const (
	KindOutOfRange    = "out_of_range"
	KindNoSuchElement = "no_such_element"
	KindWatchTimeout  = "watch_timeout"
	KindConcurrentMod = "concurrent_modification"
	KindError         = "error"
)

// ErrorKind classifies an operation error for traces and expectations.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case collection.IsOutOfRange(err):
		return KindOutOfRange
	case errors.Is(err, collection.ErrNoSuchElement):
		return KindNoSuchElement
	case txn.IsWatchTimeout(err):
		return KindWatchTimeout
	case collection.IsConcurrentModification(err):
		return KindConcurrentMod
	default:
		return KindError
	}
}

// Harness executes scenarios against one Redis client.
type Harness struct {
	client redis.UniversalClient
	logger *slog.Logger
	opts   []collection.Option
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithAdapterOptions passes extra options to every list the harness creates.
func WithAdapterOptions(opts ...collection.Option) Option {
	return func(h *Harness) { h.opts = append(h.opts, opts...) }
}

// New creates a harness for client.
func New(client redis.UniversalClient, opts ...Option) *Harness {
	h := &Harness{
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario and returns the result.
//
// The scenario key is reset to Initial, then every step runs against one
// fresh adapter instance. Step failures and unmet expectations are recorded
// in the result; the returned error is reserved for failures to set up or
// read back the list.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := h.reset(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to reset %q: %w", scenario.Key, err)
	}

	opts := append([]collection.Option{
		collection.WithLogger(h.logger),
		collection.WithTokens(token.NewSequenceGenerator(scenario.Name)),
	}, h.opts...)
	list := collection.NewStringList(h.client, scenario.Key, opts...)

	result := NewResult()
	for i, step := range scenario.Steps {
		value, err := execute(ctx, list, step)
		event := TraceEvent{
			Step:     i + 1,
			Op:       step.Op,
			Index:    step.Index,
			Values:   stepValues(step),
			Result:   normalize(value),
			Error:    ErrorKind(err),
			ModCount: list.ModCount(),
		}
		if err != nil {
			event.Result = nil
		}
		result.Trace = append(result.Trace, event)

		h.logger.Debug("scenario step executed",
			"scenario", scenario.Name,
			"step", event.Step,
			"op", step.Op,
			"error", err,
		)

		for _, msg := range checkExpect(event, step.Expect, err) {
			result.AddError(msg)
		}
	}

	final, err := list.Slice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = final
	result.ModCount = list.ModCount()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) reset(ctx context.Context, scenario *Scenario) error {
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, scenario.Key)
		if len(scenario.Initial) > 0 {
			args := make([]interface{}, len(scenario.Initial))
			for i, v := range scenario.Initial {
				args[i] = v
			}
			pipe.RPush(ctx, scenario.Key, args...)
		}
		return nil
	})
	return err
}

// execute runs one step and returns its result value.
func execute(ctx context.Context, l collection.List[string], step Step) (any, error) {
	var (
		index int
		value string
	)
	if step.Index != nil {
		index = *step.Index
	}
	if step.Value != nil {
		value = *step.Value
	}

	switch step.Op {
	case "len":
		return l.Len(ctx)
	case "is_empty":
		return l.IsEmpty(ctx)
	case "get":
		return l.Get(ctx, index)
	case "set":
		return l.Set(ctx, index, value)
	case "add":
		return nil, l.Add(ctx, value)
	case "add_first":
		return nil, l.AddFirst(ctx, value)
	case "add_last":
		return nil, l.AddLast(ctx, value)
	case "add_all":
		return l.AddAll(ctx, step.Values...)
	case "insert":
		return nil, l.Insert(ctx, index, value)
	case "insert_all":
		return l.InsertAll(ctx, index, step.Values...)
	case "remove_at":
		return l.RemoveAt(ctx, index)
	case "remove_first":
		return l.RemoveFirst(ctx)
	case "remove_last":
		return l.RemoveLast(ctx)
	case "remove":
		return l.Remove(ctx, value)
	case "remove_all":
		return l.RemoveAll(ctx, step.Values...)
	case "index_of":
		return l.IndexOf(ctx, value)
	case "last_index_of":
		return l.LastIndexOf(ctx, value)
	case "contains":
		return l.Contains(ctx, value)
	case "contains_all":
		return l.ContainsAll(ctx, step.Values...)
	case "clear":
		return nil, l.Clear(ctx)
	case "sort":
		return nil, l.Sort(ctx, strings.Compare)
	case "sort_native":
		return nil, l.Sort(ctx, nil)
	case "slice":
		return l.Slice(ctx)
	case "iterate":
		var values []string
		for v, err := range l.All(ctx) {
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func stepValues(step Step) []string {
	if step.Value != nil {
		return []string{*step.Value}
	}
	return step.Values
}

// normalize converts results to the shapes YAML decodes into, so expected
// and actual values compare with reflect.DeepEqual.
func normalize(v any) any {
	switch v := v.(type) {
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func checkExpect(event TraceEvent, expect *Expect, err error) []string {
	var errs []string
	prefix := fmt.Sprintf("step %d (%s)", event.Step, event.Op)

	wantErr := ""
	if expect != nil {
		wantErr = expect.Error
	}
	switch {
	case wantErr == "" && err != nil:
		errs = append(errs, fmt.Sprintf("%s: unexpected error: %v", prefix, err))
	case wantErr != "" && event.Error != wantErr:
		errs = append(errs, fmt.Sprintf("%s: expected error %s, got %q", prefix, wantErr, event.Error))
	}

	if expect != nil && expect.Result != nil && err == nil {
		want := normalize(expect.Result)
		if !reflect.DeepEqual(want, event.Result) {
			errs = append(errs, fmt.Sprintf("%s: expected result %v, got %v", prefix, want, event.Result))
		}
	}
	return errs
}
