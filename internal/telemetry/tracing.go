package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for all redislist spans.
const TracerName = "github.com/roach88/redislist"

// StartSpan starts a span on the globally registered tracer provider.
// Without an SDK installed the span is a no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) on span, sets the status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// KeyAttr is the attribute used for the remote key on every span.
func KeyAttr(key string) attribute.KeyValue {
	return attribute.String("redislist.key", key)
}

// IndexAttr is the attribute used for list indexes.
func IndexAttr(index int64) attribute.KeyValue {
	return attribute.Int64("redislist.index", index)
}
