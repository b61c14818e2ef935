package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetrics_ObserveOp(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveOp("get", OutcomeOK, time.Millisecond)
	m.ObserveOp("get", OutcomeOK, time.Millisecond)
	m.ObserveOp("get", OutcomeOutOfRange, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("get", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("get", OutcomeOutOfRange)))
}

func TestMetrics_Txn(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TxnAttempt(AttemptConflict)
	m.TxnAttempt(AttemptCommitted)
	m.TxnTimeout()
	m.ScriptStatus("SUCCESS")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.txnAttempts.WithLabelValues(AttemptConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txnAttempts.WithLabelValues(AttemptCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txnTimeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scriptStatus.WithLabelValues("SUCCESS")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOp("get", OutcomeOK, time.Second)
		m.TxnAttempt(AttemptCommitted)
		m.TxnTimeout()
		m.ScriptStatus("SUCCESS")
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice against distinct registries must not panic.
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestEndSpan_RecordsStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := StartSpan(context.Background(), "list.get", KeyAttr("k"), IndexAttr(3))
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "list.set", KeyAttr("k"))
	EndSpan(failed, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "list.get", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
}
