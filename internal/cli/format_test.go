package cli

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redislist/internal/journal"
)

func TestFormatEntry(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, `3 2024-01-01T12:00:00Z pets insert_all @1 ["Bird" "Fish"] mod=2`,
		formatEntry(journal.Entry{Seq: 3, Key: "pets", Op: "insert_all", Index: 1, Values: []string{"Bird", "Fish"}, ModCount: 2, RecordedAt: at}))
	assert.Equal(t, "4 2024-01-01T12:00:00Z pets clear mod=3",
		formatEntry(journal.Entry{Seq: 4, Key: "pets", Op: "clear", Index: -1, ModCount: 3, RecordedAt: at}))
	assert.Equal(t, `5 2024-01-01T12:00:00Z counts map.put field=apples ["879"] mod=1`,
		formatEntry(journal.Entry{Seq: 5, Key: "counts", Op: "map.put", Index: -1, Field: "apples", Values: []string{"879"}, ModCount: 1, RecordedAt: at}))
}

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "", formatLabels(nil))
	assert.Equal(t, `{op="get",outcome="ok"}`, formatLabels(map[string]string{"outcome": "ok", "op": "get"}))
}

func TestGatherSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "b_total", Help: "b"}, []string{"k"})
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "a_seconds", Help: "a"})
	reg.MustRegister(c, h)
	c.WithLabelValues("y").Add(2)
	c.WithLabelValues("x").Inc()
	h.Observe(0.5)

	samples, err := gatherSamples(reg)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, MetricSample{Name: "a_seconds_count", Labels: map[string]string{}, Value: 1, Count: 1}, samples[0])
	assert.Equal(t, MetricSample{Name: "a_seconds_sum", Labels: map[string]string{}, Value: 0.5}, samples[1])
	assert.Equal(t, MetricSample{Name: "b_total", Labels: map[string]string{"k": "x"}, Value: 1}, samples[2])
	assert.Equal(t, MetricSample{Name: "b_total", Labels: map[string]string{"k": "y"}, Value: 2}, samples[3])
}
