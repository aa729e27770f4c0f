package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchagg"
	"github.com/hupe1980/batchagg/tensor"
)

// counterValues returns the counter values of a family keyed by the joined
// label values.
func counterValues(t *testing.T, reg *prom.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				if key != "" {
					key += ","
				}
				key += lp.GetValue()
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestCollector(t *testing.T) {
	reg := prom.NewRegistry()
	c, err := NewCollector(reg, "test")
	require.NoError(t, err)

	boom := errors.New("boom")
	c.RecordReduce("age", "sum", time.Millisecond, nil)
	c.RecordReduce("age", "sum", time.Millisecond, boom)
	c.RecordBatch(10, time.Millisecond, nil)
	c.RecordBatch(4, time.Millisecond, boom)
	c.RecordPersist(256, time.Millisecond, nil)

	assert.Equal(t, map[string]float64{"age,sum": 1}, counterValues(t, reg, "test_reduce_errors_total"))
	assert.Equal(t, map[string]float64{"ok": 1, "error": 1}, counterValues(t, reg, "test_batches_total"))
	assert.Equal(t, map[string]float64{"": 10}, counterValues(t, reg, "test_rows_total"))
	assert.Equal(t, map[string]float64{"": 256}, counterValues(t, reg, "test_partial_bytes_total"))

	t.Run("DuplicateRegistration", func(t *testing.T) {
		_, err := NewCollector(reg, "test")
		require.Error(t, err)
		var are prom.AlreadyRegisteredError
		assert.ErrorAs(t, err, &are)
	})

	t.Run("Handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Result().Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "test_batch_duration_seconds")
	})
}

func TestCollector_WithAnalyzer(t *testing.T) {
	reg := prom.NewRegistry()
	c, err := NewCollector(reg, "batchagg")
	require.NoError(t, err)

	a, err := batchagg.New([]batchagg.FeatureSpec{{
		Name:     "x",
		Spec:     tensor.DenseSpec(tensor.Int64, tensor.Unknown),
		Reducers: []batchagg.ReducerSpec{batchagg.Count(true), batchagg.MinMax(false)},
	}}, batchagg.WithMetricsCollector(c))
	require.NoError(t, err)

	_, err = a.ReduceBatch(context.Background(), batchagg.Batch{
		Columns: map[string]tensor.Array{"x": tensor.FromSlice([]int64{1, 2, 3})},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"ok": 1}, counterValues(t, reg, "batchagg_batches_total"))
	assert.Equal(t, map[string]float64{"": 3}, counterValues(t, reg, "batchagg_rows_total"))
}

func TestNewCollector_NilRegistry(t *testing.T) {
	c, err := NewCollector(nil, "")
	require.NoError(t, err)
	c.RecordPersist(1, time.Second, nil)
	assert.NotNil(t, c.Handler())
}
