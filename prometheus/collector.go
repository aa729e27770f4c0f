// Package prometheus exports batchagg metrics to Prometheus.
//
//	reg := prom.NewRegistry()
//	c, _ := prometheus.NewCollector(reg, "batchagg")
//	a, _ := batchagg.New(features, batchagg.WithMetricsCollector(c))
//	http.Handle("/metrics", c.Handler())
package prometheus

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/batchagg"
)

var _ batchagg.MetricsCollector = (*Collector)(nil)

// Collector implements batchagg.MetricsCollector with Prometheus metrics.
type Collector struct {
	gatherer prom.Gatherer

	reduceLatency  *prom.HistogramVec
	reduceErrors   *prom.CounterVec
	batchLatency   prom.Histogram
	batches        *prom.CounterVec
	rows           prom.Counter
	persistLatency prom.Histogram
	persisted      *prom.CounterVec
	persistBytes   prom.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
// A nil reg uses a fresh registry. namespace prefixes every metric name.
func NewCollector(reg *prom.Registry, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	c := &Collector{
		gatherer: reg,
		reduceLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "reduce_duration_seconds",
			Help:      "Latency of a single reducer on one batch.",
			Buckets:   prom.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"feature", "reducer"}),
		reduceErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reduce_errors_total",
			Help:      "Reducer applications that failed.",
		}, []string{"feature", "reducer"}),
		batchLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Latency of reducing a whole batch.",
			Buckets:   prom.DefBuckets,
		}),
		batches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches reduced, by result.",
		}, []string{"result"}),
		rows: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows of successfully reduced batches.",
		}),
		persistLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Latency of writing and committing a partial.",
			Buckets:   prom.DefBuckets,
		}),
		persisted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "partials_total",
			Help:      "Partial writes, by result.",
		}, []string{"result"}),
		persistBytes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "partial_bytes_total",
			Help:      "Encoded bytes of written partials.",
		}),
	}

	for _, m := range []prom.Collector{
		c.reduceLatency, c.reduceErrors,
		c.batchLatency, c.batches, c.rows,
		c.persistLatency, c.persisted, c.persistBytes,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the registry the collector was registered on.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// RecordReduce implements batchagg.MetricsCollector.
func (c *Collector) RecordReduce(feature, reducer string, d time.Duration, err error) {
	c.reduceLatency.WithLabelValues(feature, reducer).Observe(d.Seconds())
	if err != nil {
		c.reduceErrors.WithLabelValues(feature, reducer).Inc()
	}
}

// RecordBatch implements batchagg.MetricsCollector.
func (c *Collector) RecordBatch(rows int, d time.Duration, err error) {
	c.batchLatency.Observe(d.Seconds())
	c.batches.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.rows.Add(float64(rows))
	}
}

// RecordPersist implements batchagg.MetricsCollector.
func (c *Collector) RecordPersist(bytes int, d time.Duration, err error) {
	c.persistLatency.Observe(d.Seconds())
	c.persisted.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.persistBytes.Add(float64(bytes))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
