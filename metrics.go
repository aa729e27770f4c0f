package batchagg

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics.
// The prometheus subpackage provides an implementation.
type MetricsCollector interface {
	// RecordReduce is called after each reducer application.
	RecordReduce(feature, reducer string, duration time.Duration, err error)

	// RecordBatch is called after each batch, rows being its leading dimension.
	RecordBatch(rows int, duration time.Duration, err error)

	// RecordPersist is called after each partial write.
	RecordPersist(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordReduce(string, string, time.Duration, error) {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordPersist(int, time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	ReduceCount      atomic.Int64
	ReduceErrors     atomic.Int64
	ReduceTotalNanos atomic.Int64
	BatchCount       atomic.Int64
	BatchErrors      atomic.Int64
	BatchRows        atomic.Int64
	BatchTotalNanos  atomic.Int64
	PersistCount     atomic.Int64
	PersistErrors    atomic.Int64
	PersistBytes     atomic.Int64
}

// RecordReduce implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReduce(_, _ string, duration time.Duration, err error) {
	b.ReduceCount.Add(1)
	b.ReduceTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReduceErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(rows int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BatchErrors.Add(1)
		return
	}
	b.BatchRows.Add(int64(rows))
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(bytes int, _ time.Duration, err error) {
	b.PersistCount.Add(1)
	if err != nil {
		b.PersistErrors.Add(1)
		return
	}
	b.PersistBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ReduceCount:    b.ReduceCount.Load(),
		ReduceErrors:   b.ReduceErrors.Load(),
		ReduceAvgNanos: avg(b.ReduceTotalNanos.Load(), b.ReduceCount.Load()),
		BatchCount:     b.BatchCount.Load(),
		BatchErrors:    b.BatchErrors.Load(),
		BatchRows:      b.BatchRows.Load(),
		BatchAvgNanos:  avg(b.BatchTotalNanos.Load(), b.BatchCount.Load()),
		PersistCount:   b.PersistCount.Load(),
		PersistErrors:  b.PersistErrors.Load(),
		PersistBytes:   b.PersistBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ReduceCount    int64
	ReduceErrors   int64
	ReduceAvgNanos int64
	BatchCount     int64
	BatchErrors    int64
	BatchRows      int64
	BatchAvgNanos  int64
	PersistCount   int64
	PersistErrors  int64
	PersistBytes   int64
}
