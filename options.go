package batchagg

import (
	"log/slog"

	"github.com/hupe1980/batchagg/partial"
	"github.com/hupe1980/batchagg/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	partials         *partial.Store
	controller       *resource.Controller
	concurrency      int
	runID            string
}

// Option configures an Analyzer.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring reductions.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &batchagg.BasicMetricsCollector{}
//	a, _ := batchagg.New(features, batchagg.WithMetricsCollector(metrics))
//	// ... run batches ...
//	stats := metrics.GetStats()
//	fmt.Printf("Batches: %d, Rows: %d\n", stats.BatchCount, stats.BatchRows)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithPartialStore persists the result of every batch processed by Run.
// Without a store, Run only merges in process.
func WithPartialStore(s *partial.Store) Option {
	return func(o *options) {
		o.partials = s
	}
}

// WithResourceController bounds the batches in flight and the memory they
// hold. A nil controller imposes no limits.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithConcurrency sets how many batches Run reduces at once.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithRunID fixes the run identifier instead of generating one.
// Reusing the id of an interrupted run resumes it: batches that were
// already committed are not written again.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
