package batchagg

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with batchagg-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithRun adds a run_id field.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", runID)}
}

// WithBatch adds a batch field.
func (l *Logger) WithBatch(batch int64) *Logger {
	return &Logger{Logger: l.Logger.With("batch", batch)}
}

// WithFeature adds a feature field.
func (l *Logger) WithFeature(name string) *Logger {
	return &Logger{Logger: l.Logger.With("feature", name)}
}

// WithReducer adds a reducer field.
func (l *Logger) WithReducer(op string) *Logger {
	return &Logger{Logger: l.Logger.With("reducer", op)}
}

// LogReduce logs one reducer application.
func (l *Logger) LogReduce(ctx context.Context, feature, reducer string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reduce failed",
			"feature", feature,
			"reducer", reducer,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "reduce completed",
		"feature", feature,
		"reducer", reducer,
	)
}

// LogBatch logs the reduction of a whole batch.
func (l *Logger) LogBatch(ctx context.Context, batch int64, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch failed",
			"batch", batch,
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "batch reduced",
		"batch", batch,
		"rows", rows,
	)
}

// LogPersist logs the write of a batch's partial aggregates.
func (l *Logger) LogPersist(ctx context.Context, batch int64, blob string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"batch", batch,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "partial persisted",
		"batch", batch,
		"blob", blob,
		"bytes", bytes,
	)
}

// LogCombine logs a merge of batch results.
func (l *Logger) LogCombine(ctx context.Context, batches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "combine failed",
			"batches", batches,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "combine completed",
		"batches", batches,
	)
}

// LogRun logs the end of a run.
func (l *Logger) LogRun(ctx context.Context, runID string, batches int, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"run_id", runID,
			"batches", batches,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "run completed",
		"run_id", runID,
		"batches", batches,
		"rows", rows,
	)
}
