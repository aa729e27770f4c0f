package batchagg

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

// Batch is one slice of a dataset: a named array per feature.
type Batch struct {
	// ID identifies the batch within a run. Retries reuse the ID.
	ID      int64
	Columns map[string]tensor.Array
}

// Rows returns the largest batch dimension among the columns.
func (b Batch) Rows() int {
	rows := 0
	for _, c := range b.Columns {
		rows = max(rows, rowsOf(c))
	}
	return rows
}

func rowsOf(a tensor.Array) int {
	s := a.Shape()
	if len(s) == 0 {
		return 1
	}
	return s[0]
}

// BatchResult holds the partial aggregates of one batch, or of several
// batches merged with Combine.
type BatchResult struct {
	// Batch is the batch id, or -1 for a combined result.
	Batch int64
	Rows  int64
	// Aggregates maps a feature name to one aggregate per declared reducer,
	// in declaration order.
	Aggregates map[string][]reduce.Aggregate
}

// Features returns the feature names in sorted order.
func (r *BatchResult) Features() []string {
	return slices.Sorted(maps.Keys(r.Aggregates))
}

// Analyzer reduces batches of declared features to partial aggregates.
// It is safe for concurrent use.
type Analyzer struct {
	features []*feature
	opts     options
}

// New validates the feature declarations and builds their reducers.
// Static dtype and shape checks happen here, before any batch is read.
func New(features []FeatureSpec, optFns ...Option) (*Analyzer, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidFeature)
	}

	specs := make(map[string]tensor.Spec, len(features))
	for _, fs := range features {
		if fs.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidFeature)
		}
		if len(fs.Reducers) == 0 {
			return nil, fmt.Errorf("%w: %q has no reducers", ErrInvalidFeature, fs.Name)
		}
		if _, ok := specs[fs.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFeature, fs.Name)
		}
		specs[fs.Name] = fs.Spec
	}

	a := &Analyzer{opts: applyOptions(optFns)}
	for _, fs := range features {
		f, err := buildFeature(fs, specs)
		if err != nil {
			return nil, err
		}
		a.features = append(a.features, f)
	}
	return a, nil
}

// Features returns the feature declarations.
func (a *Analyzer) Features() []FeatureSpec {
	out := make([]FeatureSpec, len(a.features))
	for i, f := range a.features {
		out[i] = f.FeatureSpec
	}
	return out
}

// ReduceBatch runs every reducer of every feature on b. Any failure aborts
// the batch; the returned error is a *FeatureError.
func (a *Analyzer) ReduceBatch(ctx context.Context, b Batch) (*BatchResult, error) {
	start := time.Now()
	rows := b.Rows()

	res, err := a.reduceBatch(ctx, b)

	a.opts.metricsCollector.RecordBatch(rows, time.Since(start), err)
	a.opts.logger.LogBatch(ctx, b.ID, rows, err)
	if err != nil {
		return nil, err
	}
	res.Rows = int64(rows)
	return res, nil
}

func (a *Analyzer) reduceBatch(ctx context.Context, b Batch) (*BatchResult, error) {
	res := &BatchResult{
		Batch:      b.ID,
		Aggregates: make(map[string][]reduce.Aggregate, len(a.features)),
	}
	for _, f := range a.features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, ok := b.Columns[f.Name]
		if !ok {
			return nil, featureError(f.Name, "", b.ID, ErrMissingFeature)
		}

		aggs := make([]reduce.Aggregate, len(f.reducers))
		for i, r := range f.reducers {
			rs := f.Reducers[i]
			in := reduce.Input{X: x}
			if rs.Weights != "" {
				if in.Weights, ok = b.Columns[rs.Weights]; !ok {
					return nil, featureError(f.Name, rs.String(), b.ID, fmt.Errorf("%w: weights %q", ErrMissingFeature, rs.Weights))
				}
			}
			if rs.Labels != "" {
				if in.Labels, ok = b.Columns[rs.Labels]; !ok {
					return nil, featureError(f.Name, rs.String(), b.ID, fmt.Errorf("%w: labels %q", ErrMissingFeature, rs.Labels))
				}
			}

			start := time.Now()
			agg, err := r.Apply(in)
			a.opts.metricsCollector.RecordReduce(f.Name, r.Op(), time.Since(start), err)
			a.opts.logger.LogReduce(ctx, f.Name, rs.String(), err)
			if err != nil {
				return nil, featureError(f.Name, rs.String(), b.ID, err)
			}
			aggs[i] = agg
		}
		res.Aggregates[f.Name] = aggs
	}
	return res, nil
}

// Combine merges two results of the same analyzer. The merge is associative
// and commutative, so results may be combined in any order.
func Combine(x, y *BatchResult) (*BatchResult, error) {
	if x == nil {
		return y, nil
	}
	if y == nil {
		return x, nil
	}
	if len(x.Aggregates) != len(y.Aggregates) {
		return nil, fmt.Errorf("%w: %d and %d features", ErrIncompatibleResults, len(x.Aggregates), len(y.Aggregates))
	}

	out := &BatchResult{
		Batch:      -1,
		Rows:       x.Rows + y.Rows,
		Aggregates: make(map[string][]reduce.Aggregate, len(x.Aggregates)),
	}
	for name, xs := range x.Aggregates {
		ys, ok := y.Aggregates[name]
		if !ok {
			return nil, fmt.Errorf("%w: feature %q", ErrIncompatibleResults, name)
		}
		if len(xs) != len(ys) {
			return nil, fmt.Errorf("%w: feature %q has %d and %d reducers", ErrIncompatibleResults, name, len(xs), len(ys))
		}
		merged := make([]reduce.Aggregate, len(xs))
		for i := range xs {
			m, err := reduce.Merge(xs[i], ys[i])
			if err != nil {
				return nil, featureError(name, xs[i].Op(), -1, err)
			}
			merged[i] = m
		}
		out.Aggregates[name] = merged
	}
	return out, nil
}
