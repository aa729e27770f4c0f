// Package batchagg computes mergeable per-batch summary statistics for
// tabular features.
//
// An Analyzer is built from feature declarations. Each feature names a
// static array spec and the reducers to run on it: count, sum, mean and
// variance, negated minimum and maximum, or a vocabulary. Shapes and dtypes
// are checked once when the Analyzer is built and again against every batch.
//
// # Quick Start
//
//	a, _ := batchagg.New([]batchagg.FeatureSpec{
//	    {
//	        Name:     "age",
//	        Spec:     tensor.DenseSpec(tensor.Float32, tensor.Unknown),
//	        Reducers: []batchagg.ReducerSpec{batchagg.MeanVar(true), batchagg.MinMax(true)},
//	    },
//	    {
//	        Name:     "city",
//	        Spec:     tensor.SparseSpec(tensor.String, tensor.Unknown, tensor.Unknown),
//	        Reducers: []batchagg.ReducerSpec{batchagg.Vocabulary(reduce.Frequency, "", "")},
//	    },
//	})
//
//	res, _ := a.ReduceBatch(ctx, batchagg.Batch{ID: 0, Columns: cols})
//
// # Runs and Persistence
//
// Run reduces a stream of batches concurrently, bounded by a resource
// controller, and merges the results in process. With WithPartialStore each
// batch result is also written as a partial blob and committed once per batch,
// so an external combiner can merge the run later:
//
//	store, _ := partial.New(blobstore.NewLocalStore("./partials"), blobstore.NewMemoryLedger(), partial.DefaultOptions())
//	a, _ := batchagg.New(features, batchagg.WithPartialStore(store))
//	out, _ := a.Run(ctx, batches)
//	combined, _ := a.CombineRun(ctx, out.RunID)
//
// Merging is associative: combining the partials of any split of a dataset
// gives the statistics of the whole dataset. Final statistics such as the
// global mean or a truncated, ordered vocabulary are left to the combiner.
package batchagg
