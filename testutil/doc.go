// Package testutil provides testing utilities for batchagg.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for random dense and
// sparse batches, plus helpers to split a batch into sub-batches for
// partition-invariance checks.
//
// # Random Batches
//
//	rng := testutil.NewRNG(seed)
//	x := rng.DenseFloat64(rows, cols, 0.1) // 10% NaN
//	s := rng.SparseFloat64(rows, cols, 0.3) // 30% of coordinates present
//
// # Splitting
//
//	a, b := testutil.SplitDense(x, rows/2)
package testutil
