// Package reduce turns one batch of a feature into a small partial aggregate.
//
// Every reducer is a pure function of its input batch. Partial aggregates of
// disjoint batches merge, with an associative and commutative operator, to the
// aggregate of the concatenated batches:
//
//   - Count and Sum merge by addition.
//   - MinMax merges by elementwise maximum. The minimum is carried negated so
//     one maximum covers both extremes.
//   - Moments merge by count-weighted combination of mean and variance.
//   - Vocab merges by union on the unique value with field-wise addition.
//
// # Construction and application
//
// Reducers are built from a tensor.Spec, which may contain Unknown
// dimensions. Construction fails fast on problems visible in the spec alone,
// such as an unsupported element type. Applying a reducer to a concrete
// batch performs the checks that depend on data.
//
//	r, err := reduce.NewMinMaxReducer(tensor.DenseSpec(tensor.Float32, tensor.Unknown, 3), false)
//	if err != nil {
//	    return err // e.g. ErrUnsupportedType
//	}
//	mm, err := r.Reduce(batch)
//
// The one-shot helpers Count, Sum, CountMeanVar, MinusMinMax and Vocabulary
// build a reducer from the batch's own spec and apply it.
//
// # Missing values
//
// In dense floating point batches NaN marks a missing value: it is excluded
// from counts and sums. Explicit NaN values in sparse batches are counted.
// Absent sparse coordinates never participate in any reduction.
package reduce
