package reduce

import (
	"fmt"

	"github.com/hupe1980/batchagg/tensor"
)

// MomentsReducer computes count, mean and variance of a batch with a two-pass
// algorithm: the mean is Sum/Count and the variance is the sum of squared
// deviations from that mean divided by Count.
//
// Mean and variance are Float32 for Float32 input and Float64 otherwise.
type MomentsReducer struct {
	spec               tensor.Spec
	reduceInstanceDims bool
}

// NewMomentsReducer creates a MomentsReducer for batches described by spec.
// Sparse batches must be rank 2 unless instance dimensions are collapsed.
func NewMomentsReducer(spec tensor.Spec, reduceInstanceDims bool) (*MomentsReducer, error) {
	if err := checkSpec(spec); err != nil {
		return nil, wrap(OpMeanVar, err)
	}
	if !spec.DType.IsNumeric() {
		return nil, wrap(OpMeanVar, fmt.Errorf("%w: %s", ErrUnsupportedType, spec.DType))
	}
	if spec.Kind == tensor.KindSparse && !reduceInstanceDims && spec.Shape.Rank() != 2 {
		return nil, wrap(OpMeanVar, fmt.Errorf("%w: per-column moments of rank %d sparse array", ErrUnimplementedShape, spec.Shape.Rank()))
	}
	return &MomentsReducer{spec: spec, reduceInstanceDims: reduceInstanceDims}, nil
}

// Op implements Reducer.
func (r *MomentsReducer) Op() string { return OpMeanVar }

// Apply implements Reducer.
func (r *MomentsReducer) Apply(in Input) (Aggregate, error) {
	m, err := r.Reduce(in.X)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Reduce returns the moments of x.
func (r *MomentsReducer) Reduce(x tensor.Array) (*Moments, error) {
	if err := checkInput(r.spec, x); err != nil {
		return nil, wrap(OpMeanVar, err)
	}
	m, err := moments(x, r.reduceInstanceDims)
	return m, wrap(OpMeanVar, err)
}

// CountMeanVar is a one-shot MomentsReducer built from x's own spec.
func CountMeanVar(x tensor.Array, reduceInstanceDims bool) (count, mean, variance *tensor.Dense, err error) {
	r, err := NewMomentsReducer(x.Spec(), reduceInstanceDims)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := r.Reduce(x)
	if err != nil {
		return nil, nil, nil, err
	}
	return m.Count, m.Mean, m.Variance, nil
}

// MomentsDType returns the dtype of mean and variance over elements of dtype d.
func MomentsDType(d tensor.DType) tensor.DType {
	if d == tensor.Float32 {
		return tensor.Float32
	}
	return tensor.Float64
}

func moments(x tensor.Array, reduceInstanceDims bool) (*Moments, error) {
	// Coordinates are irrelevant once every instance dimension collapses.
	if s, ok := x.(*tensor.Sparse); ok && reduceInstanceDims {
		x = s.Values()
	}

	cnt, err := count(x, reduceInstanceDims)
	if err != nil {
		return nil, err
	}
	total, err := sum(x, reduceInstanceDims)
	if err != nil {
		return nil, err
	}

	dtype := MomentsDType(x.DType())
	shape := cnt.Shape()
	counts, err := cnt.Float64s()
	if err != nil {
		return nil, err
	}
	sums, err := total.Float64s()
	if err != nil {
		return nil, err
	}

	means := make([]float64, len(counts))
	for i := range means {
		means[i] = sums[i] / counts[i]
	}
	mean, err := tensor.FromFloat64s(dtype, shape, means)
	if err != nil {
		return nil, err
	}
	// Center on the mean as it is reported.
	if means, err = mean.Float64s(); err != nil {
		return nil, err
	}

	var (
		squares []float64
		col     columnFunc
		skipNaN bool
	)
	switch v := x.(type) {
	case *tensor.Dense:
		if squares, err = v.Float64s(); err != nil {
			return nil, err
		}
		col, skipNaN = denseColumns(v, reduceInstanceDims), true
	case *tensor.Sparse:
		if v.Rank() != 2 {
			return nil, fmt.Errorf("%w: per-column moments of rank %d sparse array", ErrUnimplementedShape, v.Rank())
		}
		// Only present coordinates are centered on their column's mean.
		if squares, err = v.Values().Float64s(); err != nil {
			return nil, err
		}
		col = sparseColumns(v, reduceInstanceDims)
	}

	squares = centeredSquares(squares, means, col)
	sq := sumAs[float64](squares, len(counts), col, skipNaN)
	for i := range sq {
		sq[i] /= counts[i]
	}
	variance, err := tensor.FromFloat64s(dtype, shape, sq)
	if err != nil {
		return nil, err
	}
	return &Moments{Count: cnt, Mean: mean, Variance: variance}, nil
}

func centeredSquares(vals, means []float64, col columnFunc) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		d := v - means[col(i)]
		out[i] = d * d
	}
	return out
}
