package reduce

import (
	"fmt"

	"github.com/hupe1980/batchagg/tensor"
)

// SumReducer sums the elements of a batch.
//
// Dense NaN values are treated as zero. Floating point sums accumulate in
// float64 and keep the input dtype; signed integers sum to Int64 and unsigned
// integers to Uint64.
type SumReducer struct {
	spec               tensor.Spec
	reduceInstanceDims bool
}

// NewSumReducer creates a SumReducer for batches described by spec.
func NewSumReducer(spec tensor.Spec, reduceInstanceDims bool) (*SumReducer, error) {
	if err := checkSpec(spec); err != nil {
		return nil, wrap(OpSum, err)
	}
	if !spec.DType.IsNumeric() {
		return nil, wrap(OpSum, fmt.Errorf("%w: %s", ErrUnsupportedType, spec.DType))
	}
	return &SumReducer{spec: spec, reduceInstanceDims: reduceInstanceDims}, nil
}

// Op implements Reducer.
func (r *SumReducer) Op() string { return OpSum }

// Apply implements Reducer.
func (r *SumReducer) Apply(in Input) (Aggregate, error) {
	s, err := r.Reduce(in.X)
	if err != nil {
		return nil, err
	}
	return &Total{Kind: OpSum, Value: s}, nil
}

// Reduce returns the sum of x, either as a scalar or per column.
func (r *SumReducer) Reduce(x tensor.Array) (*tensor.Dense, error) {
	if err := checkInput(r.spec, x); err != nil {
		return nil, wrap(OpSum, err)
	}
	s, err := sum(x, r.reduceInstanceDims)
	return s, wrap(OpSum, err)
}

// Sum is a one-shot SumReducer built from x's own spec.
func Sum(x tensor.Array, reduceInstanceDims bool) (*tensor.Dense, error) {
	r, err := NewSumReducer(x.Spec(), reduceInstanceDims)
	if err != nil {
		return nil, err
	}
	return r.Reduce(x)
}

// SumDType returns the dtype of a sum over elements of dtype d.
func SumDType(d tensor.DType) tensor.DType {
	switch {
	case d.IsFloating():
		return d
	case d.IsUnsigned():
		return tensor.Uint64
	default:
		return tensor.Int64
	}
}

func sum(x tensor.Array, reduceInstanceDims bool) (*tensor.Dense, error) {
	shape := outShape(x.Shape(), reduceInstanceDims)
	switch v := x.(type) {
	case *tensor.Dense:
		return sumValues(v, shape, denseColumns(v, reduceInstanceDims), true)
	case *tensor.Sparse:
		return sumValues(v.Values(), shape, sparseColumns(v, reduceInstanceDims), false)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// sumValues adds every element of vals into the slot chosen by col.
func sumValues(vals *tensor.Dense, shape tensor.Shape, col columnFunc, skipNaN bool) (*tensor.Dense, error) {
	n := shape.NumElements()
	switch v := vals.Data().(type) {
	case []float32:
		return tensor.FromFloat64s(tensor.Float32, shape, sumAs[float64](v, n, col, skipNaN))
	case []float64:
		return tensor.NewDense(shape, sumAs[float64](v, n, col, skipNaN))
	case []int8:
		return tensor.NewDense(shape, sumAs[int64](v, n, col, false))
	case []int16:
		return tensor.NewDense(shape, sumAs[int64](v, n, col, false))
	case []int32:
		return tensor.NewDense(shape, sumAs[int64](v, n, col, false))
	case []int64:
		return tensor.NewDense(shape, sumAs[int64](v, n, col, false))
	case []uint8:
		return tensor.NewDense(shape, sumAs[uint64](v, n, col, false))
	case []uint16:
		return tensor.NewDense(shape, sumAs[uint64](v, n, col, false))
	case []uint32:
		return tensor.NewDense(shape, sumAs[uint64](v, n, col, false))
	case []uint64:
		return tensor.NewDense(shape, sumAs[uint64](v, n, col, false))
	default:
		return nil, fmt.Errorf("%w: cannot sum %s", ErrUnsupportedType, vals.DType())
	}
}

func sumAs[A int64 | uint64 | float64, T tensor.Number](vals []T, n int, col columnFunc, skipNaN bool) []A {
	out := make([]A, n)
	for i, v := range vals {
		if skipNaN && tensor.IsNaN(v) {
			continue
		}
		out[col(i)] += A(v)
	}
	return out
}
