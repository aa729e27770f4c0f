package reduce

import (
	"fmt"

	"github.com/hupe1980/batchagg/internal/bitmap"
	"github.com/hupe1980/batchagg/tensor"
)

// CountReducer counts the valid elements of a batch. The result is always
// Int64.
//
// For dense floating point batches NaN is not counted. Every present
// coordinate of a sparse batch is counted, including explicit NaN values.
type CountReducer struct {
	spec               tensor.Spec
	reduceInstanceDims bool
}

// NewCountReducer creates a CountReducer for batches described by spec.
// Any element type, including String, can be counted.
func NewCountReducer(spec tensor.Spec, reduceInstanceDims bool) (*CountReducer, error) {
	if err := checkSpec(spec); err != nil {
		return nil, wrap(OpCount, err)
	}
	if spec.DType == tensor.Invalid {
		return nil, wrap(OpCount, fmt.Errorf("%w: %s", ErrUnsupportedType, spec.DType))
	}
	return &CountReducer{spec: spec, reduceInstanceDims: reduceInstanceDims}, nil
}

// Op implements Reducer.
func (r *CountReducer) Op() string { return OpCount }

// Apply implements Reducer.
func (r *CountReducer) Apply(in Input) (Aggregate, error) {
	c, err := r.Reduce(in.X)
	if err != nil {
		return nil, err
	}
	return &Total{Kind: OpCount, Value: c}, nil
}

// Reduce returns the number of valid elements of x, either as a scalar or
// per column.
func (r *CountReducer) Reduce(x tensor.Array) (*tensor.Dense, error) {
	if err := checkInput(r.spec, x); err != nil {
		return nil, wrap(OpCount, err)
	}
	c, err := count(x, r.reduceInstanceDims)
	return c, wrap(OpCount, err)
}

// Count is a one-shot CountReducer built from x's own spec.
func Count(x tensor.Array, reduceInstanceDims bool) (*tensor.Dense, error) {
	r, err := NewCountReducer(x.Spec(), reduceInstanceDims)
	if err != nil {
		return nil, err
	}
	return r.Reduce(x)
}

func count(x tensor.Array, reduceInstanceDims bool) (*tensor.Dense, error) {
	shape := outShape(x.Shape(), reduceInstanceDims)
	switch v := x.(type) {
	case *tensor.Dense:
		return countDense(v, shape, reduceInstanceDims)
	case *tensor.Sparse:
		// The indicator of a sparse batch is 1 at every present coordinate.
		return tensor.NewDense(shape, countPerSlot(v.NNZ(), shape.NumElements(), sparseColumns(v, reduceInstanceDims)))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

func countDense(x *tensor.Dense, shape tensor.Shape, reduceInstanceDims bool) (*tensor.Dense, error) {
	missing, err := nanMask(x)
	if err != nil {
		return nil, err
	}

	n := x.Len()
	if reduceInstanceDims {
		return tensor.Scalar(int64(n) - int64(missing.Cardinality())), nil
	}

	cols := shape.NumElements()
	counts := make([]int64, cols)
	if cols > 0 {
		rows := int64(n / cols)
		perCol := missing.CountByColumn(cols)
		for c := range counts {
			counts[c] = rows - perCol[c]
		}
	}
	return tensor.NewDense(shape, counts)
}

// nanMask returns the positions of NaN elements. Non-floating arrays have
// none.
func nanMask(x *tensor.Dense) (*bitmap.Mask, error) {
	switch v := x.Data().(type) {
	case []float32:
		return bitmap.NaNPositions(v)
	case []float64:
		return bitmap.NaNPositions(v)
	default:
		return bitmap.New(), nil
	}
}

func countPerSlot(n, slots int, col columnFunc) []int64 {
	out := make([]int64, slots)
	for i := 0; i < n; i++ {
		out[col(i)]++
	}
	return out
}
