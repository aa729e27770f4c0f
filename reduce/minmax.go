package reduce

import (
	"fmt"
	"math"

	"github.com/hupe1980/batchagg/internal/shapeguard"
	"github.com/hupe1980/batchagg/tensor"
)

// MinMaxReducer computes the negated minimum and the maximum of a batch.
//
// Both extremes come from one maximum reduction, max(-x) and max(x), so the
// partial aggregates of many batches merge with a single elementwise max.
// Inputs of 8 and 16 bits are widened to Int32 and Int32 to Int64 before
// negation, so the type minimum negates without wrapping. Int64 has no wider
// type: its minimum saturates to the maximum Int64, reporting a minimum of
// math.MinInt64 + 1. Uint32 and Uint64 are rejected.
//
// Per-column reductions over sparse batches report a sentinel for columns
// without any present coordinate: NaN for floating point types and the type
// minimum plus one for integers. Any infinite result is reported as NaN.
type MinMaxReducer struct {
	spec               tensor.Spec
	reduceInstanceDims bool
}

// NewMinMaxReducer creates a MinMaxReducer for batches described by spec.
func NewMinMaxReducer(spec tensor.Spec, reduceInstanceDims bool) (*MinMaxReducer, error) {
	if err := checkSpec(spec); err != nil {
		return nil, wrap(OpMinMax, err)
	}
	switch spec.DType {
	case tensor.Uint32, tensor.Uint64:
		return nil, wrap(OpMinMax, fmt.Errorf("%w: cannot negate %s", ErrUnsupportedType, spec.DType))
	}
	if !spec.DType.IsNumeric() {
		return nil, wrap(OpMinMax, fmt.Errorf("%w: %s", ErrUnsupportedType, spec.DType))
	}
	return &MinMaxReducer{spec: spec, reduceInstanceDims: reduceInstanceDims}, nil
}

// Op implements Reducer.
func (r *MinMaxReducer) Op() string { return OpMinMax }

// Apply implements Reducer.
func (r *MinMaxReducer) Apply(in Input) (Aggregate, error) {
	mm, err := r.Reduce(in.X)
	if err != nil {
		return nil, err
	}
	return mm, nil
}

// Reduce returns the negated minimum and the maximum of x.
func (r *MinMaxReducer) Reduce(x tensor.Array) (*MinMax, error) {
	if err := checkInput(r.spec, x); err != nil {
		return nil, wrap(OpMinMax, err)
	}
	mm, err := minMax(x, r.reduceInstanceDims)
	return mm, wrap(OpMinMax, err)
}

// MinusMinMax is a one-shot MinMaxReducer built from x's own spec.
func MinusMinMax(x tensor.Array, reduceInstanceDims bool) (negMin, maxVal *tensor.Dense, err error) {
	r, err := NewMinMaxReducer(x.Spec(), reduceInstanceDims)
	if err != nil {
		return nil, nil, err
	}
	mm, err := r.Reduce(x)
	if err != nil {
		return nil, nil, err
	}
	return mm.NegMin, mm.Max, nil
}

// MinMaxDType returns the dtype of the extremes over elements of dtype d.
func MinMaxDType(d tensor.DType) tensor.DType {
	switch d {
	case tensor.Int8, tensor.Int16, tensor.Uint8, tensor.Uint16:
		return tensor.Int32
	case tensor.Int32:
		return tensor.Int64
	default:
		return d
	}
}

func minMax(x tensor.Array, reduceInstanceDims bool) (*MinMax, error) {
	shape := outShape(x.Shape(), reduceInstanceDims)

	var (
		vals  *tensor.Dense
		col   columnFunc
		empty []bool
	)
	switch v := x.(type) {
	case *tensor.Dense:
		vals, col = v, denseColumns(v, reduceInstanceDims)
	case *tensor.Sparse:
		// Absent coordinates never participate.
		vals, col = v.Values(), sparseColumns(v, reduceInstanceDims)
		if !reduceInstanceDims {
			counts, err := count(v, false)
			if err != nil {
				return nil, err
			}
			empty = emptySlots(counts)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}

	vals, err := tensor.Cast(vals, MinMaxDType(vals.DType()))
	if err != nil {
		return nil, err
	}

	n := shape.NumElements()
	var negMin, maxVal *tensor.Dense
	switch v := vals.Data().(type) {
	case []float32:
		negMin, maxVal, err = extremes(shape, v, n, col, empty, remapInf[float32])
	case []float64:
		negMin, maxVal, err = extremes(shape, v, n, col, empty, remapInf[float64])
	case []int32:
		negMin, maxVal, err = extremes[int32](shape, v, n, col, empty, nil)
	case []int64:
		negMin, maxVal, err = extremes[int64](shape, v, n, col, empty, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, vals.DType())
	}
	if err != nil {
		return nil, err
	}

	g, err := shapeguard.AssertSameShape(negMin, maxVal)
	if err != nil {
		return nil, err
	}
	if negMin, err = g.Value(); err != nil {
		return nil, err
	}
	return &MinMax{NegMin: negMin, Max: maxVal}, nil
}

func emptySlots(counts *tensor.Dense) []bool {
	c, _ := tensor.Values[int64](counts)
	out := make([]bool, len(c))
	for i, v := range c {
		out[i] = v == 0
	}
	return out
}

// extremes computes max(-x) and max(x) per slot. NaN elements are skipped, so
// a slot without valid elements keeps the identity of the maximum. Negating
// the type minimum saturates to the type maximum.
func extremes[T tensor.Number](shape tensor.Shape, vals []T, n int, col columnFunc, empty []bool, post func([]T)) (*tensor.Dense, *tensor.Dense, error) {
	negMin := make([]T, n)
	maxVal := make([]T, n)
	lowest, highest := tensor.Lowest[T](), tensor.Highest[T]()
	for i := range n {
		negMin[i], maxVal[i] = lowest, lowest
	}
	for i, v := range vals {
		if tensor.IsNaN(v) {
			continue
		}
		c := col(i)
		if v > maxVal[c] {
			maxVal[c] = v
		}
		nv := -v
		if v == lowest {
			nv = highest
		}
		if nv > negMin[c] {
			negMin[c] = nv
		}
	}

	if empty != nil {
		missing := tensor.Missing[T]()
		for c, e := range empty {
			if e {
				negMin[c], maxVal[c] = missing, missing
			}
		}
	}
	if post != nil {
		post(negMin)
		post(maxVal)
	}

	nm, err := tensor.NewDense(shape, negMin)
	if err != nil {
		return nil, nil, err
	}
	mx, err := tensor.NewDense(shape, maxVal)
	if err != nil {
		return nil, nil, err
	}
	return nm, mx, nil
}

// remapInf reports infinite extremes as NaN. A maximum over no valid
// elements yields -Inf; NaN is the uniform "no data" marker.
func remapInf[T tensor.Float](vals []T) {
	nan := T(math.NaN())
	for i, v := range vals {
		if math.IsInf(float64(v), 0) {
			vals[i] = nan
		}
	}
}
