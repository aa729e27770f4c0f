package reduce

import (
	"fmt"

	"github.com/hupe1980/batchagg/internal/shapeguard"
	"github.com/hupe1980/batchagg/tensor"
)

// Reducer names.
const (
	OpCount      = "count"
	OpSum        = "sum"
	OpMeanVar    = "mean_var"
	OpMinMax     = "min_max"
	OpVocabulary = "vocabulary"
)

// Input is one batch of a feature. Weights and Labels are only read by the
// vocabulary reducer.
type Input struct {
	X       tensor.Array
	Weights tensor.Array
	Labels  tensor.Array
}

// Reducer reduces one batch to a partial aggregate.
type Reducer interface {
	// Op returns the reducer name.
	Op() string
	// Apply reduces the batch.
	Apply(in Input) (Aggregate, error)
}

// checkSpec validates a spec at construction time.
func checkSpec(spec tensor.Spec) error {
	if spec.Kind != tensor.KindDense && spec.Kind != tensor.KindSparse {
		return fmt.Errorf("%w: unknown array kind %d", tensor.ErrInvalidShape, spec.Kind)
	}
	for _, d := range spec.Shape {
		if d < tensor.Unknown {
			return &tensor.ShapeError{Shape: spec.Shape.Clone(), Reason: "negative dimension"}
		}
	}
	return nil
}

// checkInput validates a materialized batch against the spec a reducer was
// built from.
func checkInput(spec tensor.Spec, x tensor.Array) error {
	if x == nil {
		return fmt.Errorf("%w: nil batch", tensor.ErrInvalidShape)
	}
	if x.Kind() != spec.Kind {
		return fmt.Errorf("%w: expected %s array, got %s", tensor.ErrInvalidShape, spec.Kind, x.Kind())
	}
	if x.DType() != spec.DType {
		return fmt.Errorf("%w: expected %s, got %s", tensor.ErrDTypeMismatch, spec.DType, x.DType())
	}
	if got := x.Shape(); !got.CompatibleWith(spec.Shape) {
		return &shapeguard.MismatchError{Got: got, Want: spec.Shape.Clone()}
	}
	return nil
}

// outShape is the shape of a reduction result: a scalar when all instance
// dimensions are collapsed, the instance shape otherwise.
func outShape(shape tensor.Shape, reduceInstanceDims bool) tensor.Shape {
	if reduceInstanceDims {
		return tensor.Shape{}
	}
	return shape.Instance()
}

// columnFunc maps the i-th element of a batch to its output slot.
type columnFunc func(i int) int

func collapsed(int) int { return 0 }

// denseColumns returns the column of a flat row-major element index.
func denseColumns(x *tensor.Dense, reduceInstanceDims bool) columnFunc {
	if reduceInstanceDims {
		return collapsed
	}
	cols := x.Shape().Instance().NumElements()
	return func(i int) int { return i % cols }
}

// sparseColumns returns the column of the i-th present coordinate.
func sparseColumns(x *tensor.Sparse, reduceInstanceDims bool) columnFunc {
	if reduceInstanceDims {
		return collapsed
	}
	return x.InstanceOffset
}
