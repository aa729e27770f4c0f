package reduce

import (
	"errors"
	"fmt"

	"github.com/hupe1980/batchagg/internal/shapeguard"
)

var (
	// ErrUnsupportedType is returned when a reducer cannot handle the element type.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrShapeMismatch is returned when paired arrays differ in shape.
	ErrShapeMismatch = shapeguard.ErrShapeMismatch

	// ErrLabelDomain is returned when a label is outside {0, 1}.
	ErrLabelDomain = errors.New("label outside {0, 1}")

	// ErrUnimplementedShape is returned for sparse ranks a reducer does not implement.
	ErrUnimplementedShape = errors.New("unimplemented shape")

	// ErrMissingLabels is returned when mutual information ordering has no labels.
	ErrMissingLabels = errors.New("labels required")

	// ErrIncompatibleAggregates is returned when two partial aggregates cannot be merged.
	ErrIncompatibleAggregates = errors.New("incompatible aggregates")
)

// ReduceError records the reducer that failed.
type ReduceError struct {
	Op  string
	Err error
}

func (e *ReduceError) Error() string {
	return fmt.Sprintf("reduce %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReduceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ReduceError{Op: op, Err: err}
}
