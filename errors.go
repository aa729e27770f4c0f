package batchagg

import (
	"errors"
	"fmt"

	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

var (
	// ErrUnsupportedType is returned when a reducer cannot handle a feature's element type.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrShapeMismatch is returned when a batch does not match the declared
	// shape, or paired arrays differ in shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrLabelDomain is returned when a mutual information label is outside {0, 1}.
	ErrLabelDomain = errors.New("label outside {0, 1}")

	// ErrUnimplemented is returned for array layouts a reducer does not implement.
	ErrUnimplemented = errors.New("unimplemented")

	// ErrMissingFeature is returned when a batch lacks a declared feature or
	// a reducer references an undeclared one.
	ErrMissingFeature = errors.New("missing feature")

	// ErrDuplicateFeature is returned when two features share a name.
	ErrDuplicateFeature = errors.New("duplicate feature")

	// ErrInvalidFeature is returned for malformed feature declarations.
	ErrInvalidFeature = errors.New("invalid feature")

	// ErrIncompatibleResults is returned when results of different analyzers are combined.
	ErrIncompatibleResults = errors.New("incompatible results")
)

// FeatureError records the feature and reducer that failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type FeatureError struct {
	Feature string
	Reducer string
	// Batch is the batch id, or -1 when the failure is not tied to a batch.
	Batch int64
	cause error
}

func (e *FeatureError) Error() string {
	if e.Batch < 0 {
		return fmt.Sprintf("feature %q (%s): %v", e.Feature, e.Reducer, e.cause)
	}
	return fmt.Sprintf("batch %d: feature %q (%s): %v", e.Batch, e.Feature, e.Reducer, e.cause)
}

func (e *FeatureError) Unwrap() error { return e.cause }

func featureError(feature, reducer string, batch int64, err error) error {
	return &FeatureError{Feature: feature, Reducer: reducer, Batch: batch, cause: translateError(err)}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, reduce.ErrUnsupportedType), errors.Is(err, tensor.ErrDTypeMismatch):
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	case errors.Is(err, reduce.ErrShapeMismatch), errors.Is(err, tensor.ErrInvalidShape):
		return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	case errors.Is(err, reduce.ErrLabelDomain):
		return fmt.Errorf("%w: %w", ErrLabelDomain, err)
	case errors.Is(err, reduce.ErrUnimplementedShape):
		return fmt.Errorf("%w: %w", ErrUnimplemented, err)
	case errors.Is(err, reduce.ErrMissingLabels):
		return fmt.Errorf("%w: %w", ErrInvalidFeature, err)
	case errors.Is(err, reduce.ErrIncompatibleAggregates):
		return fmt.Errorf("%w: %w", ErrIncompatibleResults, err)
	}

	return err
}
