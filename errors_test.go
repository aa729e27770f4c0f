package batchagg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"UnsupportedType", &reduce.ReduceError{Op: reduce.OpMinMax, Err: reduce.ErrUnsupportedType}, ErrUnsupportedType},
		{"DType", fmt.Errorf("%w: int64", tensor.ErrDTypeMismatch), ErrUnsupportedType},
		{"Shape", reduce.ErrShapeMismatch, ErrShapeMismatch},
		{"InvalidShape", tensor.ErrInvalidShape, ErrShapeMismatch},
		{"Labels", reduce.ErrLabelDomain, ErrLabelDomain},
		{"Unimplemented", reduce.ErrUnimplementedShape, ErrUnimplemented},
		{"MissingLabels", reduce.ErrMissingLabels, ErrInvalidFeature},
		{"Incompatible", reduce.ErrIncompatibleAggregates, ErrIncompatibleResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.in)
		})
	}

	assert.NoError(t, translateError(nil))
	other := errors.New("other")
	assert.Same(t, other, translateError(other))
}

func TestFeatureError(t *testing.T) {
	err := featureError("age", "sum", 4, reduce.ErrLabelDomain)
	assert.EqualError(t, err, `batch 4: feature "age" (sum): label outside {0, 1}: label outside {0, 1}`)
	assert.ErrorIs(t, err, ErrLabelDomain)

	err = featureError("age", "sum", -1, errors.New("bad"))
	assert.EqualError(t, err, `feature "age" (sum): bad`)
}
