package example

import (
	"fmt"
	"maps"

	"github.com/hupe1980/batchagg/tensor"
)

// DefaultValues maps an element type to the value used for absent sparse
// coordinates.
type DefaultValues map[tensor.DType]any

// StandardDefaults returns the empty string for String and zero for Float32
// and Int64.
func StandardDefaults() DefaultValues {
	return DefaultValues{
		tensor.String:  "",
		tensor.Float32: float32(0),
		tensor.Int64:   int64(0),
	}
}

func (d DefaultValues) validate() error {
	for dt, v := range d {
		var ok bool
		switch dt {
		case tensor.String:
			_, ok = v.(string)
		case tensor.Float32:
			_, ok = v.(float32)
		case tensor.Int64:
			_, ok = v.(int64)
		default:
			return fmt.Errorf("%w: no feature list holds %s", ErrUnsupportedType, dt)
		}
		if !ok {
			return fmt.Errorf("%w: default %v (%T) for %s", ErrUnsupportedType, v, v, dt)
		}
	}
	return nil
}

func (d DefaultValues) clone() DefaultValues {
	return maps.Clone(d)
}
