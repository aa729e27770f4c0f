package tensor

import (
	"fmt"
)

// Dense is a rectangular array stored in row-major order.
//
// A Dense is immutable once constructed: every operation in this module
// returns a new array and never writes through a caller's slice.
type Dense struct {
	dtype  DType
	shape  Shape
	static Shape
	data   any // []T matching dtype
}

var _ Array = (*Dense)(nil)

// NewDense creates a Dense array of the given shape backed by data.
// The slice is not copied.
func NewDense[T Element](shape Shape, data []T) (*Dense, error) {
	if err := shape.validate(false); err != nil {
		return nil, err
	}
	if n := shape.NumElements(); n != len(data) {
		return nil, &ShapeError{Shape: shape.Clone(), Reason: fmt.Sprintf("holds %d elements, got %d values", n, len(data))}
	}
	return &Dense{
		dtype:  DTypeOf[T](),
		shape:  shape.Clone(),
		static: shape.Clone(),
		data:   data,
	}, nil
}

// MustDense is like NewDense but panics on error.
// It is intended for tests and literals.
func MustDense[T Element](shape Shape, data []T) *Dense {
	d, err := NewDense(shape, data)
	if err != nil {
		panic(err)
	}
	return d
}

// FromSlice creates a rank-1 Dense array.
func FromSlice[T Element](data []T) *Dense {
	return MustDense(Shape{len(data)}, data)
}

// Scalar creates a rank-0 Dense array.
func Scalar[T Element](v T) *Dense {
	return MustDense(Shape{}, []T{v})
}

// Zeros creates a zero-filled Dense array of the given dtype and shape.
func Zeros(dtype DType, shape Shape) (*Dense, error) {
	if err := shape.validate(false); err != nil {
		return nil, err
	}
	n := shape.NumElements()
	var data any
	switch dtype {
	case Float32:
		data = make([]float32, n)
	case Float64:
		data = make([]float64, n)
	case Int8:
		data = make([]int8, n)
	case Int16:
		data = make([]int16, n)
	case Int32:
		data = make([]int32, n)
	case Int64:
		data = make([]int64, n)
	case Uint8:
		data = make([]uint8, n)
	case Uint16:
		data = make([]uint16, n)
	case Uint32:
		data = make([]uint32, n)
	case Uint64:
		data = make([]uint64, n)
	case String:
		data = make([]string, n)
	default:
		return nil, fmt.Errorf("%w: cannot allocate %s", ErrDTypeMismatch, dtype)
	}
	return &Dense{dtype: dtype, shape: shape.Clone(), static: shape.Clone(), data: data}, nil
}

// Values returns the backing slice of d as []T.
// The slice must not be modified.
func Values[T Element](d *Dense) ([]T, error) {
	v, ok := d.data.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: array is %s, requested %s", ErrDTypeMismatch, d.dtype, DTypeOf[T]())
	}
	return v, nil
}

// Kind implements Array.
func (d *Dense) Kind() Kind { return KindDense }

// DType implements Array.
func (d *Dense) DType() DType { return d.dtype }

// Shape implements Array.
func (d *Dense) Shape() Shape { return d.shape.Clone() }

// StaticShape implements Array.
func (d *Dense) StaticShape() Shape { return d.static.Clone() }

// Spec implements Array.
func (d *Dense) Spec() Spec {
	return Spec{Kind: KindDense, DType: d.dtype, Shape: d.static.Clone()}
}

func (d *Dense) sealed() {}

// Len returns the number of elements.
func (d *Dense) Len() int { return d.shape.NumElements() }

// Data returns the backing slice as an untyped value ([]T).
func (d *Dense) Data() any { return d.data }

// Rows returns the size of the batch dimension, or 1 for a rank-0 array.
func (d *Dense) Rows() int {
	if len(d.shape) == 0 {
		return 1
	}
	return d.shape[0]
}

// WithStaticShape returns a view of d that declares the given static shape.
// The static shape must be compatible with the concrete shape.
func (d *Dense) WithStaticShape(static Shape) (*Dense, error) {
	if err := static.validate(true); err != nil {
		return nil, err
	}
	if !static.CompatibleWith(d.shape) {
		return nil, &ShapeError{Shape: static.Clone(), Reason: "incompatible with concrete shape " + d.shape.String()}
	}
	return &Dense{dtype: d.dtype, shape: d.shape, static: static.Clone(), data: d.data}, nil
}

// Reshape returns a view of d with a new shape holding the same number of
// elements.
func (d *Dense) Reshape(shape Shape) (*Dense, error) {
	if err := shape.validate(false); err != nil {
		return nil, err
	}
	if shape.NumElements() != d.Len() {
		return nil, &ShapeError{Shape: shape.Clone(), Reason: fmt.Sprintf("cannot reshape %s", d.shape)}
	}
	return &Dense{dtype: d.dtype, shape: shape.Clone(), static: shape.Clone(), data: d.data}, nil
}

// Flatten returns a rank-1 view of d.
func (d *Dense) Flatten() *Dense {
	n := d.Len()
	return &Dense{dtype: d.dtype, shape: Shape{n}, static: Shape{n}, data: d.data}
}

// Float64s returns the elements of a numeric array as float64. For a Float64
// array this is the backing slice, which must not be modified.
func (d *Dense) Float64s() ([]float64, error) {
	c, err := Cast(d, Float64)
	if err != nil {
		return nil, err
	}
	return c.data.([]float64), nil
}

// Strings returns the backing slice of a String array.
func (d *Dense) Strings() ([]string, error) {
	return Values[string](d)
}

// String returns a short description of the array.
func (d *Dense) String() string {
	return fmt.Sprintf("Dense<%s>%s", d.dtype, d.shape)
}

// FromFloat64s builds a Dense of the requested numeric dtype by converting
// vals element by element.
func FromFloat64s(dtype DType, shape Shape, vals []float64) (*Dense, error) {
	src, err := NewDense(shape, vals)
	if err != nil {
		return nil, err
	}
	return Cast(src, dtype)
}

// Cast converts a numeric array to another numeric dtype using Go conversion
// semantics. Casting to the same dtype returns d itself.
func Cast(d *Dense, to DType) (*Dense, error) {
	if d.dtype == to {
		return d, nil
	}
	if !d.dtype.IsNumeric() || !to.IsNumeric() {
		return nil, fmt.Errorf("%w: cannot cast %s to %s", ErrDTypeMismatch, d.dtype, to)
	}
	var data any
	switch src := d.data.(type) {
	case []float32:
		data = castTo(src, to)
	case []float64:
		data = castTo(src, to)
	case []int8:
		data = castTo(src, to)
	case []int16:
		data = castTo(src, to)
	case []int32:
		data = castTo(src, to)
	case []int64:
		data = castTo(src, to)
	case []uint8:
		data = castTo(src, to)
	case []uint16:
		data = castTo(src, to)
	case []uint32:
		data = castTo(src, to)
	case []uint64:
		data = castTo(src, to)
	}
	return &Dense{dtype: to, shape: d.shape, static: d.static, data: data}, nil
}

func castTo[S Number](src []S, to DType) any {
	switch to {
	case Float32:
		return convert[S, float32](src)
	case Float64:
		return convert[S, float64](src)
	case Int8:
		return convert[S, int8](src)
	case Int16:
		return convert[S, int16](src)
	case Int32:
		return convert[S, int32](src)
	case Int64:
		return convert[S, int64](src)
	case Uint8:
		return convert[S, uint8](src)
	case Uint16:
		return convert[S, uint16](src)
	case Uint32:
		return convert[S, uint32](src)
	default:
		return convert[S, uint64](src)
	}
}

func convert[S, D Number](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}
