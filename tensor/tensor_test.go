package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_CompatibleWith(t *testing.T) {
	tests := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"equal", Shape{2, 3}, Shape{2, 3}, true},
		{"unknown batch", Shape{Unknown, 3}, Shape{7, 3}, true},
		{"rank differs", Shape{2, 3}, Shape{6}, false},
		{"dim differs", Shape{2, 3}, Shape{2, 4}, false},
		{"scalars", Shape{}, Shape{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.CompatibleWith(tt.b))
			assert.Equal(t, tt.want, tt.b.CompatibleWith(tt.a))
		})
	}
}

func TestShape_Helpers(t *testing.T) {
	s := Shape{4, 2, 3}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, Shape{2, 3}, s.Instance())
	assert.Equal(t, "[4 2 3]", s.String())
	assert.Equal(t, "[? 3]", Shape{Unknown, 3}.String())
	assert.Equal(t, Unknown, Shape{Unknown, 3}.NumElements())
	assert.False(t, Shape{Unknown}.IsFullyDefined())
	assert.Equal(t, 1, Shape{}.NumElements())
}

func TestNewDense(t *testing.T) {
	d, err := NewDense(Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, Float32, d.DType())
	assert.Equal(t, 2, d.Rows())
	assert.Equal(t, KindDense, d.Kind())

	_, err = NewDense(Shape{3}, []int64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewDense(Shape{-2}, []int64{})
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = Values[int64](d)
	assert.ErrorIs(t, err, ErrDTypeMismatch)
}

func TestDense_WithStaticShape(t *testing.T) {
	d := MustDense(Shape{2, 3}, []int32{1, 2, 3, 4, 5, 6})

	v, err := d.WithStaticShape(Shape{Unknown, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{Unknown, 3}, v.StaticShape())
	assert.Equal(t, Shape{2, 3}, v.Shape())
	assert.Equal(t, DenseSpec(Int32, Unknown, 3), v.Spec())

	_, err = d.WithStaticShape(Shape{Unknown, 4})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestDense_ReshapeAndFlatten(t *testing.T) {
	d := MustDense(Shape{2, 3}, []uint8{1, 2, 3, 4, 5, 6})

	r, err := d.Reshape(Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, r.Shape())

	_, err = d.Reshape(Shape{4})
	assert.ErrorIs(t, err, ErrInvalidShape)

	assert.Equal(t, Shape{6}, d.Flatten().Shape())
}

func TestCast(t *testing.T) {
	d := FromSlice([]uint8{0, 200, 255})
	c, err := Cast(d, Int32)
	require.NoError(t, err)
	v, err := Values[int32](c)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 200, 255}, v)

	same, err := Cast(d, Uint8)
	require.NoError(t, err)
	assert.Same(t, d, same)

	_, err = Cast(FromSlice([]string{"a"}), Float32)
	assert.ErrorIs(t, err, ErrDTypeMismatch)
}

func TestZeros(t *testing.T) {
	z, err := Zeros(String, Shape{2})
	require.NoError(t, err)
	s, err := z.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, s)

	_, err = Zeros(Invalid, Shape{1})
	assert.ErrorIs(t, err, ErrDTypeMismatch)
}

func TestNewSparse(t *testing.T) {
	values := FromSlice([]float32{1, 2, 3})

	s, err := NewSparse([][]int64{{0, 0}, {1, 2}, {3, 1}}, values, Shape{4, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.NNZ())
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, []int64{1, 2}, s.Index(1))
	assert.Equal(t, 2, s.InstanceOffset(1))
	assert.Equal(t, KindSparse, s.Spec().Kind)

	t.Run("duplicate", func(t *testing.T) {
		_, err := NewSparse([][]int64{{0, 0}, {0, 0}, {1, 1}}, values, Shape{4, 3})
		assert.ErrorIs(t, err, ErrDuplicateCoordinate)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := NewSparse([][]int64{{0, 0}, {0, 3}, {1, 1}}, values, Shape{4, 3})
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewSparse([][]int64{{0, 0}}, values, Shape{4, 3})
		assert.ErrorIs(t, err, ErrInvalidShape)
	})

	t.Run("coordinate rank", func(t *testing.T) {
		_, err := NewSparse([][]int64{{0}, {1}, {2}}, values, Shape{4, 3})
		assert.ErrorIs(t, err, ErrInvalidShape)
	})
}

func TestSparse_WithValues(t *testing.T) {
	s := MustSparse([][]int64{{0, 1}, {2, 0}}, FromSlice([]int64{5, 6}), Shape{3, 2})

	r, err := s.WithValues(FromSlice([]int64{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, s.Indices(), r.Indices())
	assert.Equal(t, Int64, r.DType())

	_, err = s.WithValues(FromSlice([]int64{1}))
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestWire_RoundTrip(t *testing.T) {
	tests := []*Dense{
		MustDense(Shape{2, 2}, []float32{1.5, float32(math.NaN()), float32(math.Inf(-1)), 0}),
		MustDense(Shape{3}, []float64{math.NaN(), -2, math.MaxFloat64}),
		FromSlice([]int8{-128, 0, 127}),
		FromSlice([]int64{math.MinInt64, 1}),
		FromSlice([]uint16{0, 65535}),
		Scalar(int32(math.MinInt32 + 1)),
		FromSlice([]string{"a", "", "ü"}),
		MustDense(Shape{0, 3}, []float32{}),
	}
	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			got, err := ParseWire(AppendWire(nil, want))
			require.NoError(t, err)
			assert.Equal(t, want.DType(), got.DType())
			assert.Equal(t, want.Shape(), got.Shape())

			if want.DType().IsFloating() {
				a, _ := want.Float64s()
				b, _ := got.Float64s()
				for i := range a {
					if math.IsNaN(a[i]) {
						assert.True(t, math.IsNaN(b[i]))
						continue
					}
					assert.Equal(t, a[i], b[i])
				}
				return
			}
			assert.Equal(t, want.Data(), got.Data())
		})
	}
}

func TestParseWire_Malformed(t *testing.T) {
	_, err := ParseWire([]byte{0xff})
	assert.ErrorIs(t, err, ErrMalformedWire)

	_, err = ParseWire(nil)
	assert.ErrorIs(t, err, ErrMalformedWire)
}

func TestDTypeHelpers(t *testing.T) {
	assert.True(t, Float32.IsFloating())
	assert.True(t, Uint16.IsUnsigned())
	assert.True(t, Int8.IsSigned())
	assert.False(t, String.IsNumeric())

	dt, ok := ParseDType("UINT8")
	assert.True(t, ok)
	assert.Equal(t, Uint8, dt)

	assert.True(t, math.IsInf(float64(Lowest[float32]()), -1))
	assert.Equal(t, int16(math.MinInt16), Lowest[int16]())
	assert.Equal(t, int64(math.MaxInt64), Highest[int64]())
	assert.Equal(t, uint8(math.MaxUint8), Highest[uint8]())
	assert.True(t, math.IsInf(Highest[float64](), 1))
	assert.Equal(t, int32(math.MinInt32+1), Missing[int32]())
	assert.True(t, IsNaN(Missing[float64]()))
	assert.False(t, IsNaN(int64(3)))
}
