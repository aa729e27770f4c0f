package tensor

// Kind tags the representation of an Array.
type Kind uint8

const (
	// KindDense is a rectangular, fully populated array.
	KindDense Kind = iota + 1
	// KindSparse is a coordinate-list array.
	KindSparse
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// Array is implemented by *Dense and *Sparse only.
type Array interface {
	// Kind returns the representation tag.
	Kind() Kind
	// DType returns the element type.
	DType() DType
	// Shape returns the concrete shape of the materialized data.
	Shape() Shape
	// StaticShape returns the declared shape, which may contain Unknown
	// dimensions.
	StaticShape() Shape
	// Spec returns the static description of the array.
	Spec() Spec

	sealed()
}

// Spec is the static description of an array: what is known before any
// batch is materialized.
type Spec struct {
	Kind  Kind
	DType DType
	Shape Shape
}

// DenseSpec returns a Spec for a dense array.
func DenseSpec(dtype DType, shape ...int) Spec {
	return Spec{Kind: KindDense, DType: dtype, Shape: Shape(shape).Clone()}
}

// SparseSpec returns a Spec for a sparse array.
func SparseSpec(dtype DType, shape ...int) Spec {
	return Spec{Kind: KindSparse, DType: dtype, Shape: Shape(shape).Clone()}
}

// String returns a compact representation such as "dense<float32>[? 3]".
func (s Spec) String() string {
	return s.Kind.String() + "<" + s.DType.String() + ">" + s.Shape.String()
}
