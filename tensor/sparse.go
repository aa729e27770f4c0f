package tensor

import (
	"fmt"
)

// Sparse is a coordinate-list array. Coordinates are unique; an omitted
// coordinate is absent (neither zero nor NaN).
type Sparse struct {
	indices    []int64 // nnz*rank coordinates, one row per value
	values     *Dense  // rank 1, nnz elements
	denseShape Shape
	static     Shape
}

var _ Array = (*Sparse)(nil)

// NewSparse creates a Sparse array from coordinates, a rank-1 values array
// with one value per coordinate, and the dense shape the coordinates index.
func NewSparse(indices [][]int64, values *Dense, denseShape Shape) (*Sparse, error) {
	if err := denseShape.validate(false); err != nil {
		return nil, err
	}
	if values == nil || values.shape.Rank() != 1 {
		return nil, &ShapeError{Shape: denseShape.Clone(), Reason: "sparse values must be rank 1"}
	}
	if values.Len() != len(indices) {
		return nil, &ShapeError{Shape: denseShape.Clone(), Reason: fmt.Sprintf("%d coordinates for %d values", len(indices), values.Len())}
	}

	rank := denseShape.Rank()
	flat := make([]int64, 0, len(indices)*rank)
	seen := make(map[int64]struct{}, len(indices))
	for i, coord := range indices {
		if len(coord) != rank {
			return nil, &ShapeError{Shape: denseShape.Clone(), Reason: fmt.Sprintf("coordinate %d has rank %d", i, len(coord))}
		}
		var offset int64
		for axis, c := range coord {
			if c < 0 || c >= int64(denseShape[axis]) {
				return nil, fmt.Errorf("%w: coordinate %v outside %s", ErrIndexOutOfRange, coord, denseShape)
			}
			offset = offset*int64(denseShape[axis]) + c
		}
		if _, dup := seen[offset]; dup {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateCoordinate, coord)
		}
		seen[offset] = struct{}{}
		flat = append(flat, coord...)
	}

	return &Sparse{
		indices:    flat,
		values:     values,
		denseShape: denseShape.Clone(),
		static:     denseShape.Clone(),
	}, nil
}

// MustSparse is like NewSparse but panics on error.
func MustSparse(indices [][]int64, values *Dense, denseShape Shape) *Sparse {
	s, err := NewSparse(indices, values, denseShape)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind implements Array.
func (s *Sparse) Kind() Kind { return KindSparse }

// DType implements Array.
func (s *Sparse) DType() DType { return s.values.dtype }

// Shape implements Array. It is the dense shape.
func (s *Sparse) Shape() Shape { return s.denseShape.Clone() }

// StaticShape implements Array.
func (s *Sparse) StaticShape() Shape { return s.static.Clone() }

// Spec implements Array.
func (s *Sparse) Spec() Spec {
	return Spec{Kind: KindSparse, DType: s.values.dtype, Shape: s.static.Clone()}
}

func (s *Sparse) sealed() {}

// NNZ returns the number of present coordinates.
func (s *Sparse) NNZ() int { return s.values.Len() }

// Rank returns the rank of the dense shape.
func (s *Sparse) Rank() int { return s.denseShape.Rank() }

// Values returns the rank-1 array of present values.
func (s *Sparse) Values() *Dense { return s.values }

// Index returns the coordinate of the i-th present value.
// The returned slice must not be modified.
func (s *Sparse) Index(i int) []int64 {
	r := s.denseShape.Rank()
	return s.indices[i*r : (i+1)*r : (i+1)*r]
}

// Indices returns a copy of all coordinates.
func (s *Sparse) Indices() [][]int64 {
	out := make([][]int64, s.NNZ())
	for i := range out {
		out[i] = append([]int64(nil), s.Index(i)...)
	}
	return out
}

// InstanceOffset returns the row-major offset of the i-th coordinate within
// the instance dimensions (all dimensions after the batch dimension).
func (s *Sparse) InstanceOffset(i int) int {
	coord := s.Index(i)
	offset := 0
	for axis := 1; axis < len(coord); axis++ {
		offset = offset*s.denseShape[axis] + int(coord[axis])
	}
	return offset
}

// WithValues returns a Sparse array with the same coordinates and dense shape
// but different values.
func (s *Sparse) WithValues(values *Dense) (*Sparse, error) {
	if values == nil || values.shape.Rank() != 1 || values.Len() != s.NNZ() {
		return nil, &ShapeError{Shape: s.denseShape.Clone(), Reason: "replacement values must be rank 1 with one value per coordinate"}
	}
	return &Sparse{indices: s.indices, values: values, denseShape: s.denseShape, static: s.static}, nil
}

// WithStaticShape returns a view of s that declares the given static shape.
func (s *Sparse) WithStaticShape(static Shape) (*Sparse, error) {
	if err := static.validate(true); err != nil {
		return nil, err
	}
	if !static.CompatibleWith(s.denseShape) {
		return nil, &ShapeError{Shape: static.Clone(), Reason: "incompatible with dense shape " + s.denseShape.String()}
	}
	return &Sparse{indices: s.indices, values: s.values, denseShape: s.denseShape, static: static.Clone()}, nil
}

// String returns a short description of the array.
func (s *Sparse) String() string {
	return fmt.Sprintf("Sparse<%s>%s nnz=%d", s.values.dtype, s.denseShape, s.NNZ())
}
