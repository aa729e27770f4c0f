package bitmap

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/batchagg/internal/conv"
)

// Mask is a set of flat element positions.
// It wraps the official roaring implementation.
type Mask struct {
	rb *roaring.Bitmap
}

// New creates a new empty mask.
func New() *Mask {
	return &Mask{
		rb: roaring.New(),
	}
}

// NaNPositions returns the positions of all NaN elements in data.
// It fails if data is too long to be addressed with 32-bit positions.
func NaNPositions[T ~float32 | ~float64](data []T) (*Mask, error) {
	if _, err := conv.IntToUint32(len(data)); err != nil {
		return nil, err
	}
	m := New()
	for i, v := range data {
		if v != v {
			m.rb.Add(uint32(i))
		}
	}
	return m, nil
}

// Add adds a position to the mask.
func (m *Mask) Add(pos uint32) {
	m.rb.Add(pos)
}

// Contains checks if a position is in the mask.
func (m *Mask) Contains(pos uint32) bool {
	return m.rb.Contains(pos)
}

// IsEmpty returns true if the mask is empty.
func (m *Mask) IsEmpty() bool {
	return m.rb.IsEmpty()
}

// Cardinality returns the number of positions in the mask.
func (m *Mask) Cardinality() uint64 {
	return m.rb.GetCardinality()
}

// Iterator returns an iterator over the positions in ascending order.
func (m *Mask) Iterator() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := m.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Or computes the union of two masks in place.
func (m *Mask) Or(other *Mask) {
	m.rb.Or(other.rb)
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	return &Mask{
		rb: m.rb.Clone(),
	}
}

// CountByColumn treats positions as row-major offsets into rows of width
// cols and returns how many positions fall into each column.
func (m *Mask) CountByColumn(cols int) []int64 {
	counts := make([]int64, cols)
	if cols == 0 {
		return counts
	}
	for pos := range m.Iterator() {
		counts[int(pos)%cols]++
	}
	return counts
}
