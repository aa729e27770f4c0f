package tensor

import (
	"strconv"
	"strings"
)

// Unknown marks a dimension whose size is not known until the data is
// materialized.
const Unknown = -1

// Shape is the list of dimension sizes of an array. Dimension 0 is the batch
// dimension; dimensions 1..N are the instance dimensions.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// IsFullyDefined reports whether no dimension is Unknown.
func (s Shape) IsFullyDefined() bool {
	for _, d := range s {
		if d == Unknown {
			return false
		}
	}
	return true
}

// NumElements returns the product of all dimensions, or Unknown if any
// dimension is Unknown. A rank-0 shape has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		if d == Unknown {
			return Unknown
		}
		n *= d
	}
	return n
}

// Instance returns the instance dimensions (everything after the batch
// dimension). The result of a rank-0 shape is empty.
func (s Shape) Instance() Shape {
	if len(s) == 0 {
		return Shape{}
	}
	return s[1:].Clone()
}

// Equal reports whether both shapes have the same rank and dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// CompatibleWith reports whether s and o could describe the same concrete
// shape: equal rank and, per dimension, equal sizes or at least one Unknown.
func (s Shape) CompatibleWith(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != Unknown && o[i] != Unknown && s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// String returns the shape as "[d0 d1 ...]" with "?" for Unknown dimensions.
func (s Shape) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, d := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		if d == Unknown {
			b.WriteByte('?')
		} else {
			b.WriteString(strconv.Itoa(d))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (s Shape) validate(allowUnknown bool) error {
	for i, d := range s {
		if d == Unknown && allowUnknown {
			continue
		}
		if d < 0 {
			return &ShapeError{Shape: s.Clone(), Reason: "negative dimension at axis " + strconv.Itoa(i)}
		}
	}
	return nil
}
