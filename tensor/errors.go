package tensor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned when a shape is malformed or does not match
	// the data it describes.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrDTypeMismatch is returned when data of one element type is accessed
	// as another.
	ErrDTypeMismatch = errors.New("dtype mismatch")

	// ErrIndexOutOfRange is returned when a sparse coordinate lies outside the
	// declared dense shape.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDuplicateCoordinate is returned when a sparse array lists the same
	// coordinate twice.
	ErrDuplicateCoordinate = errors.New("duplicate coordinate")
)

// ShapeError describes a malformed shape.
//
// It satisfies errors.Is(err, ErrInvalidShape).
type ShapeError struct {
	Shape  Shape
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid shape %s: %s", e.Shape, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }
