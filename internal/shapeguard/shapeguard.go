// Package shapeguard pairs two arrays that must have the same shape.
//
// The check runs in two tiers. AssertSameShape compares the declared (static)
// shapes immediately and fails fast when they cannot match. The concrete
// shapes are compared later, when the guarded value is consumed through
// Guarded.Value; that check runs exactly once no matter how often Value is
// called. Callers must use the value returned by Value, otherwise the
// dynamic check is skipped.
package shapeguard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/batchagg/tensor"
)

// ErrShapeMismatch is returned when two shapes are not equal.
var ErrShapeMismatch = errors.New("shape mismatch")

// Shaped is anything with a declared and a concrete shape.
type Shaped interface {
	StaticShape() tensor.Shape
	Shape() tensor.Shape
}

// MismatchError describes a failed shape check.
type MismatchError struct {
	// Static is true when the declared shapes were already incompatible.
	Static bool
	Got    tensor.Shape
	Want   tensor.Shape
}

func (e *MismatchError) Error() string {
	tier := "dynamic"
	if e.Static {
		tier = "static"
	}
	return fmt.Sprintf("%s: %s shape %s does not match %s", ErrShapeMismatch, tier, e.Got, e.Want)
}

// Unwrap returns ErrShapeMismatch.
func (e *MismatchError) Unwrap() error { return ErrShapeMismatch }

// CheckStatic reports an error if the declared shapes a and b are known to
// differ.
func CheckStatic(a, b tensor.Shape) error {
	if !a.CompatibleWith(b) {
		return &MismatchError{Static: true, Got: a.Clone(), Want: b.Clone()}
	}
	return nil
}

// Guarded holds a value whose dynamic shape check has not run yet.
type Guarded[T Shaped] struct {
	x    T
	ref  Shaped
	once sync.Once
	err  error
}

// AssertSameShape checks the static shapes of x and ref and returns x
// wrapped so that the dynamic check runs when it is consumed.
func AssertSameShape[T Shaped](x T, ref Shaped) (*Guarded[T], error) {
	if err := CheckStatic(x.StaticShape(), ref.StaticShape()); err != nil {
		return nil, err
	}
	return &Guarded[T]{x: x, ref: ref}, nil
}

// Value runs the dynamic shape check on first use and returns the guarded
// value if it passed.
func (g *Guarded[T]) Value() (T, error) {
	g.once.Do(func() {
		got, want := g.x.Shape(), g.ref.Shape()
		if !got.Equal(want) {
			g.err = &MismatchError{Got: got, Want: want}
		}
	})
	if g.err != nil {
		var zero T
		return zero, g.err
	}
	return g.x, nil
}
