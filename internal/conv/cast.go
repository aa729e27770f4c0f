package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a length, offset or dimension does not fit
// the integer type it is stored as.
var ErrOutOfRange = errors.New("conv: value out of range")

// IntToUint32 narrows an element count or offset to a 32-bit bitmap position
// or block size.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d as uint32", ErrOutOfRange, v)
	}
	return uint32(v), nil
}

// Uint64ToInt converts a decoded tensor dimension to int.
func Uint64ToInt(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, fmt.Errorf("%w: %d as int", ErrOutOfRange, v)
	}
	return int(v), nil
}

// Uint32ToInt converts a decoded block size to int. It only fails where int
// is 32 bits wide.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > math.MaxInt {
		return 0, fmt.Errorf("%w: %d as int", ErrOutOfRange, v)
	}
	return int(v), nil
}
