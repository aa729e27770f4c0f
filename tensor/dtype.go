package tensor

import (
	"fmt"
	"math"
	"strings"
)

// DType identifies the element type of an array.
type DType uint8

const (
	// Invalid is the zero DType.
	Invalid DType = iota
	Float32
	Float64
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	String
)

// String returns the string representation of a DType.
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case String:
		return "string"
	default:
		return "invalid"
	}
}

// ParseDType parses a string into a DType value.
func ParseDType(s string) (DType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32":
		return Float32, true
	case "float64":
		return Float64, true
	case "int8":
		return Int8, true
	case "int16":
		return Int16, true
	case "int32":
		return Int32, true
	case "int64":
		return Int64, true
	case "uint8":
		return Uint8, true
	case "uint16":
		return Uint16, true
	case "uint32":
		return Uint32, true
	case "uint64":
		return Uint64, true
	case "string":
		return String, true
	default:
		return Invalid, false
	}
}

// IsFloating reports whether d is a floating point type.
func (d DType) IsFloating() bool { return d == Float32 || d == Float64 }

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool { return d >= Int8 && d <= Int64 }

// IsUnsigned reports whether d is an unsigned integer type.
func (d DType) IsUnsigned() bool { return d >= Uint8 && d <= Uint64 }

// IsInteger reports whether d is a signed or unsigned integer type.
func (d DType) IsInteger() bool { return d.IsSigned() || d.IsUnsigned() }

// IsNumeric reports whether d holds numbers.
func (d DType) IsNumeric() bool { return d.IsFloating() || d.IsInteger() }

// MinValue returns the smallest finite value representable by d as float64.
// Int64 is exact; floating types return the most negative finite value.
func (d DType) MinValue() float64 {
	switch d {
	case Float32:
		return -math.MaxFloat32
	case Float64:
		return -math.MaxFloat64
	case Int8:
		return math.MinInt8
	case Int16:
		return math.MinInt16
	case Int32:
		return math.MinInt32
	case Int64:
		return math.MinInt64
	default:
		return 0
	}
}

// Number is the set of numeric element types.
type Number interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// Float is the set of floating point element types.
type Float interface {
	float32 | float64
}

// Element is the set of all element types a Dense array can hold.
type Element interface {
	Number | string
}

// DTypeOf returns the DType of the type parameter T.
func DTypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case string:
		return String
	default:
		panic(fmt.Sprintf("tensor: unhandled element type %T", zero))
	}
}

// Lowest returns the identity of a maximum reduction over T:
// negative infinity for floating types and the minimum value for integers.
func Lowest[T Number]() T {
	var zero T
	var v any
	switch any(zero).(type) {
	case float32:
		v = float32(math.Inf(-1))
	case float64:
		v = math.Inf(-1)
	case int8:
		v = int8(math.MinInt8)
	case int16:
		v = int16(math.MinInt16)
	case int32:
		v = int32(math.MinInt32)
	case int64:
		v = int64(math.MinInt64)
	case uint8, uint16, uint32, uint64:
		return zero
	}
	return v.(T)
}

// Highest returns the largest value of T: positive infinity for floating
// types and the maximum value for integers.
func Highest[T Number]() T {
	var v any
	switch any(*new(T)).(type) {
	case float32:
		v = float32(math.Inf(1))
	case float64:
		v = math.Inf(1)
	case int8:
		v = int8(math.MaxInt8)
	case int16:
		v = int16(math.MaxInt16)
	case int32:
		v = int32(math.MaxInt32)
	case int64:
		v = int64(math.MaxInt64)
	case uint8:
		v = uint8(math.MaxUint8)
	case uint16:
		v = uint16(math.MaxUint16)
	case uint32:
		v = uint32(math.MaxUint32)
	case uint64:
		v = uint64(math.MaxUint64)
	}
	return v.(T)
}

// Missing returns the value used to mark an extreme that has no data:
// NaN for floating types and the minimum value + 1 for signed integers.
func Missing[T Number]() T {
	var zero T
	var v any
	switch any(zero).(type) {
	case float32:
		v = float32(math.NaN())
	case float64:
		v = math.NaN()
	case int8:
		v = int8(math.MinInt8 + 1)
	case int16:
		v = int16(math.MinInt16 + 1)
	case int32:
		v = int32(math.MinInt32 + 1)
	case int64:
		v = int64(math.MinInt64 + 1)
	case uint8, uint16, uint32, uint64:
		return zero + 1
	}
	return v.(T)
}

// IsNaN reports whether v is NaN. It is always false for integer types.
func IsNaN[T Number](v T) bool {
	return v != v
}
