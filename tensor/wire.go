package tensor

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hupe1980/batchagg/internal/conv"
)

// Wire field numbers of the tensor message:
//
//	message Tensor {
//	  uint32 dtype          = 1;
//	  repeated int64 shape  = 2 [packed];
//	  repeated float f32    = 3 [packed];
//	  repeated double f64   = 4 [packed];
//	  repeated sint64 ints  = 5 [packed];
//	  repeated uint64 uints = 6 [packed];
//	  repeated bytes strs   = 7;
//	}
const (
	fieldDType  protowire.Number = 1
	fieldShape  protowire.Number = 2
	fieldF32    protowire.Number = 3
	fieldF64    protowire.Number = 4
	fieldInts   protowire.Number = 5
	fieldUints  protowire.Number = 6
	fieldString protowire.Number = 7
)

// ErrMalformedWire is returned when decoding bytes that are not a tensor
// message.
var ErrMalformedWire = errors.New("malformed tensor wire data")

// AppendWire appends the protobuf wire encoding of d to dst.
// NaN and infinite values round-trip exactly.
func AppendWire(dst []byte, d *Dense) []byte {
	dst = protowire.AppendTag(dst, fieldDType, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(d.dtype))

	if len(d.shape) > 0 {
		var packed []byte
		for _, dim := range d.shape {
			packed = protowire.AppendVarint(packed, uint64(dim))
		}
		dst = protowire.AppendTag(dst, fieldShape, protowire.BytesType)
		dst = protowire.AppendBytes(dst, packed)
	}

	var packed []byte
	field := fieldInts
	switch v := d.data.(type) {
	case []float32:
		field = fieldF32
		for _, x := range v {
			packed = protowire.AppendFixed32(packed, math.Float32bits(x))
		}
	case []float64:
		field = fieldF64
		for _, x := range v {
			packed = protowire.AppendFixed64(packed, math.Float64bits(x))
		}
	case []int8:
		packed = appendSigned(packed, v)
	case []int16:
		packed = appendSigned(packed, v)
	case []int32:
		packed = appendSigned(packed, v)
	case []int64:
		packed = appendSigned(packed, v)
	case []uint8:
		field, packed = fieldUints, appendUnsigned(packed, v)
	case []uint16:
		field, packed = fieldUints, appendUnsigned(packed, v)
	case []uint32:
		field, packed = fieldUints, appendUnsigned(packed, v)
	case []uint64:
		field, packed = fieldUints, appendUnsigned(packed, v)
	case []string:
		for _, s := range v {
			dst = protowire.AppendTag(dst, fieldString, protowire.BytesType)
			dst = protowire.AppendString(dst, s)
		}
		return dst
	}
	if len(packed) > 0 {
		dst = protowire.AppendTag(dst, field, protowire.BytesType)
		dst = protowire.AppendBytes(dst, packed)
	}
	return dst
}

func appendSigned[T int8 | int16 | int32 | int64](dst []byte, v []T) []byte {
	for _, x := range v {
		dst = protowire.AppendVarint(dst, protowire.EncodeZigZag(int64(x)))
	}
	return dst
}

func appendUnsigned[T uint8 | uint16 | uint32 | uint64](dst []byte, v []T) []byte {
	for _, x := range v {
		dst = protowire.AppendVarint(dst, uint64(x))
	}
	return dst
}

// ParseWire decodes a tensor message produced by AppendWire.
func ParseWire(b []byte) (*Dense, error) {
	var (
		dtype DType
		dims  []uint64
		f32   []float32
		f64   []float64
		ints  []int64
		uints []uint64
		strs  []string
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldDType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
			}
			dtype = DType(v)
			b = b[n:]
		case num == fieldString && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
			}
			strs = append(strs, s)
			b = b[n:]
		case typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
			}
			b = b[n:]
			var err error
			switch num {
			case fieldShape:
				dims, err = consumeVarints(packed, dims, func(v uint64) uint64 { return v })
			case fieldF32:
				f32, err = consumePacked32(packed, f32)
			case fieldF64:
				f64, err = consumePacked64(packed, f64)
			case fieldInts:
				ints, err = consumeVarints(packed, ints, protowire.DecodeZigZag)
			case fieldUints:
				uints, err = consumeVarints(packed, uints, func(v uint64) uint64 { return v })
			}
			if err != nil {
				return nil, err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	shape := make(Shape, 0, len(dims))
	for _, d := range dims {
		n, err := conv.Uint64ToInt(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWire, err)
		}
		shape = append(shape, n)
	}

	switch dtype {
	case Float32:
		return NewDense(shape, nonNil(f32))
	case Float64:
		return NewDense(shape, nonNil(f64))
	case Int8:
		return NewDense(shape, convert[int64, int8](ints))
	case Int16:
		return NewDense(shape, convert[int64, int16](ints))
	case Int32:
		return NewDense(shape, convert[int64, int32](ints))
	case Int64:
		return NewDense(shape, nonNil(ints))
	case Uint8:
		return NewDense(shape, convert[uint64, uint8](uints))
	case Uint16:
		return NewDense(shape, convert[uint64, uint16](uints))
	case Uint32:
		return NewDense(shape, convert[uint64, uint32](uints))
	case Uint64:
		return NewDense(shape, nonNil(uints))
	case String:
		return NewDense(shape, nonNil(strs))
	default:
		return nil, fmt.Errorf("%w: unknown dtype %d", ErrMalformedWire, dtype)
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func consumeVarints[T any](b []byte, dst []T, decode func(uint64) T) ([]T, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
		}
		dst = append(dst, decode(v))
		b = b[n:]
	}
	return dst, nil
}

func consumePacked32(b []byte, dst []float32) ([]float32, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
		}
		dst = append(dst, math.Float32frombits(v))
		b = b[n:]
	}
	return dst, nil
}

func consumePacked64(b []byte, dst []float64) ([]float64, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWire, protowire.ParseError(n))
		}
		dst = append(dst, math.Float64frombits(v))
		b = b[n:]
	}
	return dst, nil
}
