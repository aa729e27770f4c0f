package example

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Feature is a decoded feature value. Exactly one list is set.
type Feature struct {
	Bytes  [][]byte
	Floats []float32
	Int64s []int64
}

// Parse decodes one serialized Example into its features.
func Parse(b []byte) (map[string]Feature, error) {
	out := make(map[string]Feature)
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldFeatures || typ != protowire.BytesType {
			return nil
		}
		return eachField(v, func(num protowire.Number, typ protowire.Type, entry []byte) error {
			if num != fieldFeatureMap || typ != protowire.BytesType {
				return nil
			}
			name, f, err := parseEntry(entry)
			if err != nil {
				return err
			}
			out[name] = f
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseEntry(b []byte) (string, Feature, error) {
	var (
		name string
		f    Feature
	)
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldKey:
			name = string(v)
		case fieldValue:
			var err error
			f, err = parseFeature(v)
			return err
		}
		return nil
	})
	return name, f, err
}

func parseFeature(b []byte) (Feature, error) {
	f := Feature{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, list []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldBytesList:
			f.Bytes = [][]byte{}
			return eachField(list, func(_ protowire.Number, _ protowire.Type, v []byte) error {
				f.Bytes = append(f.Bytes, append([]byte(nil), v...))
				return nil
			})
		case fieldFloatList:
			f.Floats = []float32{}
			return eachField(list, func(_ protowire.Number, _ protowire.Type, packed []byte) error {
				for len(packed) > 0 {
					v, n := protowire.ConsumeFixed32(packed)
					if n < 0 {
						return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
					}
					f.Floats = append(f.Floats, math.Float32frombits(v))
					packed = packed[n:]
				}
				return nil
			})
		case fieldInt64List:
			f.Int64s = []int64{}
			return eachField(list, func(_ protowire.Number, _ protowire.Type, packed []byte) error {
				for len(packed) > 0 {
					v, n := protowire.ConsumeVarint(packed)
					if n < 0 {
						return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
					}
					f.Int64s = append(f.Int64s, int64(v))
					packed = packed[n:]
				}
				return nil
			})
		}
		return nil
	})
	return f, err
}

// eachField calls fn for every field of a message. Only length-delimited
// fields carry a payload; other fields are skipped.
func eachField(b []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, typ, v); err != nil {
			return err
		}
	}
	return nil
}
