package example

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hupe1980/batchagg/tensor"
)

var (
	// ErrUnsupportedType is returned for element types without a feature list.
	ErrUnsupportedType = errors.New("unsupported feature type")

	// ErrInvalidRank is returned for rank-0 dense or non rank-2 sparse values.
	ErrInvalidRank = errors.New("invalid feature rank")

	// ErrBatchSize is returned when features disagree on the batch size.
	ErrBatchSize = errors.New("features disagree on batch size")

	// ErrMissingDefault is returned when a sparse feature has no default value.
	ErrMissingDefault = errors.New("missing default value")

	// ErrMalformed is returned when parsing bytes that are not an Example.
	ErrMalformed = errors.New("malformed example")
)

const (
	fieldFeatures   protowire.Number = 1 // Example.features
	fieldFeatureMap protowire.Number = 1 // Features.feature
	fieldKey        protowire.Number = 1 // map entry key
	fieldValue      protowire.Number = 2 // map entry value
	fieldBytesList  protowire.Number = 1 // Feature.bytes_list
	fieldFloatList  protowire.Number = 2 // Feature.float_list
	fieldInt64List  protowire.Number = 3 // Feature.int64_list
	fieldListValue  protowire.Number = 1 // *List.value
)

// Serializer encodes batches as Example records.
// It is safe for concurrent use.
type Serializer struct {
	defaults DefaultValues
}

// NewSerializer creates a Serializer. The defaults are copied.
func NewSerializer(defaults DefaultValues) (*Serializer, error) {
	if err := defaults.validate(); err != nil {
		return nil, err
	}
	return &Serializer{defaults: defaults.clone()}, nil
}

// rowEncoder appends the Feature message of one row.
type rowEncoder func(dst []byte, row int) []byte

// Serialize returns one serialized Example per batch row. Features are
// written in name order.
func (s *Serializer) Serialize(features map[string]tensor.Array) ([][]byte, error) {
	names := slices.Sorted(maps.Keys(features))

	rows := -1
	encoders := make([]rowEncoder, len(names))
	for i, name := range names {
		enc, n, err := s.encoder(features[name])
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		if rows >= 0 && n != rows {
			return nil, fmt.Errorf("%w: feature %q has %d rows, expected %d", ErrBatchSize, name, n, rows)
		}
		rows = n
		encoders[i] = enc
	}
	if rows < 0 {
		return nil, nil
	}

	out := make([][]byte, rows)
	var feature, entry, featuresMsg []byte
	for r := range rows {
		featuresMsg = featuresMsg[:0]
		for i, name := range names {
			feature = encoders[i](feature[:0], r)

			entry = entry[:0]
			entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
			entry = protowire.AppendString(entry, name)
			entry = protowire.AppendTag(entry, fieldValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, feature)

			featuresMsg = protowire.AppendTag(featuresMsg, fieldFeatureMap, protowire.BytesType)
			featuresMsg = protowire.AppendBytes(featuresMsg, entry)
		}
		var msg []byte
		msg = protowire.AppendTag(msg, fieldFeatures, protowire.BytesType)
		msg = protowire.AppendBytes(msg, featuresMsg)
		out[r] = msg
	}
	return out, nil
}

func (s *Serializer) encoder(a tensor.Array) (rowEncoder, int, error) {
	switch v := a.(type) {
	case *tensor.Dense:
		return denseEncoder(v)
	case *tensor.Sparse:
		return s.sparseEncoder(v)
	default:
		return nil, 0, fmt.Errorf("%w: %T", ErrUnsupportedType, a)
	}
}

func denseEncoder(d *tensor.Dense) (rowEncoder, int, error) {
	if d.Shape().Rank() < 1 {
		return nil, 0, fmt.Errorf("%w: dense value of rank 0", ErrInvalidRank)
	}
	rows := d.Rows()
	width := 0
	if rows > 0 {
		width = d.Len() / rows
	}
	enc, err := listEncoder(d, func(int) int { return width })
	if err != nil {
		return nil, 0, err
	}
	return enc, rows, nil
}

func (s *Serializer) sparseEncoder(sp *tensor.Sparse) (rowEncoder, int, error) {
	if sp.Rank() != 2 {
		return nil, 0, fmt.Errorf("%w: sparse value of rank %d", ErrInvalidRank, sp.Rank())
	}
	def, ok := s.defaults[sp.DType()]
	if !ok {
		if !supported(sp.DType()) {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedType, sp.DType())
		}
		return nil, 0, fmt.Errorf("%w: %s", ErrMissingDefault, sp.DType())
	}

	shape := sp.Shape()
	rows := shape[0]
	sizes := make([]int, rows)
	for i := 0; i < sp.NNZ(); i++ {
		sizes[sp.Index(i)[0]]++
	}

	d, err := densify(sp, def)
	if err != nil {
		return nil, 0, err
	}
	enc, err := listEncoder(d, func(row int) int { return sizes[row] })
	if err != nil {
		return nil, 0, err
	}
	return enc, rows, nil
}

// densify scatters the present values of sp into a row-major slice filled
// with def.
func densify(sp *tensor.Sparse, def any) (*tensor.Dense, error) {
	shape := sp.Shape()
	switch v := sp.Values().Data().(type) {
	case []string:
		return tensor.NewDense(shape, scatter(sp, v, def.(string), shape[1]))
	case []float32:
		return tensor.NewDense(shape, scatter(sp, v, def.(float32), shape[1]))
	case []int64:
		return tensor.NewDense(shape, scatter(sp, v, def.(int64), shape[1]))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, sp.DType())
	}
}

func scatter[T string | float32 | int64](sp *tensor.Sparse, vals []T, def T, cols int) []T {
	rows := sp.Shape()[0]
	out := make([]T, rows*cols)
	for i := range out {
		out[i] = def
	}
	for i, v := range vals {
		c := sp.Index(i)
		out[int(c[0])*cols+int(c[1])] = v
	}
	return out
}

// listEncoder returns an encoder that writes the first size(row) elements of
// each row of the rank-2 view of d.
func listEncoder(d *tensor.Dense, size func(row int) int) (rowEncoder, error) {
	rows := d.Rows()
	stride := 0
	if rows > 0 {
		stride = d.Len() / rows
	}

	switch v := d.Data().(type) {
	case []string:
		return func(dst []byte, row int) []byte {
			var list []byte
			for _, s := range v[row*stride : row*stride+size(row)] {
				list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
				list = protowire.AppendString(list, s)
			}
			dst = protowire.AppendTag(dst, fieldBytesList, protowire.BytesType)
			return protowire.AppendBytes(dst, list)
		}, nil
	case []float32:
		return func(dst []byte, row int) []byte {
			var packed []byte
			for _, f := range v[row*stride : row*stride+size(row)] {
				packed = protowire.AppendFixed32(packed, math.Float32bits(f))
			}
			return appendPackedList(dst, fieldFloatList, packed)
		}, nil
	case []int64:
		return func(dst []byte, row int) []byte {
			var packed []byte
			for _, n := range v[row*stride : row*stride+size(row)] {
				packed = protowire.AppendVarint(packed, uint64(n))
			}
			return appendPackedList(dst, fieldInt64List, packed)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, d.DType())
	}
}

func appendPackedList(dst []byte, field protowire.Number, packed []byte) []byte {
	var list []byte
	if len(packed) > 0 {
		list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
		list = protowire.AppendBytes(list, packed)
	}
	dst = protowire.AppendTag(dst, field, protowire.BytesType)
	return protowire.AppendBytes(dst, list)
}

func supported(d tensor.DType) bool {
	return d == tensor.String || d == tensor.Float32 || d == tensor.Int64
}
