package reduce

import (
	"cmp"
	"fmt"
	"math"

	"github.com/hupe1980/batchagg/tensor"
)

// Aggregate is a partial aggregate of one batch.
type Aggregate interface {
	// Op returns the name of the reducer that produced the aggregate.
	Op() string
	// Fields returns the named arrays making up the aggregate. A field
	// value may be nil.
	Fields() []Field
}

// Field is one named array of an aggregate.
type Field struct {
	Name  string
	Value *tensor.Dense
}

var (
	_ Aggregate = (*Total)(nil)
	_ Aggregate = (*Moments)(nil)
	_ Aggregate = (*MinMax)(nil)
	_ Aggregate = (*Vocab)(nil)
)

// Total is the result of the count or sum reducer.
type Total struct {
	// Kind is OpCount or OpSum.
	Kind  string
	Value *tensor.Dense
}

// Op implements Aggregate.
func (t *Total) Op() string { return t.Kind }

// Fields implements Aggregate.
func (t *Total) Fields() []Field {
	return []Field{{Name: t.Kind, Value: t.Value}}
}

// Merge adds two totals elementwise.
func (t *Total) Merge(o *Total) (*Total, error) {
	if t.Kind != o.Kind {
		return nil, fmt.Errorf("%w: %s and %s", ErrIncompatibleAggregates, t.Kind, o.Kind)
	}
	v, err := addDense(t.Value, o.Value)
	if err != nil {
		return nil, err
	}
	return &Total{Kind: t.Kind, Value: v}, nil
}

// Moments is the result of the mean/variance reducer.
type Moments struct {
	Count    *tensor.Dense
	Mean     *tensor.Dense
	Variance *tensor.Dense
}

// Op implements Aggregate.
func (m *Moments) Op() string { return OpMeanVar }

// Fields implements Aggregate.
func (m *Moments) Fields() []Field {
	return []Field{
		{Name: "count", Value: m.Count},
		{Name: "mean", Value: m.Mean},
		{Name: "variance", Value: m.Variance},
	}
}

// Merge combines the moments of two disjoint batches, weighting each side by
// its count.
func (m *Moments) Merge(o *Moments) (*Moments, error) {
	if err := sameLayout(m.Mean, o.Mean); err != nil {
		return nil, err
	}
	count, err := addDense(m.Count, o.Count)
	if err != nil {
		return nil, err
	}

	na, _ := m.Count.Float64s()
	nb, _ := o.Count.Float64s()
	ma, _ := m.Mean.Float64s()
	mb, _ := o.Mean.Float64s()
	va, _ := m.Variance.Float64s()
	vb, _ := o.Variance.Float64s()
	if len(na) != len(ma) || len(nb) != len(mb) {
		return nil, fmt.Errorf("%w: count and mean disagree in size", ErrIncompatibleAggregates)
	}

	mean := make([]float64, len(ma))
	variance := make([]float64, len(ma))
	for i := range mean {
		switch {
		case nb[i] == 0:
			mean[i], variance[i] = ma[i], va[i]
		case na[i] == 0:
			mean[i], variance[i] = mb[i], vb[i]
		default:
			n := na[i] + nb[i]
			delta := mb[i] - ma[i]
			mean[i] = ma[i] + delta*nb[i]/n
			variance[i] = (na[i]*va[i]+nb[i]*vb[i])/n + delta*delta*na[i]*nb[i]/(n*n)
		}
	}

	meanD, err := tensor.FromFloat64s(m.Mean.DType(), m.Mean.Shape(), mean)
	if err != nil {
		return nil, err
	}
	varD, err := tensor.FromFloat64s(m.Variance.DType(), m.Variance.Shape(), variance)
	if err != nil {
		return nil, err
	}
	return &Moments{Count: count, Mean: meanD, Variance: varD}, nil
}

// MinMax is the result of the min/max reducer.
type MinMax struct {
	NegMin *tensor.Dense
	Max    *tensor.Dense
}

// Op implements Aggregate.
func (m *MinMax) Op() string { return OpMinMax }

// Fields implements Aggregate.
func (m *MinMax) Fields() []Field {
	return []Field{
		{Name: "neg_min", Value: m.NegMin},
		{Name: "max", Value: m.Max},
	}
}

// Min returns the minimum recovered from the negated minimum.
func (m *MinMax) Min() (*tensor.Dense, error) {
	switch v := m.NegMin.Data().(type) {
	case []float32:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	case []float64:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	case []int8:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	case []int16:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	case []int32:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	case []int64:
		return tensor.NewDense(m.NegMin.Shape(), negate(v))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, m.NegMin.DType())
	}
}

// Merge takes the elementwise maximum of both fields. A NaN never wins over
// a number.
//
// The integer sentinel for a sparse column without data (type minimum plus
// one) is an ordinary value to the merge. It loses against any real extreme
// above it, but when the other side's true extreme is the type minimum the
// sentinel wins and the merged field is off by one. Saturated Int64 minima
// merge the same way.
func (m *MinMax) Merge(o *MinMax) (*MinMax, error) {
	negMin, err := maxDense(m.NegMin, o.NegMin)
	if err != nil {
		return nil, err
	}
	maxVal, err := maxDense(m.Max, o.Max)
	if err != nil {
		return nil, err
	}
	return &MinMax{NegMin: negMin, Max: maxVal}, nil
}

// Vocab is the result of the vocabulary reducer. Values holds the unique
// values, except for Frequency ordering where it holds every value of the
// batch and the other fields are nil.
type Vocab struct {
	Values *tensor.Dense
	// Weights is the weight sum per unique value.
	Weights *tensor.Dense
	// Positive is the weight sum of elements labeled 1 per unique value.
	Positive *tensor.Dense
	// Counts is the number of occurrences per unique value.
	Counts *tensor.Dense
}

// Op implements Aggregate.
func (v *Vocab) Op() string { return OpVocabulary }

// Fields implements Aggregate.
func (v *Vocab) Fields() []Field {
	return []Field{
		{Name: "values", Value: v.Values},
		{Name: "weights", Value: v.Weights},
		{Name: "positive", Value: v.Positive},
		{Name: "counts", Value: v.Counts},
	}
}

// Merge unions two vocabularies on the unique value and adds the weight and
// count fields of matching values. Pass-through vocabularies are
// concatenated.
func (v *Vocab) Merge(o *Vocab) (*Vocab, error) {
	if v.Values.DType() != o.Values.DType() {
		return nil, fmt.Errorf("%w: vocabulary of %s and %s", ErrIncompatibleAggregates, v.Values.DType(), o.Values.DType())
	}
	if (v.Weights == nil) != (o.Weights == nil) || (v.Positive == nil) != (o.Positive == nil) || (v.Counts == nil) != (o.Counts == nil) {
		return nil, fmt.Errorf("%w: vocabularies with different orderings", ErrIncompatibleAggregates)
	}
	if v.Weights == nil {
		return &Vocab{Values: concatDense(v.Values, o.Values)}, nil
	}

	all := concatDense(v.Values, o.Values)
	uniq, group, err := uniqueValues(all)
	if err != nil {
		return nil, err
	}
	n := uniq.Len()
	out := &Vocab{Values: uniq}
	if out.Weights, err = segmentSum(n, group, v.Weights, o.Weights); err != nil {
		return nil, err
	}
	if v.Positive != nil {
		if out.Positive, err = segmentSum(n, group, v.Positive, o.Positive); err != nil {
			return nil, err
		}
	}
	if v.Counts != nil {
		a, _ := tensor.Values[int64](v.Counts)
		b, _ := tensor.Values[int64](o.Counts)
		counts := make([]int64, n)
		for i, c := range append(append([]int64(nil), a...), b...) {
			counts[group[i]] += c
		}
		out.Counts = tensor.FromSlice(counts)
	}
	return out, nil
}

func segmentSum(n int, group []int, a, b *tensor.Dense) (*tensor.Dense, error) {
	av, err := a.Float64s()
	if err != nil {
		return nil, err
	}
	bv, err := b.Float64s()
	if err != nil {
		return nil, err
	}
	if len(av)+len(bv) != len(group) {
		return nil, fmt.Errorf("%w: field size does not match values", ErrIncompatibleAggregates)
	}
	out := make([]float64, n)
	for i, v := range av {
		out[group[i]] += v
	}
	for i, v := range bv {
		out[group[len(av)+i]] += v
	}
	return tensor.FromSlice(out), nil
}

// Merge combines two partial aggregates produced by the same reducer.
func Merge(a, b Aggregate) (Aggregate, error) {
	switch x := a.(type) {
	case *Total:
		if y, ok := b.(*Total); ok {
			return x.Merge(y)
		}
	case *Moments:
		if y, ok := b.(*Moments); ok {
			return x.Merge(y)
		}
	case *MinMax:
		if y, ok := b.(*MinMax); ok {
			return x.Merge(y)
		}
	case *Vocab:
		if y, ok := b.(*Vocab); ok {
			return x.Merge(y)
		}
	}
	return nil, fmt.Errorf("%w: %s and %s", ErrIncompatibleAggregates, a.Op(), b.Op())
}

// FromFields rebuilds an aggregate from the output of Fields.
func FromFields(op string, fields []Field) (Aggregate, error) {
	get := func(name string) *tensor.Dense {
		for _, f := range fields {
			if f.Name == name {
				return f.Value
			}
		}
		return nil
	}
	require := func(names ...string) error {
		for _, n := range names {
			if get(n) == nil {
				return fmt.Errorf("%w: %s aggregate without %q", ErrIncompatibleAggregates, op, n)
			}
		}
		return nil
	}

	switch op {
	case OpCount, OpSum:
		if err := require(op); err != nil {
			return nil, err
		}
		return &Total{Kind: op, Value: get(op)}, nil
	case OpMeanVar:
		if err := require("count", "mean", "variance"); err != nil {
			return nil, err
		}
		return &Moments{Count: get("count"), Mean: get("mean"), Variance: get("variance")}, nil
	case OpMinMax:
		if err := require("neg_min", "max"); err != nil {
			return nil, err
		}
		return &MinMax{NegMin: get("neg_min"), Max: get("max")}, nil
	case OpVocabulary:
		if err := require("values"); err != nil {
			return nil, err
		}
		return &Vocab{Values: get("values"), Weights: get("weights"), Positive: get("positive"), Counts: get("counts")}, nil
	default:
		return nil, fmt.Errorf("%w: unknown reducer %q", ErrIncompatibleAggregates, op)
	}
}

func sameLayout(a, b *tensor.Dense) error {
	if a.DType() != b.DType() || !a.Shape().Equal(b.Shape()) {
		return fmt.Errorf("%w: %s and %s", ErrIncompatibleAggregates, a, b)
	}
	return nil
}

func addDense(a, b *tensor.Dense) (*tensor.Dense, error) {
	if err := sameLayout(a, b); err != nil {
		return nil, err
	}
	switch av := a.Data().(type) {
	case []int64:
		bv, _ := tensor.Values[int64](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, func(x, y int64) int64 { return x + y }))
	case []uint64:
		bv, _ := tensor.Values[uint64](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, func(x, y uint64) uint64 { return x + y }))
	case []float32:
		bv, _ := tensor.Values[float32](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, func(x, y float32) float32 { return x + y }))
	case []float64:
		bv, _ := tensor.Values[float64](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, func(x, y float64) float64 { return x + y }))
	default:
		return nil, fmt.Errorf("%w: cannot add %s", ErrIncompatibleAggregates, a.DType())
	}
}

func maxDense(a, b *tensor.Dense) (*tensor.Dense, error) {
	if err := sameLayout(a, b); err != nil {
		return nil, err
	}
	switch av := a.Data().(type) {
	case []float32:
		bv, _ := tensor.Values[float32](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, nanMax[float32]))
	case []float64:
		bv, _ := tensor.Values[float64](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, nanMax[float64]))
	case []int8:
		bv, _ := tensor.Values[int8](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, maxOf[int8]))
	case []int16:
		bv, _ := tensor.Values[int16](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, maxOf[int16]))
	case []int32:
		bv, _ := tensor.Values[int32](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, maxOf[int32]))
	case []int64:
		bv, _ := tensor.Values[int64](b)
		return tensor.NewDense(a.Shape(), zipWith(av, bv, maxOf[int64]))
	default:
		return nil, fmt.Errorf("%w: cannot take max of %s", ErrIncompatibleAggregates, a.DType())
	}
}

func nanMax[T tensor.Float](x, y T) T {
	switch {
	case math.IsNaN(float64(x)):
		return y
	case math.IsNaN(float64(y)):
		return x
	default:
		return max(x, y)
	}
}

func maxOf[T cmp.Ordered](x, y T) T {
	return max(x, y)
}

func zipWith[T any](a, b []T, f func(T, T) T) []T {
	out := make([]T, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}

func negate[T tensor.Number](v []T) []T {
	out := make([]T, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

func concatDense(a, b *tensor.Dense) *tensor.Dense {
	switch av := a.Data().(type) {
	case []string:
		return concat(av, b)
	case []int8:
		return concat(av, b)
	case []int16:
		return concat(av, b)
	case []int32:
		return concat(av, b)
	case []int64:
		return concat(av, b)
	case []uint8:
		return concat(av, b)
	case []uint16:
		return concat(av, b)
	case []uint32:
		return concat(av, b)
	case []uint64:
		return concat(av, b)
	case []float32:
		return concat(av, b)
	default:
		av64, _ := tensor.Values[float64](a)
		return concat(av64, b)
	}
}

func concat[T tensor.Element](a []T, b *tensor.Dense) *tensor.Dense {
	bv, _ := tensor.Values[T](b)
	out := make([]T, 0, len(a)+len(bv))
	out = append(append(out, a...), bv...)
	return tensor.FromSlice(out)
}
