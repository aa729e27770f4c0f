package reduce

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/batchagg/internal/shapeguard"
	"github.com/hupe1980/batchagg/tensor"
)

// Ordering selects which signals the vocabulary reducer aggregates per
// unique value.
type Ordering uint8

const (
	// Frequency passes values through; counting happens in the combiner.
	Frequency Ordering = iota + 1
	// WeightedFrequency sums weights and counts occurrences per unique value.
	WeightedFrequency
	// WeightedMutualInformation additionally sums the weights of elements
	// whose label is 1.
	WeightedMutualInformation
)

// String returns the string representation of an Ordering.
func (o Ordering) String() string {
	switch o {
	case Frequency:
		return "frequency"
	case WeightedFrequency:
		return "weighted_frequency"
	case WeightedMutualInformation:
		return "weighted_mutual_information"
	default:
		return "unknown"
	}
}

// ParseOrdering parses a string into an Ordering value.
func ParseOrdering(s string) (Ordering, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "frequency":
		return Frequency, true
	case "weighted_frequency":
		return WeightedFrequency, true
	case "weighted_mutual_information", "mutual_information":
		return WeightedMutualInformation, true
	default:
		return 0, false
	}
}

// VocabReducer collects the unique values of a batch.
//
// Weights default to 1 per element. Weight sums are Float64 and occurrence
// counts Int64. Labels must be integers in {0, 1}; the domain is checked when
// a batch is reduced.
type VocabReducer struct {
	spec     tensor.Spec
	ordering Ordering
	weights  *tensor.Spec
	labels   *tensor.Spec
}

// VocabOption configures a VocabReducer.
type VocabOption func(*VocabReducer)

// WithWeightsSpec declares the static spec of the weights so it is checked
// against the values at construction.
func WithWeightsSpec(spec tensor.Spec) VocabOption {
	return func(r *VocabReducer) {
		r.weights = &spec
	}
}

// WithLabelsSpec declares the static spec of the labels so it is checked
// against the values at construction.
func WithLabelsSpec(spec tensor.Spec) VocabOption {
	return func(r *VocabReducer) {
		r.labels = &spec
	}
}

// NewVocabReducer creates a VocabReducer for batches described by spec.
func NewVocabReducer(spec tensor.Spec, ordering Ordering, opts ...VocabOption) (*VocabReducer, error) {
	if err := checkSpec(spec); err != nil {
		return nil, wrap(OpVocabulary, err)
	}
	if spec.DType != tensor.String && !spec.DType.IsInteger() {
		return nil, wrap(OpVocabulary, fmt.Errorf("%w: vocabulary of %s", ErrUnsupportedType, spec.DType))
	}
	if ordering < Frequency || ordering > WeightedMutualInformation {
		return nil, wrap(OpVocabulary, fmt.Errorf("%w: ordering %d", ErrUnsupportedType, ordering))
	}

	r := &VocabReducer{spec: spec, ordering: ordering}
	for _, opt := range opts {
		opt(r)
	}

	if r.weights != nil {
		if err := checkCompanionSpec(spec, *r.weights, tensor.DType.IsNumeric); err != nil {
			return nil, wrap(OpVocabulary, fmt.Errorf("weights: %w", err))
		}
	}
	if r.labels != nil {
		if err := checkCompanionSpec(spec, *r.labels, tensor.DType.IsInteger); err != nil {
			return nil, wrap(OpVocabulary, fmt.Errorf("labels: %w", err))
		}
	}
	return r, nil
}

func checkCompanionSpec(x, c tensor.Spec, accept func(tensor.DType) bool) error {
	if !accept(c.DType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, c.DType)
	}
	if c.Kind != x.Kind {
		return fmt.Errorf("%w: %s array paired with %s values", ErrShapeMismatch, c.Kind, x.Kind)
	}
	return shapeguard.CheckStatic(c.Shape, x.Shape)
}

// Ordering returns the configured ordering.
func (r *VocabReducer) Ordering() Ordering { return r.ordering }

// Op implements Reducer.
func (r *VocabReducer) Op() string { return OpVocabulary }

// Apply implements Reducer.
func (r *VocabReducer) Apply(in Input) (Aggregate, error) {
	v, err := r.Reduce(in.X, in.Weights, in.Labels)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Reduce returns the vocabulary partial aggregate of x. Weights and labels
// may be nil.
func (r *VocabReducer) Reduce(x, weights, labels tensor.Array) (*Vocab, error) {
	if err := checkInput(r.spec, x); err != nil {
		return nil, wrap(OpVocabulary, err)
	}
	v, err := r.reduce(x, weights, labels)
	return v, wrap(OpVocabulary, err)
}

// Vocabulary is a one-shot VocabReducer built from x's own spec.
func Vocabulary(x tensor.Array, ordering Ordering, weights, labels tensor.Array) (*Vocab, error) {
	r, err := NewVocabReducer(x.Spec(), ordering)
	if err != nil {
		return nil, err
	}
	return r.Reduce(x, weights, labels)
}

func (r *VocabReducer) reduce(x, weights, labels tensor.Array) (*Vocab, error) {
	if r.ordering == Frequency {
		return &Vocab{Values: flatValues(x)}, nil
	}

	w, err := companion(x, weights, tensor.DType.IsNumeric)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}

	var l tensor.Array
	if r.ordering == WeightedMutualInformation {
		if labels == nil {
			return nil, ErrMissingLabels
		}
		if l, err = companion(x, labels, tensor.DType.IsInteger); err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
	}

	values := flatValues(x)
	uniq, group, err := uniqueValues(values)
	if err != nil {
		return nil, err
	}
	n := uniq.Len()

	weightVals := ones(values.Len())
	if w != nil {
		if weightVals, err = flatValues(w).Float64s(); err != nil {
			return nil, err
		}
	}

	sums := make([]float64, n)
	counts := make([]int64, n)
	for i, g := range group {
		sums[g] += weightVals[i]
		counts[g]++
	}

	out := &Vocab{
		Values:  uniq,
		Weights: tensor.FromSlice(sums),
		Counts:  tensor.FromSlice(counts),
	}

	if l != nil {
		lbl, err := tensor.Cast(flatValues(l), tensor.Int64)
		if err != nil {
			return nil, err
		}
		labelVals, _ := tensor.Values[int64](lbl)
		if err := checkLabelDomain(labelVals); err != nil {
			return nil, err
		}
		positive := make([]float64, n)
		for i, g := range group {
			positive[g] += weightVals[i] * float64(labelVals[i])
		}
		out.Positive = tensor.FromSlice(positive)
	}
	return out, nil
}

// companion shape-guards c against x and returns it once the dynamic check
// passed. A nil c is returned as nil.
func companion(x, c tensor.Array, accept func(tensor.DType) bool) (tensor.Array, error) {
	if c == nil {
		return nil, nil
	}
	if !accept(c.DType()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, c.DType())
	}
	if c.Kind() != x.Kind() {
		return nil, fmt.Errorf("%w: %s array paired with %s values", ErrShapeMismatch, c.Kind(), x.Kind())
	}
	g, err := shapeguard.AssertSameShape(c, x)
	if err != nil {
		return nil, err
	}
	if err := sameCoordinates(x, c); err != nil {
		return nil, err
	}
	return g.Value()
}

// sameCoordinates requires a sparse companion to be present at exactly the
// coordinates of x, in the same order.
func sameCoordinates(x, c tensor.Array) error {
	xs, ok := x.(*tensor.Sparse)
	if !ok {
		return nil
	}
	cs := c.(*tensor.Sparse)
	if xs.NNZ() != cs.NNZ() {
		return fmt.Errorf("%w: %d present values paired with %d", ErrShapeMismatch, cs.NNZ(), xs.NNZ())
	}
	for i := range xs.NNZ() {
		if !slices.Equal(xs.Index(i), cs.Index(i)) {
			return fmt.Errorf("%w: coordinate %v paired with %v", ErrShapeMismatch, cs.Index(i), xs.Index(i))
		}
	}
	return nil
}

func checkLabelDomain(labels []int64) error {
	if len(labels) == 0 {
		return nil
	}
	lo, hi := labels[0], labels[0]
	for _, v := range labels[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi > 1 {
		return fmt.Errorf("%w: max label %d", ErrLabelDomain, hi)
	}
	if lo < 0 {
		return fmt.Errorf("%w: min label %d", ErrLabelDomain, lo)
	}
	return nil
}

// flatValues returns the elements of a dense array or the present values of
// a sparse one as a rank-1 array.
func flatValues(a tensor.Array) *tensor.Dense {
	switch v := a.(type) {
	case *tensor.Dense:
		return v.Flatten()
	case *tensor.Sparse:
		return v.Values()
	default:
		return nil
	}
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// uniqueValues returns the unique elements of vals in order of first
// occurrence, and for every element the index of its unique value.
func uniqueValues(vals *tensor.Dense) (*tensor.Dense, []int, error) {
	switch v := vals.Data().(type) {
	case []string:
		return groupBy(v)
	case []int8:
		return groupBy(v)
	case []int16:
		return groupBy(v)
	case []int32:
		return groupBy(v)
	case []int64:
		return groupBy(v)
	case []uint8:
		return groupBy(v)
	case []uint16:
		return groupBy(v)
	case []uint32:
		return groupBy(v)
	case []uint64:
		return groupBy(v)
	default:
		return nil, nil, fmt.Errorf("%w: vocabulary of %s", ErrUnsupportedType, vals.DType())
	}
}

func groupBy[T string | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64](vals []T) (*tensor.Dense, []int, error) {
	index := make(map[T]int)
	uniq := make([]T, 0)
	group := make([]int, len(vals))
	for i, v := range vals {
		g, ok := index[v]
		if !ok {
			g = len(uniq)
			index[v] = g
			uniq = append(uniq, v)
		}
		group[i] = g
	}
	u, err := tensor.NewDense(tensor.Shape{len(uniq)}, uniq)
	return u, group, err
}
