package batchagg

import (
	"fmt"

	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

// ReducerKind names a reducer.
type ReducerKind string

// Reducer kinds.
const (
	KindCount      ReducerKind = reduce.OpCount
	KindSum        ReducerKind = reduce.OpSum
	KindMeanVar    ReducerKind = reduce.OpMeanVar
	KindMinMax     ReducerKind = reduce.OpMinMax
	KindVocabulary ReducerKind = reduce.OpVocabulary
)

// ReducerSpec declares one reducer of a feature.
type ReducerSpec struct {
	Kind ReducerKind
	// ReduceInstanceDims collapses the batch to a scalar. Otherwise one
	// value per instance position is kept. Ignored by vocabularies.
	ReduceInstanceDims bool
	// Ordering selects the vocabulary fields. Vocabulary only.
	Ordering reduce.Ordering
	// Weights and Labels name other features of the same batch used as
	// vocabulary weights and mutual information labels. Optional.
	Weights string
	Labels  string
}

// String returns a compact representation such as "min_max(instance)".
func (r ReducerSpec) String() string {
	if r.Kind == KindVocabulary {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Ordering)
	}
	if r.ReduceInstanceDims {
		return string(r.Kind)
	}
	return string(r.Kind) + "(instance)"
}

// Count declares a count reducer.
func Count(reduceInstanceDims bool) ReducerSpec {
	return ReducerSpec{Kind: KindCount, ReduceInstanceDims: reduceInstanceDims}
}

// Sum declares a sum reducer.
func Sum(reduceInstanceDims bool) ReducerSpec {
	return ReducerSpec{Kind: KindSum, ReduceInstanceDims: reduceInstanceDims}
}

// MeanVar declares a count, mean and variance reducer.
func MeanVar(reduceInstanceDims bool) ReducerSpec {
	return ReducerSpec{Kind: KindMeanVar, ReduceInstanceDims: reduceInstanceDims}
}

// MinMax declares a negated minimum and maximum reducer.
func MinMax(reduceInstanceDims bool) ReducerSpec {
	return ReducerSpec{Kind: KindMinMax, ReduceInstanceDims: reduceInstanceDims}
}

// Vocabulary declares a vocabulary reducer. weights and labels may be empty.
func Vocabulary(ordering reduce.Ordering, weights, labels string) ReducerSpec {
	return ReducerSpec{Kind: KindVocabulary, Ordering: ordering, Weights: weights, Labels: labels}
}

// FeatureSpec declares a feature and the reducers to run on it.
type FeatureSpec struct {
	Name string
	// Spec is the static description every batch of the feature must match.
	Spec     tensor.Spec
	Reducers []ReducerSpec
}

type feature struct {
	FeatureSpec
	reducers []reduce.Reducer
}

func buildFeature(fs FeatureSpec, specs map[string]tensor.Spec) (*feature, error) {
	f := &feature{FeatureSpec: fs}
	for _, rs := range fs.Reducers {
		r, err := buildReducer(fs.Spec, rs, specs)
		if err != nil {
			return nil, featureError(fs.Name, rs.String(), -1, err)
		}
		f.reducers = append(f.reducers, r)
	}
	return f, nil
}

func buildReducer(spec tensor.Spec, rs ReducerSpec, specs map[string]tensor.Spec) (reduce.Reducer, error) {
	switch rs.Kind {
	case KindCount:
		return reduce.NewCountReducer(spec, rs.ReduceInstanceDims)
	case KindSum:
		return reduce.NewSumReducer(spec, rs.ReduceInstanceDims)
	case KindMeanVar:
		return reduce.NewMomentsReducer(spec, rs.ReduceInstanceDims)
	case KindMinMax:
		return reduce.NewMinMaxReducer(spec, rs.ReduceInstanceDims)
	case KindVocabulary:
		var opts []reduce.VocabOption
		if rs.Weights != "" {
			ws, ok := specs[rs.Weights]
			if !ok {
				return nil, fmt.Errorf("%w: weights %q", ErrMissingFeature, rs.Weights)
			}
			opts = append(opts, reduce.WithWeightsSpec(ws))
		}
		if rs.Labels != "" {
			ls, ok := specs[rs.Labels]
			if !ok {
				return nil, fmt.Errorf("%w: labels %q", ErrMissingFeature, rs.Labels)
			}
			opts = append(opts, reduce.WithLabelsSpec(ls))
		}
		if rs.Ordering == reduce.WeightedMutualInformation && rs.Labels == "" {
			return nil, fmt.Errorf("%w: mutual information without labels", ErrInvalidFeature)
		}
		return reduce.NewVocabReducer(spec, rs.Ordering, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown reducer %q", ErrInvalidFeature, rs.Kind)
	}
}
