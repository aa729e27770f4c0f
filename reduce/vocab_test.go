package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchagg/tensor"
)

func TestVocabulary_WeightedFrequency(t *testing.T) {
	x := tensor.FromSlice([]string{"a", "b", "a"})
	w := tensor.FromSlice([]float32{1, 2, 3})

	v, err := Vocabulary(x, WeightedFrequency, w, nil)
	require.NoError(t, err)

	values, err := v.Values.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)
	assert.Equal(t, []float64{4, 2}, f64s(t, v.Weights))
	assert.Equal(t, []int64{2, 1}, i64s(t, v.Counts))
	assert.Nil(t, v.Positive)
}

func TestVocabulary_DefaultWeights(t *testing.T) {
	x := tensor.MustDense(tensor.Shape{2, 2}, []int64{7, 7, 8, 7})

	v, err := Vocabulary(x, WeightedFrequency, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, i64s(t, v.Values))
	assert.Equal(t, []float64{3, 1}, f64s(t, v.Weights))
}

func TestVocabulary_Frequency(t *testing.T) {
	x := tensor.MustDense(tensor.Shape{2, 2}, []string{"a", "b", "a", "c"})

	v, err := Vocabulary(x, Frequency, nil, nil)
	require.NoError(t, err)

	values, err := v.Values.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a", "c"}, values)
	assert.Nil(t, v.Weights)
	assert.Nil(t, v.Positive)
	assert.Nil(t, v.Counts)
}

func TestVocabulary_MutualInformation(t *testing.T) {
	x := tensor.FromSlice([]string{"a", "b", "a"})
	w := tensor.FromSlice([]float64{1, 2, 3})

	t.Run("positive weights", func(t *testing.T) {
		labels := tensor.FromSlice([]int64{1, 1, 0})

		v, err := Vocabulary(x, WeightedMutualInformation, w, labels)
		require.NoError(t, err)
		assert.Equal(t, []float64{4, 2}, f64s(t, v.Weights))
		assert.Equal(t, []float64{1, 2}, f64s(t, v.Positive))
		assert.Equal(t, []int64{2, 1}, i64s(t, v.Counts))
	})

	t.Run("label above one", func(t *testing.T) {
		_, err := Vocabulary(x, WeightedMutualInformation, w, tensor.FromSlice([]int64{0, 2, 1}))
		require.ErrorIs(t, err, ErrLabelDomain)
	})

	t.Run("negative label", func(t *testing.T) {
		_, err := Vocabulary(x, WeightedMutualInformation, nil, tensor.FromSlice([]int32{0, -1, 1}))
		require.ErrorIs(t, err, ErrLabelDomain)
	})

	t.Run("missing labels", func(t *testing.T) {
		_, err := Vocabulary(x, WeightedMutualInformation, w, nil)
		require.ErrorIs(t, err, ErrMissingLabels)
	})

	t.Run("float labels", func(t *testing.T) {
		_, err := Vocabulary(x, WeightedMutualInformation, w, tensor.FromSlice([]float32{0, 1, 1}))
		require.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestVocabulary_LabelDomainCheckedAtReduce(t *testing.T) {
	spec := tensor.DenseSpec(tensor.String, tensor.Unknown)
	r, err := NewVocabReducer(spec, WeightedMutualInformation, WithLabelsSpec(tensor.DenseSpec(tensor.Int64, tensor.Unknown)))
	require.NoError(t, err)

	_, err = r.Reduce(tensor.FromSlice([]string{"a"}), nil, tensor.FromSlice([]int64{5}))
	require.ErrorIs(t, err, ErrLabelDomain)
}

func TestVocabulary_WeightShapes(t *testing.T) {
	t.Run("static", func(t *testing.T) {
		_, err := Vocabulary(tensor.FromSlice([]string{"a", "b", "a"}), WeightedFrequency, tensor.FromSlice([]float64{1, 2}), nil)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("dynamic", func(t *testing.T) {
		x, err := tensor.FromSlice([]string{"a", "b", "a"}).WithStaticShape(tensor.Shape{tensor.Unknown})
		require.NoError(t, err)
		w, err := tensor.FromSlice([]float64{1, 2}).WithStaticShape(tensor.Shape{tensor.Unknown})
		require.NoError(t, err)

		_, err = Vocabulary(x, WeightedFrequency, w, nil)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("construction", func(t *testing.T) {
		_, err := NewVocabReducer(
			tensor.DenseSpec(tensor.String, 4),
			WeightedFrequency,
			WithWeightsSpec(tensor.DenseSpec(tensor.Float32, 3)),
		)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestVocabulary_Sparse(t *testing.T) {
	x := tensor.MustSparse([][]int64{{0, 1}, {1, 0}, {2, 2}}, tensor.FromSlice([]string{"x", "y", "x"}), tensor.Shape{3, 3})

	v, err := Vocabulary(x, WeightedFrequency, nil, nil)
	require.NoError(t, err)
	values, _ := v.Values.Strings()
	assert.Equal(t, []string{"x", "y"}, values)
	assert.Equal(t, []int64{2, 1}, i64s(t, v.Counts))
}

func TestVocabulary_SparseCompanionCoordinates(t *testing.T) {
	shape := tensor.Shape{2, 2}
	x := tensor.MustSparse([][]int64{{0, 0}, {1, 1}}, tensor.FromSlice([]string{"a", "b"}), shape)

	t.Run("fewer present", func(t *testing.T) {
		w := tensor.MustSparse([][]int64{{0, 0}}, tensor.FromSlice([]float64{5}), shape)
		_, err := Vocabulary(x, WeightedFrequency, w, nil)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("disjoint", func(t *testing.T) {
		w := tensor.MustSparse([][]int64{{0, 1}, {1, 0}}, tensor.FromSlice([]float64{5, 7}), shape)
		_, err := Vocabulary(x, WeightedFrequency, w, nil)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("labels", func(t *testing.T) {
		l := tensor.MustSparse([][]int64{{0, 0}, {1, 0}}, tensor.FromSlice([]int64{1, 0}), shape)
		_, err := Vocabulary(x, WeightedMutualInformation, nil, l)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("matching", func(t *testing.T) {
		w := tensor.MustSparse([][]int64{{0, 0}, {1, 1}}, tensor.FromSlice([]float64{5, 7}), shape)
		v, err := Vocabulary(x, WeightedFrequency, w, nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 7}, f64s(t, v.Weights))
	})
}

func TestVocabulary_UnsupportedValues(t *testing.T) {
	_, err := NewVocabReducer(tensor.DenseSpec(tensor.Float32, tensor.Unknown), WeightedFrequency)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewVocabReducer(tensor.DenseSpec(tensor.String, tensor.Unknown), Ordering(9))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestParseOrdering(t *testing.T) {
	for _, o := range []Ordering{Frequency, WeightedFrequency, WeightedMutualInformation} {
		got, ok := ParseOrdering(o.String())
		require.True(t, ok)
		assert.Equal(t, o, got)
	}
	_, ok := ParseOrdering("alphabetical")
	assert.False(t, ok)
}
