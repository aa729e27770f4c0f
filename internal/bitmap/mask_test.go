package bitmap

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaNPositions(t *testing.T) {
	nan := math.NaN()
	data := []float64{1, nan, 3, nan, nan, 6}

	m, err := NaNPositions(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Cardinality())
	assert.True(t, m.Contains(1))
	assert.False(t, m.Contains(0))
	assert.Equal(t, []uint32{1, 3, 4}, slices.Collect(m.Iterator()))
}

func TestNaNPositions_Float32NoNaN(t *testing.T) {
	m, err := NaNPositions([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())
}

func TestMask_CountByColumn(t *testing.T) {
	m := New()
	// 3 rows x 2 columns; missing at (0,1), (1,1), (2,0)
	m.Add(1)
	m.Add(3)
	m.Add(4)

	assert.Equal(t, []int64{1, 2}, m.CountByColumn(2))
	assert.Equal(t, []int64{}, m.CountByColumn(0))
}

func TestMask_OrAndClone(t *testing.T) {
	a := New()
	a.Add(1)
	b := New()
	b.Add(7)

	c := a.Clone()
	c.Or(b)

	assert.Equal(t, uint64(1), a.Cardinality())
	assert.Equal(t, uint64(2), c.Cardinality())
	assert.True(t, c.Contains(7))
}

func TestMask_IteratorEarlyStop(t *testing.T) {
	m := New()
	for i := uint32(0); i < 10; i++ {
		m.Add(i)
	}
	var seen []uint32
	for pos := range m.Iterator() {
		if pos == 3 {
			break
		}
		seen = append(seen, pos)
	}
	assert.Equal(t, []uint32{0, 1, 2}, seen)
}
