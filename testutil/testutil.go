package testutil

import (
	"math"
	"math/rand"
	"strconv"
	"sync"

	"github.com/hupe1980/batchagg/tensor"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillNormal fills dst with standard normal values. Each element is replaced
// with NaN with probability nanRate.
func (r *RNG) FillNormal(dst []float64, nanRate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		if r.rand.Float64() < nanRate {
			dst[i] = math.NaN()
			continue
		}
		dst[i] = r.rand.NormFloat64()
	}
}

// DenseFloat64 returns a rows x cols Float64 batch of standard normal values
// with NaN at the given rate.
func (r *RNG) DenseFloat64(rows, cols int, nanRate float64) *tensor.Dense {
	data := make([]float64, rows*cols)
	r.FillNormal(data, nanRate)
	return tensor.MustDense(tensor.Shape{rows, cols}, data)
}

// DenseInt64 returns a rows x cols Int64 batch with values in [lo, hi).
func (r *RNG) DenseInt64(rows, cols int, lo, hi int64) *tensor.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := make([]int64, rows*cols)
	for i := range data {
		data[i] = lo + r.rand.Int63n(hi-lo)
	}
	return tensor.MustDense(tensor.Shape{rows, cols}, data)
}

// SparseFloat64 returns a rows x cols sparse Float64 batch in which each
// coordinate is present with probability density. Coordinates are in
// row-major order.
func (r *RNG) SparseFloat64(rows, cols int, density float64) *tensor.Sparse {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		indices [][]int64
		values  []float64
	)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if r.rand.Float64() >= density {
				continue
			}
			indices = append(indices, []int64{int64(i), int64(j)})
			values = append(values, r.rand.NormFloat64())
		}
	}
	return tensor.MustSparse(indices, tensor.FromSlice(nonNil(values)), tensor.Shape{rows, cols})
}

// Tokens returns n tokens drawn from a vocabulary of the given size.
func (r *RNG) Tokens(n, vocabSize int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, n)
	for i := range out {
		out[i] = "tok" + strconv.Itoa(r.rand.Intn(vocabSize))
	}
	return out
}

// SplitDense splits a dense batch along the batch dimension at row.
func SplitDense(x *tensor.Dense, row int) (*tensor.Dense, *tensor.Dense) {
	shape := x.Shape()
	rowLen := shape.Instance().NumElements()
	split := func(from, to int) *tensor.Dense {
		s := shape.Clone()
		s[0] = to - from
		switch v := x.Data().(type) {
		case []float64:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		case []float32:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		case []int64:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		case []int32:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		case []uint8:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		case []string:
			return tensor.MustDense(s, v[from*rowLen:to*rowLen])
		default:
			panic("testutil: unsupported dtype " + x.DType().String())
		}
	}
	return split(0, row), split(row, shape[0])
}

// SplitSparse splits a rank-2 sparse Float64 batch along the batch dimension
// at row. Row indices of the second half are rebased to zero.
func SplitSparse(x *tensor.Sparse, row int) (*tensor.Sparse, *tensor.Sparse) {
	shape := x.Shape()
	vals, _ := tensor.Values[float64](x.Values())

	var (
		ia, ib [][]int64
		va, vb []float64
	)
	for i := 0; i < x.NNZ(); i++ {
		c := x.Index(i)
		if int(c[0]) < row {
			ia = append(ia, []int64{c[0], c[1]})
			va = append(va, vals[i])
		} else {
			ib = append(ib, []int64{c[0] - int64(row), c[1]})
			vb = append(vb, vals[i])
		}
	}
	a := tensor.MustSparse(ia, tensor.FromSlice(nonNil(va)), tensor.Shape{row, shape[1]})
	b := tensor.MustSparse(ib, tensor.FromSlice(nonNil(vb)), tensor.Shape{shape[0] - row, shape[1]})
	return a, b
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
