package partial

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchagg/blobstore"
	"github.com/hupe1980/batchagg/codec"
	"github.com/hupe1980/batchagg/internal/compress"
	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

func samplePartial(t *testing.T, batch int64) *Partial {
	t.Helper()

	x := tensor.MustDense(tensor.Shape{3, 2}, []float64{1, math.NaN(), 3, 4, 5, 6})
	count, err := reduce.Count(x, false)
	require.NoError(t, err)

	mr, err := reduce.NewMomentsReducer(x.Spec(), true)
	require.NoError(t, err)
	moments, err := mr.Reduce(x)
	require.NoError(t, err)

	xr, err := reduce.NewMinMaxReducer(x.Spec(), false)
	require.NoError(t, err)
	minMax, err := xr.Reduce(x)
	require.NoError(t, err)

	tokens := tensor.FromSlice([]string{"a", "b", "a"})
	weighted, err := reduce.Vocabulary(tokens, reduce.WeightedFrequency, tensor.FromSlice([]float64{1, 2, 3}), nil)
	require.NoError(t, err)
	freq, err := reduce.Vocabulary(tokens, reduce.Frequency, nil, nil)
	require.NoError(t, err)

	return &Partial{
		RunID:     "run-1",
		Batch:     batch,
		Rows:      3,
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Entries: []Entry{
			{Feature: "x", Aggregate: &reduce.Total{Kind: reduce.OpCount, Value: count}},
			{Feature: "x", Aggregate: moments},
			{Feature: "x", Aggregate: minMax},
			{Feature: "tok", Aggregate: weighted},
			{Feature: "tok", Aggregate: freq},
		},
	}
}

func assertSameDense(t *testing.T, want, got *tensor.Dense) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.Equal(t, want.DType(), got.DType())
	assert.Equal(t, want.Shape(), got.Shape())
	if !want.DType().IsFloating() {
		assert.Equal(t, want.Data(), got.Data())
		return
	}
	a, _ := want.Float64s()
	b, _ := got.Float64s()
	require.Len(t, b, len(a))
	for i := range a {
		if math.IsNaN(a[i]) {
			assert.True(t, math.IsNaN(b[i]), "element %d", i)
			continue
		}
		assert.Equal(t, a[i], b[i], "element %d", i)
	}
}

func assertSamePartial(t *testing.T, want, got *Partial) {
	t.Helper()
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Batch, got.Batch)
	assert.Equal(t, want.Rows, got.Rows)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Entries, len(want.Entries))
	for i, e := range want.Entries {
		g := got.Entries[i]
		assert.Equal(t, e.Feature, g.Feature)
		assert.Equal(t, e.Aggregate.Op(), g.Aggregate.Op())
		wf, gf := e.Aggregate.Fields(), g.Aggregate.Fields()
		require.Len(t, gf, len(wf))
		for j := range wf {
			assert.Equal(t, wf[j].Name, gf[j].Name)
			assertSameDense(t, wf[j].Value, gf[j].Value)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	p := samplePartial(t, 4)
	for _, ct := range []compress.Type{compress.None, compress.LZ4, compress.Zstd} {
		for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
			t.Run(ct.String()+"/"+c.Name(), func(t *testing.T) {
				data, err := Encode(p, c, ct)
				require.NoError(t, err)
				assert.Equal(t, "BAGG", string(data[:4]))

				got, err := Decode(data)
				require.NoError(t, err)
				assertSamePartial(t, p, got)
			})
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	data, err := Encode(samplePartial(t, 0), codec.Default, compress.None)
	require.NoError(t, err)

	cases := map[string][]byte{
		"short":       data[:3],
		"magic":       append([]byte("XAGG"), data[4:]...),
		"version":     append(append([]byte("BAGG"), 9), data[5:]...),
		"codec":       append(append([]byte("BAGG"), 1, 0, 99), data[7:]...),
		"truncated":   data[:len(data)-5],
		"compression": append(append([]byte("BAGG"), 1, 42), data[6:]...),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(b)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func newStore(t *testing.T) (*Store, *blobstore.MemoryStore, *blobstore.MemoryLedger) {
	t.Helper()
	blobs := blobstore.NewMemoryStore()
	ledger := blobstore.NewMemoryLedger()
	opts := DefaultOptions()
	opts.Prefix = "partials"
	s, err := New(blobs, ledger, opts)
	require.NoError(t, err)
	return s, blobs, ledger
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	p := samplePartial(t, 1)
	c, n, err := s.Save(ctx, p)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, int64(1), c.Batch)
	assert.Regexp(t, `^partials/run-1/00000001-[0-9a-f-]{36}\.bagg$`, c.Blob)

	got, err := s.LoadBatch(ctx, "run-1", 1)
	require.NoError(t, err)
	assertSamePartial(t, p, got)

	_, err = s.LoadBatch(ctx, "run-1", 2)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_SaveTwiceCommitsOnce(t *testing.T) {
	ctx := context.Background()
	s, blobs, _ := newStore(t)

	first, _, err := s.Save(ctx, samplePartial(t, 7))
	require.NoError(t, err)

	again, n, err := s.Save(ctx, samplePartial(t, 7))
	require.ErrorIs(t, err, ErrAlreadyCommitted)
	assert.Zero(t, n)
	assert.Equal(t, first.Blob, again.Blob)

	commits, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, commits, 1)
	assert.Equal(t, 1, blobs.Len())
}

type failingLedger struct {
	blobstore.Ledger
}

func (failingLedger) Commit(context.Context, blobstore.Commit) error {
	return errors.New("ledger unavailable")
}

func TestStore_OrphansAndSweep(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	ledger := blobstore.NewMemoryLedger()

	s, err := New(blobs, ledger, DefaultOptions())
	require.NoError(t, err)
	_, _, err = s.Save(ctx, samplePartial(t, 0))
	require.NoError(t, err)

	broken, err := New(blobs, failingLedger{ledger}, DefaultOptions())
	require.NoError(t, err)
	_, _, err = broken.Save(ctx, samplePartial(t, 1))
	require.ErrorContains(t, err, "ledger unavailable")

	orphans, err := s.Orphans(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Contains(t, orphans[0], "run-1/00000001-")

	n, err := s.Sweep(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, blobs.Len())
}

func TestStore_PartialsMerge(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	for b := int64(2); b >= 0; b-- {
		_, _, err := s.Save(ctx, samplePartial(t, b))
		require.NoError(t, err)
	}

	var batches []int64
	var total reduce.Aggregate
	for p, err := range s.Partials(ctx, "run-1") {
		require.NoError(t, err)
		batches = append(batches, p.Batch)
		agg := p.Entries[0].Aggregate
		if total == nil {
			total = agg
			continue
		}
		total, err = reduce.Merge(total, agg)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{0, 1, 2}, batches)

	counts, err := tensor.Values[int64](total.(*reduce.Total).Value)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 6}, counts)
}

func TestStore_Manifest(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	m := &Manifest{
		RunID:     "run-1",
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Features:  []FeatureManifest{{Name: "x", Spec: "dense float64[?,2]", Reducers: []string{"count"}}},
		Batches:   3,
		Rows:      9,
	}
	require.NoError(t, s.WriteManifest(ctx, m))

	got, err := s.ReadManifest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	orphans, err := s.Orphans(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = s.ReadManifest(ctx, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, blobstore.NewMemoryLedger(), DefaultOptions())
	assert.Error(t, err)

	s, err := New(blobstore.NewMemoryStore(), blobstore.NewMemoryLedger(), Options{})
	require.NoError(t, err)
	assert.Equal(t, codec.Default.Name(), s.opts.Codec.Name())
}
