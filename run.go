package batchagg

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/batchagg/blobstore"
	"github.com/hupe1980/batchagg/partial"
	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

// ErrNoPartialStore is returned by operations that need WithPartialStore.
var ErrNoPartialStore = errors.New("no partial store configured")

// ErrDuplicateBatch is returned when a run sees the same batch id twice.
var ErrDuplicateBatch = errors.New("duplicate batch id")

// RunResult summarizes a run.
type RunResult struct {
	RunID   string
	Batches int
	Rows    int64
	// Result is the in-process merge of every batch of the run.
	Result *BatchResult
	// Commits lists the persisted partials in batch order. Empty without a
	// partial store.
	Commits []blobstore.Commit
	// Resumed counts batches whose partial was already committed and was
	// loaded instead of reduced again.
	Resumed int
}

// Run reduces batches concurrently and merges the results. With a partial
// store every batch is persisted and committed once; batches committed by
// an earlier attempt of the same run are loaded instead of reduced.
//
// Run stops at the first error of the sequence or of any batch.
func (a *Analyzer) Run(ctx context.Context, batches iter.Seq2[Batch, error]) (*RunResult, error) {
	runID := a.opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()

	limit := a.opts.concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu  sync.Mutex
		out = &RunResult{RunID: runID}
	)
	seen := make(map[int64]struct{})

	collect := func(res *BatchResult, c *blobstore.Commit, resumed bool) error {
		mu.Lock()
		defer mu.Unlock()
		merged, err := Combine(out.Result, res)
		if err != nil {
			return err
		}
		out.Result = merged
		out.Batches++
		out.Rows += res.Rows
		if c != nil {
			out.Commits = append(out.Commits, *c)
		}
		if resumed {
			out.Resumed++
		}
		return nil
	}

	var srcErr error
	for b, err := range batches {
		if err != nil {
			srcErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}
		if _, dup := seen[b.ID]; dup {
			srcErr = fmt.Errorf("%w: %d", ErrDuplicateBatch, b.ID)
			break
		}
		seen[b.ID] = struct{}{}

		g.Go(func() error {
			return a.runBatch(gctx, runID, b, collect)
		})
	}

	err := g.Wait()
	if err == nil {
		err = srcErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil && out.Result != nil {
		out.Result.Batch = -1
	}
	if err == nil && a.opts.partials != nil {
		slices.SortFunc(out.Commits, func(x, y blobstore.Commit) int { return cmp.Compare(x.Batch, y.Batch) })
		err = a.opts.partials.WriteManifest(ctx, a.manifest(out, start))
	}

	a.opts.logger.LogRun(ctx, runID, out.Batches, out.Rows, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analyzer) runBatch(ctx context.Context, runID string, b Batch, collect func(*BatchResult, *blobstore.Commit, bool) error) error {
	rc := a.opts.controller
	if err := rc.AcquireBatch(ctx); err != nil {
		return err
	}
	defer rc.ReleaseBatch()

	if a.opts.partials != nil {
		c, err := a.opts.partials.Lookup(ctx, runID, b.ID)
		switch {
		case err == nil:
			p, err := a.opts.partials.Load(ctx, c)
			if err != nil {
				return err
			}
			res, err := FromPartial(p)
			if err != nil {
				return err
			}
			a.opts.logger.WithRun(runID).DebugContext(ctx, "batch already committed", "batch", b.ID, "blob", c.Blob)
			return collect(res, &c, true)
		case !errors.Is(err, blobstore.ErrNotFound):
			return err
		}
	}

	mem := estimateBytes(b)
	if err := rc.AcquireMemory(ctx, mem); err != nil {
		return err
	}
	defer rc.ReleaseMemory(mem)

	res, err := a.ReduceBatch(ctx, b)
	if err != nil {
		return err
	}
	if a.opts.partials == nil {
		return collect(res, nil, false)
	}

	c, err := a.persist(ctx, runID, res)
	if err != nil {
		return err
	}
	return collect(res, &c, false)
}

func (a *Analyzer) persist(ctx context.Context, runID string, res *BatchResult) (blobstore.Commit, error) {
	start := time.Now()
	c, n, err := a.opts.partials.Save(ctx, a.ToPartial(runID, res))
	if errors.Is(err, partial.ErrAlreadyCommitted) {
		// A concurrent attempt won; its partial holds the same batch.
		err = nil
	}
	a.opts.metricsCollector.RecordPersist(n, time.Since(start), err)
	a.opts.logger.LogPersist(ctx, res.Batch, c.Blob, n, err)
	return c, err
}

// ToPartial converts a batch result into its persisted form. Entries follow
// the feature and reducer declaration order.
func (a *Analyzer) ToPartial(runID string, res *BatchResult) *partial.Partial {
	p := &partial.Partial{
		RunID: runID,
		Batch: res.Batch,
		Rows:  res.Rows,
	}
	for _, f := range a.features {
		for _, agg := range res.Aggregates[f.Name] {
			p.Entries = append(p.Entries, partial.Entry{Feature: f.Name, Aggregate: agg})
		}
	}
	return p
}

// FromPartial converts a persisted partial back into a batch result.
func FromPartial(p *partial.Partial) (*BatchResult, error) {
	res := &BatchResult{
		Batch:      p.Batch,
		Rows:       p.Rows,
		Aggregates: make(map[string][]reduce.Aggregate),
	}
	for _, e := range p.Entries {
		if e.Feature == "" || e.Aggregate == nil {
			return nil, fmt.Errorf("%w: batch %d has an empty entry", partial.ErrMalformed, p.Batch)
		}
		res.Aggregates[e.Feature] = append(res.Aggregates[e.Feature], e.Aggregate)
	}
	return res, nil
}

// CombineRun loads every committed partial of a run and merges them.
func (a *Analyzer) CombineRun(ctx context.Context, runID string) (*BatchResult, error) {
	if a.opts.partials == nil {
		return nil, ErrNoPartialStore
	}
	var (
		out *BatchResult
		n   int
	)
	for p, err := range a.opts.partials.Partials(ctx, runID) {
		if err != nil {
			a.opts.logger.LogCombine(ctx, n, err)
			return nil, err
		}
		res, err := FromPartial(p)
		if err == nil {
			out, err = Combine(out, res)
		}
		if err != nil {
			a.opts.logger.LogCombine(ctx, n, err)
			return nil, err
		}
		n++
	}
	if out == nil {
		err := fmt.Errorf("run %s: %w", runID, blobstore.ErrNotFound)
		a.opts.logger.LogCombine(ctx, 0, err)
		return nil, err
	}
	out.Batch = -1
	a.opts.logger.LogCombine(ctx, n, nil)
	return out, nil
}

func (a *Analyzer) manifest(out *RunResult, start time.Time) *partial.Manifest {
	m := &partial.Manifest{
		RunID:     out.RunID,
		CreatedAt: start.UTC(),
		Batches:   int64(out.Batches),
		Rows:      out.Rows,
	}
	for _, f := range a.features {
		fm := partial.FeatureManifest{Name: f.Name, Spec: f.Spec.String()}
		for _, rs := range f.Reducers {
			fm.Reducers = append(fm.Reducers, rs.String())
		}
		m.Features = append(m.Features, fm)
	}
	return m
}

// estimateBytes approximates the memory a batch pins while it is reduced.
func estimateBytes(b Batch) int64 {
	var n int64
	for _, c := range b.Columns {
		switch x := c.(type) {
		case *tensor.Dense:
			n += denseBytes(x)
		case *tensor.Sparse:
			n += denseBytes(x.Values()) + int64(x.NNZ()*x.Rank()*8)
		}
	}
	return n
}

func denseBytes(d *tensor.Dense) int64 {
	switch d.DType() {
	case tensor.Int8, tensor.Uint8:
		return int64(d.Len())
	case tensor.Int16, tensor.Uint16:
		return int64(d.Len()) * 2
	case tensor.Float32, tensor.Int32, tensor.Uint32:
		return int64(d.Len()) * 4
	case tensor.String:
		vals, _ := d.Strings()
		var n int64
		for _, s := range vals {
			n += int64(len(s)) + 16
		}
		return n
	default:
		return int64(d.Len()) * 8
	}
}
