package blobstore

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"
)

// ErrExists is returned by Ledger.Commit when the batch already has a commit.
var ErrExists = os.ErrExist

// Commit records which blob holds the partial aggregates of one batch.
type Commit struct {
	RunID     string
	Batch     int64
	Blob      string
	Rows      int64
	CreatedAt time.Time
}

// Ledger records at most one Commit per (run, batch). It is what makes a
// retried batch visible to the combiner exactly once.
type Ledger interface {
	// Commit stores c. It returns an error satisfying errors.Is(err, ErrExists)
	// when the batch was already committed.
	Commit(ctx context.Context, c Commit) error
	// Lookup returns the commit of one batch, or ErrNotFound.
	Lookup(ctx context.Context, runID string, batch int64) (Commit, error)
	// Commits returns every commit of a run ordered by batch.
	Commits(ctx context.Context, runID string) ([]Commit, error)
}

type ledgerKey struct {
	run   string
	batch int64
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	commits map[ledgerKey]Commit
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{commits: make(map[ledgerKey]Commit)}
}

// Commit implements Ledger.
func (l *MemoryLedger) Commit(ctx context.Context, c Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	k := ledgerKey{c.RunID, c.Batch}
	if prev, ok := l.commits[k]; ok {
		return fmt.Errorf("blobstore: batch %d of run %s committed as %s: %w", c.Batch, c.RunID, prev.Blob, ErrExists)
	}
	l.commits[k] = c
	return nil
}

// Lookup implements Ledger.
func (l *MemoryLedger) Lookup(_ context.Context, runID string, batch int64) (Commit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.commits[ledgerKey{runID, batch}]
	if !ok {
		return Commit{}, ErrNotFound
	}
	return c, nil
}

// Commits implements Ledger.
func (l *MemoryLedger) Commits(_ context.Context, runID string) ([]Commit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Commit
	for k, c := range l.commits {
		if k.run == runID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Commit) int { return cmp.Compare(a.Batch, b.Batch) })
	return out, nil
}
