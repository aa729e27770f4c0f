package partial

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/batchagg/blobstore"
	"github.com/hupe1980/batchagg/codec"
	"github.com/hupe1980/batchagg/internal/compress"
)

// ErrAlreadyCommitted is returned by Save when another attempt committed the
// batch first. The returned Commit describes the winning blob.
var ErrAlreadyCommitted = errors.New("partial: batch already committed")

const (
	blobSuffix   = ".bagg"
	manifestName = "manifest.json"
)

// Options configures a Store.
type Options struct {
	// Compression applied to blob bodies. Default: compress.Zstd.
	Compression compress.Type
	// Codec for blob headers and run manifests. Default: codec.Default.
	Codec codec.Codec
	// Prefix is prepended to every blob name.
	Prefix string
	// Logger receives persistence events. Default: discards.
	Logger *slog.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Compression: compress.Zstd,
		Codec:       codec.Default,
	}
}

// Store writes and reads partial blobs.
type Store struct {
	blobs  blobstore.BlobStore
	ledger blobstore.Ledger
	opts   Options
	logger *slog.Logger
}

// New creates a Store on top of a blob store and a commit ledger.
func New(blobs blobstore.BlobStore, ledger blobstore.Ledger, opts Options) (*Store, error) {
	if blobs == nil || ledger == nil {
		return nil, errors.New("partial: blob store and ledger are required")
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if _, err := codec.ID(opts.Codec); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		blobs:  blobs,
		ledger: ledger,
		opts:   opts,
		logger: logger,
	}, nil
}

func (s *Store) runDir(runID string) string {
	if s.opts.Prefix == "" {
		return runID + "/"
	}
	return path.Join(s.opts.Prefix, runID) + "/"
}

func (s *Store) blobName(runID string, batch int64, attempt string) string {
	return fmt.Sprintf("%s%08d-%s%s", s.runDir(runID), batch, attempt, blobSuffix)
}

// Save writes p and commits it. It returns the commit together with the
// encoded size in bytes. If the batch was committed before, the new blob is
// removed and the existing commit is returned with ErrAlreadyCommitted.
func (s *Store) Save(ctx context.Context, p *Partial) (blobstore.Commit, int, error) {
	if p.RunID == "" {
		return blobstore.Commit{}, 0, errors.New("partial: empty run id")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	data, err := Encode(p, s.opts.Codec, s.opts.Compression)
	if err != nil {
		return blobstore.Commit{}, 0, err
	}

	name := s.blobName(p.RunID, p.Batch, uuid.NewString())
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return blobstore.Commit{}, 0, fmt.Errorf("partial: put %s: %w", name, err)
	}

	c := blobstore.Commit{
		RunID:     p.RunID,
		Batch:     p.Batch,
		Blob:      name,
		Rows:      p.Rows,
		CreatedAt: p.CreatedAt,
	}
	err = s.ledger.Commit(ctx, c)
	if err == nil {
		s.logger.DebugContext(ctx, "partial committed",
			slog.String("run_id", p.RunID),
			slog.Int64("batch", p.Batch),
			slog.String("blob", name),
			slog.Int("bytes", len(data)),
		)
		return c, len(data), nil
	}

	// Keep the blob when the outcome is unknown; Sweep removes it later.
	if !errors.Is(err, blobstore.ErrExists) {
		return blobstore.Commit{}, 0, fmt.Errorf("partial: commit batch %d: %w", p.Batch, err)
	}
	if derr := s.blobs.Delete(ctx, name); derr != nil {
		s.logger.WarnContext(ctx, "failed to remove duplicate partial",
			slog.String("blob", name),
			slog.String("error", derr.Error()),
		)
	}
	prev, lerr := s.ledger.Lookup(ctx, p.RunID, p.Batch)
	if lerr != nil {
		return blobstore.Commit{}, 0, fmt.Errorf("partial: lookup batch %d: %w", p.Batch, lerr)
	}
	s.logger.InfoContext(ctx, "batch already committed",
		slog.String("run_id", p.RunID),
		slog.Int64("batch", p.Batch),
		slog.String("blob", prev.Blob),
	)
	return prev, 0, ErrAlreadyCommitted
}

// Load reads the blob of a commit.
func (s *Store) Load(ctx context.Context, c blobstore.Commit) (*Partial, error) {
	data, err := blobstore.Get(ctx, s.blobs, c.Blob)
	if err != nil {
		return nil, fmt.Errorf("partial: read %s: %w", c.Blob, err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Blob, err)
	}
	if p.RunID != c.RunID || p.Batch != c.Batch {
		return nil, fmt.Errorf("%w: %s holds run %s batch %d", ErrMalformed, c.Blob, p.RunID, p.Batch)
	}
	return p, nil
}

// Lookup returns the commit of one batch, or blobstore.ErrNotFound.
func (s *Store) Lookup(ctx context.Context, runID string, batch int64) (blobstore.Commit, error) {
	return s.ledger.Lookup(ctx, runID, batch)
}

// LoadBatch reads the committed partial of one batch.
func (s *Store) LoadBatch(ctx context.Context, runID string, batch int64) (*Partial, error) {
	c, err := s.Lookup(ctx, runID, batch)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, c)
}

// List returns the commits of a run ordered by batch.
func (s *Store) List(ctx context.Context, runID string) ([]blobstore.Commit, error) {
	return s.ledger.Commits(ctx, runID)
}

// Partials yields every committed partial of a run in batch order.
// Iteration stops at the first error.
func (s *Store) Partials(ctx context.Context, runID string) iter.Seq2[*Partial, error] {
	return func(yield func(*Partial, error) bool) {
		commits, err := s.List(ctx, runID)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, c := range commits {
			p, err := s.Load(ctx, c)
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Orphans returns blobs of a run that no commit references. They are left
// behind by attempts that failed between upload and commit.
func (s *Store) Orphans(ctx context.Context, runID string) ([]string, error) {
	names, err := s.blobs.List(ctx, s.runDir(runID))
	if err != nil {
		return nil, err
	}
	commits, err := s.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	committed := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		committed[c.Blob] = struct{}{}
	}

	var orphans []string
	for _, n := range names {
		if !strings.HasSuffix(n, blobSuffix) {
			continue
		}
		if _, ok := committed[n]; !ok {
			orphans = append(orphans, n)
		}
	}
	return orphans, nil
}

// Sweep deletes the orphans of a run and returns how many were removed.
func (s *Store) Sweep(ctx context.Context, runID string) (int, error) {
	orphans, err := s.Orphans(ctx, runID)
	if err != nil {
		return 0, err
	}
	for i, n := range orphans {
		if err := s.blobs.Delete(ctx, n); err != nil {
			return i, err
		}
	}
	if len(orphans) > 0 {
		s.logger.InfoContext(ctx, "swept orphaned partials",
			slog.String("run_id", runID),
			slog.Int("count", len(orphans)),
		)
	}
	return len(orphans), nil
}
