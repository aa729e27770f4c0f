package partial

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/batchagg/blobstore"
)

// FeatureManifest describes one analyzed feature.
type FeatureManifest struct {
	Name     string   `json:"name"`
	Spec     string   `json:"spec"`
	Reducers []string `json:"reducers"`
}

// Manifest describes a run so a combiner knows what to expect.
type Manifest struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Features  []FeatureManifest `json:"features"`
	Batches   int64             `json:"batches"`
	Rows      int64             `json:"rows"`
}

// WriteManifest stores m next to the run's partials.
func (s *Store) WriteManifest(ctx context.Context, m *Manifest) error {
	data, err := s.opts.Codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("partial: encode manifest: %w", err)
	}
	return s.blobs.Put(ctx, s.runDir(m.RunID)+manifestName, data)
}

// ReadManifest loads the manifest of a run.
func (s *Store) ReadManifest(ctx context.Context, runID string) (*Manifest, error) {
	data, err := blobstore.Get(ctx, s.blobs, s.runDir(runID)+manifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := s.opts.Codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("partial: decode manifest: %w", err)
	}
	return &m, nil
}
