package resource

import (
	"context"

	"github.com/hupe1980/batchagg/blobstore"
)

// ThrottledStore charges every Put against the controller's IO limit.
type ThrottledStore struct {
	blobstore.BlobStore
	rc *Controller
}

// Throttle wraps s. Reads are not limited.
func Throttle(s blobstore.BlobStore, rc *Controller) *ThrottledStore {
	return &ThrottledStore{BlobStore: s, rc: rc}
}

// Put waits for IO budget before writing.
func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return s.BlobStore.Put(ctx, name, data)
}
