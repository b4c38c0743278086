package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
type CheckpointStore struct {
	mu         sync.RWMutex
	watermarks map[domain.Stream]time.Time
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		watermarks: make(map[domain.Stream]time.Time),
	}
}

// Get retrieves the watermark for a stream.
func (s *CheckpointStore) Get(_ context.Context, stream domain.Stream) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wm, ok := s.watermarks[stream]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return wm, nil
}

// Set stores or replaces the watermark for a stream.
func (s *CheckpointStore) Set(ctx context.Context, stream domain.Stream, watermark time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[stream] = watermark.UTC()
	return nil
}
