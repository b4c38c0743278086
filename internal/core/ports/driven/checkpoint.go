package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// CheckpointStore persists one watermark per source stream.
// Implementations must provide read-after-write consistency.
type CheckpointStore interface {
	// Get returns the stream's watermark.
	// Returns domain.ErrNotFound if the stream has never been checkpointed.
	Get(ctx context.Context, stream domain.Stream) (time.Time, error)

	// Set stores the stream's watermark, replacing any previous value.
	Set(ctx context.Context, stream domain.Stream, watermark time.Time) error
}
