package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// CheckpointService lets operators inspect and move stream watermarks.
type CheckpointService interface {
	// Current returns the stream's watermark, or domain.DefaultEpoch if unset.
	Current(ctx context.Context, stream domain.Stream) (time.Time, error)

	// Set overwrites the stream's watermark.
	Set(ctx context.Context, stream domain.Stream, watermark time.Time) error

	// Reset moves the stream back to domain.DefaultEpoch.
	Reset(ctx context.Context, stream domain.Stream) error
}
