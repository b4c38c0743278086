package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Ensure CheckpointAdvancer implements the interface.
var _ driving.CheckpointService = (*CheckpointAdvancer)(nil)

// CheckpointAdvancer reads and moves per-stream watermarks.
// Sync passes only ever move watermarks forward.
type CheckpointAdvancer struct {
	store driven.CheckpointStore
}

// NewCheckpointAdvancer creates an advancer over a checkpoint store.
func NewCheckpointAdvancer(store driven.CheckpointStore) *CheckpointAdvancer {
	return &CheckpointAdvancer{store: store}
}

// Current returns the stream's watermark, or domain.DefaultEpoch if it
// has never been set.
func (a *CheckpointAdvancer) Current(ctx context.Context, stream domain.Stream) (time.Time, error) {
	wm, err := a.store.Get(ctx, stream)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultEpoch, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get %s checkpoint: %w", stream, err)
	}
	return wm, nil
}

// Advance stores candidate as the new watermark when the pass was clean
// and candidate is strictly after current. It returns the resulting
// watermark and whether it moved.
func (a *CheckpointAdvancer) Advance(
	ctx context.Context, stream domain.Stream, current, candidate time.Time, clean bool,
) (time.Time, bool, error) {
	if !clean {
		logger.Info("Checkpoint %s held at %s: pass had failures", stream, domain.FormatWatermark(current))
		return current, false, nil
	}
	if !candidate.After(current) {
		return current, false, nil
	}
	if err := a.store.Set(ctx, stream, candidate); err != nil {
		return current, false, fmt.Errorf("set %s checkpoint: %w", stream, err)
	}
	logger.Info("Checkpoint %s advanced to %s", stream, domain.FormatWatermark(candidate))
	return candidate, true, nil
}

// Set overwrites the stream's watermark with an operator-chosen instant.
// Like Reset it may move the watermark backwards to replay a window.
func (a *CheckpointAdvancer) Set(ctx context.Context, stream domain.Stream, watermark time.Time) error {
	if err := a.store.Set(ctx, stream, watermark.UTC()); err != nil {
		return fmt.Errorf("set %s checkpoint: %w", stream, err)
	}
	logger.Info("Checkpoint %s set to %s", stream, domain.FormatWatermark(watermark))
	return nil
}

// Reset moves the stream back to domain.DefaultEpoch, forcing a backfill.
func (a *CheckpointAdvancer) Reset(ctx context.Context, stream domain.Stream) error {
	if err := a.store.Set(ctx, stream, domain.DefaultEpoch); err != nil {
		return fmt.Errorf("reset %s checkpoint: %w", stream, err)
	}
	return nil
}
