package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// DefaultBatchSize is the number of documents per bulk request.
const DefaultBatchSize = 500

// failureSampleSize bounds how many failed items are logged per call.
const failureSampleSize = 5

// IndexStats counts the outcome of a bulk write.
type IndexStats struct {
	Succeeded int
	Failed    int

	// Sample holds up to five failed items for triage.
	Sample []driven.BulkItemError
}

func (s *IndexStats) add(o IndexStats) {
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	for _, f := range o.Sample {
		if len(s.Sample) >= failureSampleSize {
			break
		}
		s.Sample = append(s.Sample, f)
	}
}

// BulkIndexer writes documents to the search cluster in fixed-size batches.
// Batches within one call are issued sequentially and paced by a limiter.
type BulkIndexer struct {
	cluster   driven.SearchCluster
	batchSize int
	limiter   *rate.Limiter
}

// NewBulkIndexer creates an indexer. batchesPerSecond <= 0 disables pacing.
func NewBulkIndexer(cluster driven.SearchCluster, batchSize int, batchesPerSecond float64) *BulkIndexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	limit := rate.Inf
	if batchesPerSecond > 0 {
		limit = rate.Limit(batchesPerSecond)
	}
	return &BulkIndexer{
		cluster:   cluster,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Upsert indexes documents keyed by (index, id).
// Per-document failures are counted, not returned. The error reports
// batches the cluster rejected as a whole; their documents count as failed.
func (b *BulkIndexer) Upsert(ctx context.Context, docs []domain.IndexDocument) (IndexStats, error) {
	actions := make([]driven.BulkAction, len(docs))
	for i, d := range docs {
		actions[i] = driven.BulkAction{
			Op:    driven.BulkUpsert,
			Index: d.Index,
			ID:    d.ID,
			Doc:   d.Body(),
		}
	}
	return b.apply(ctx, actions)
}

// Delete removes documents by id. Documents already absent count as deleted.
func (b *BulkIndexer) Delete(ctx context.Context, index string, ids []string) (IndexStats, error) {
	actions := make([]driven.BulkAction, len(ids))
	for i, id := range ids {
		actions[i] = driven.BulkAction{
			Op:    driven.BulkDelete,
			Index: index,
			ID:    id,
		}
	}
	return b.apply(ctx, actions)
}

func (b *BulkIndexer) apply(ctx context.Context, actions []driven.BulkAction) (IndexStats, error) {
	var stats IndexStats
	var errs []error

	for start := 0; start < len(actions); start += b.batchSize {
		end := start + b.batchSize
		if end > len(actions) {
			end = len(actions)
		}
		batch := actions[start:end]

		if err := b.limiter.Wait(ctx); err != nil {
			stats.Failed += len(actions) - start
			errs = append(errs, err)
			break
		}

		res, err := b.cluster.Bulk(ctx, batch)
		if err != nil {
			logger.Warn("Bulk request of %d items failed: %v", len(batch), err)
			stats.Failed += len(batch)
			errs = append(errs, fmt.Errorf("bulk batch %d-%d: %w", start, end, err))
			continue
		}
		stats.add(batchStats(res))
	}

	logFailures(stats)
	return stats, errors.Join(errs...)
}

// batchStats folds a bulk result, treating deletes of absent documents as success.
func batchStats(res driven.BulkResult) IndexStats {
	stats := IndexStats{Succeeded: res.Succeeded}
	for _, f := range res.Failed {
		if f.NotFound {
			stats.Succeeded++
			continue
		}
		stats.Failed++
		if len(stats.Sample) < failureSampleSize {
			stats.Sample = append(stats.Sample, f)
		}
	}
	return stats
}

func logFailures(stats IndexStats) {
	if stats.Failed == 0 {
		return
	}
	logger.Warn("%d bulk items failed; first %d:", stats.Failed, len(stats.Sample))
	for _, f := range stats.Sample {
		logger.Warn("  index=%s id=%s status=%d reason=%s", f.Index, f.ID, f.Status, f.Reason)
	}
}
