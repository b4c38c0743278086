package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// TombstoneScanner removes every currently ineligible entity from the index.
// It is not windowed by the checkpoint: each scan re-reads the full set.
type TombstoneScanner struct {
	relational  driven.RelationalSource
	forum       driven.ForumSource
	indexer     *BulkIndexer
	indexPrefix string
}

// NewTombstoneScanner creates a scanner. Either source may be nil.
func NewTombstoneScanner(
	relational driven.RelationalSource,
	forum driven.ForumSource,
	indexer *BulkIndexer,
	indexPrefix string,
) *TombstoneScanner {
	return &TombstoneScanner{
		relational:  relational,
		forum:       forum,
		indexer:     indexer,
		indexPrefix: indexPrefix,
	}
}

// Scan deletes the stream's ineligible entities and returns the number of
// deletions applied, counting already absent documents as deleted.
// Failures for one entity type do not stop the others.
func (s *TombstoneScanner) Scan(ctx context.Context, stream domain.Stream) (IndexStats, error) {
	var stats IndexStats
	var errs []error

	var entities []domain.EntityType
	switch stream {
	case domain.StreamRelational:
		if s.relational != nil {
			entities = domain.RelationalEntities()
		}
	case domain.StreamForum:
		if s.forum != nil {
			entities = domain.ForumEntities()
		}
	}

	for _, entity := range entities {
		ids, err := s.ineligible(ctx, entity)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: tombstones for %s: %w", domain.ErrSourceUnavailable, entity, err))
			continue
		}
		if len(ids) == 0 {
			continue
		}
		index := domain.IndexName(s.indexPrefix, entity.Category())
		res, err := s.indexer.Delete(ctx, index, ids)
		stats.add(res)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s tombstones: %w", entity, err))
		}
		logger.Debug("Tombstones for %s: %d deleted, %d failed", entity, res.Succeeded, res.Failed)
	}

	return stats, errors.Join(errs...)
}

func (s *TombstoneScanner) ineligible(ctx context.Context, entity domain.EntityType) ([]string, error) {
	switch entity {
	case domain.EntityForumTopic:
		return s.forum.DeletedTopicIDs(ctx)
	case domain.EntityForumPost:
		return s.forum.DeletedPostIDs(ctx)
	default:
		return s.relational.IneligibleIDs(ctx, entity)
	}
}
