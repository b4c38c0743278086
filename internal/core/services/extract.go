package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// RelationalExtractor reads changed members, teams, projects and events.
type RelationalExtractor struct {
	source driven.RelationalSource
}

// NewRelationalExtractor creates an extractor over a relational source.
func NewRelationalExtractor(source driven.RelationalSource) *RelationalExtractor {
	return &RelationalExtractor{source: source}
}

// Extract returns eligible records of one entity type changed after since.
// Any source error is wrapped with domain.ErrSourceUnavailable.
func (e *RelationalExtractor) Extract(
	ctx context.Context, entity domain.EntityType, since time.Time,
) ([]domain.SourceRecord, error) {
	if entity.Stream() != domain.StreamRelational {
		return nil, fmt.Errorf("%w: %s is not relational", domain.ErrUnsupportedType, entity)
	}
	records, err := e.source.Changed(ctx, entity, since)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %w", domain.ErrSourceUnavailable, entity, err)
	}
	if entity == domain.EntityMember {
		records = eligibleMembers(records)
	}
	logger.Debug("Extracted %d %s records changed after %s", len(records), entity, domain.FormatWatermark(since))
	return records, nil
}

// eligibleMembers drops members whose access level keeps them out of the index.
func eligibleMembers(records []domain.SourceRecord) []domain.SourceRecord {
	out := make([]domain.SourceRecord, 0, len(records))
	for _, r := range records {
		if m, ok := r.(domain.Member); ok && !domain.MemberEligible(m.AccessLevel) {
			logger.Debug("Skipping member %s: access level %s", m.UID, m.AccessLevel)
			continue
		}
		out = append(out, r)
	}
	return out
}

// ForumExtractor reads changed forum topics and posts.
type ForumExtractor struct {
	source driven.ForumSource
}

// NewForumExtractor creates an extractor over a forum source.
func NewForumExtractor(source driven.ForumSource) *ForumExtractor {
	return &ForumExtractor{source: source}
}

// Extract dispatches on the forum entity type.
func (e *ForumExtractor) Extract(
	ctx context.Context, entity domain.EntityType, since time.Time,
) ([]domain.SourceRecord, error) {
	switch entity {
	case domain.EntityForumTopic:
		return e.Topics(ctx, since)
	case domain.EntityForumPost:
		return e.Posts(ctx, since)
	default:
		return nil, fmt.Errorf("%w: %s is not a forum entity", domain.ErrUnsupportedType, entity)
	}
}

// Topics returns live topics changed after since.
func (e *ForumExtractor) Topics(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	topics, err := e.source.ChangedTopics(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: extract topics: %w", domain.ErrSourceUnavailable, err)
	}

	records := make([]domain.SourceRecord, 0, len(topics))
	for _, t := range topics {
		if t.Deleted {
			continue
		}
		records = append(records, t)
	}
	logger.Debug("Extracted %d forum topics changed after %s", len(records), domain.FormatWatermark(since))
	return records, nil
}

// Posts returns live posts changed after since, joined to their topic
// and classified as thread root or comment.
//
// A post is the root when its pid is the lowest live pid of its topic.
// The lowest pid is asked of the source; if that fails the lowest pid
// within the extracted batch is used instead.
func (e *ForumExtractor) Posts(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	posts, err := e.source.ChangedPosts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: extract posts: %w", domain.ErrSourceUnavailable, err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	tids := topicIDs(posts)
	topics, err := e.source.Topics(ctx, tids)
	if err != nil {
		return nil, fmt.Errorf("%w: join post topics: %w", domain.ErrSourceUnavailable, err)
	}

	firstPIDs, err := e.source.FirstPostIDs(ctx, tids)
	if err != nil {
		logger.Warn("First post lookup failed, using batch minimum: %v", err)
		firstPIDs = nil
	}
	batchFirst := minPIDByTopic(posts)

	records := make([]domain.SourceRecord, 0, len(posts))
	for _, p := range posts {
		if p.Deleted {
			continue
		}
		topic, ok := topics[p.TopicID]
		if !ok || topic.Deleted {
			logger.Debug("Skipping post %d: topic %d missing or deleted", p.PID, p.TopicID)
			continue
		}
		p.TopicTitle = topic.Title
		p.TopicSlug = topic.Slug
		p.TopicCategoryID = topic.CategoryID

		first, ok := firstPIDs[p.TopicID]
		if !ok {
			first = batchFirst[p.TopicID]
		}
		p.IsComment = p.PID != first
		records = append(records, p)
	}
	logger.Debug("Extracted %d forum posts changed after %s", len(records), domain.FormatWatermark(since))
	return records, nil
}

// topicIDs returns the distinct topic ids of posts in first-seen order.
func topicIDs(posts []domain.ForumPost) []int64 {
	seen := make(map[int64]bool)
	var tids []int64
	for _, p := range posts {
		if !seen[p.TopicID] {
			seen[p.TopicID] = true
			tids = append(tids, p.TopicID)
		}
	}
	return tids
}

// minPIDByTopic returns the lowest live pid per topic within posts.
func minPIDByTopic(posts []domain.ForumPost) map[int64]int64 {
	out := make(map[int64]int64)
	for _, p := range posts {
		if p.Deleted {
			continue
		}
		if cur, ok := out[p.TopicID]; !ok || p.PID < cur {
			out[p.TopicID] = p.PID
		}
	}
	return out
}
