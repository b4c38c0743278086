package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// RelationalSource reads members, teams, projects and events.
// All queries are read-only.
type RelationalSource interface {
	// Changed returns eligible records of one entity type created or
	// updated strictly after since.
	Changed(ctx context.Context, entity domain.EntityType, since time.Time) ([]domain.SourceRecord, error)

	// IneligibleIDs returns the ids of every record of the entity type that
	// must not be in the index, regardless of when it changed.
	IneligibleIDs(ctx context.Context, entity domain.EntityType) ([]string, error)
}

// ForumSource reads forum topics and posts.
// Timestamps are returned raw; callers normalise them.
type ForumSource interface {
	// ChangedTopics returns live topics created or bumped after since.
	ChangedTopics(ctx context.Context, since time.Time) ([]domain.ForumTopic, error)

	// ChangedPosts returns live posts created or edited after since.
	// Topic fields are not joined.
	ChangedPosts(ctx context.Context, since time.Time) ([]domain.ForumPost, error)

	// Topics returns topics by id, including deleted ones.
	Topics(ctx context.Context, tids []int64) (map[int64]domain.ForumTopic, error)

	// FirstPostIDs returns the lowest live post id of each topic.
	FirstPostIDs(ctx context.Context, tids []int64) (map[int64]int64, error)

	// DeletedTopicIDs returns the ids of all deleted topics.
	DeletedTopicIDs(ctx context.Context) ([]string, error)

	// DeletedPostIDs returns the ids of all deleted posts, including
	// posts of deleted topics.
	DeletedPostIDs(ctx context.Context) ([]string, error)
}
