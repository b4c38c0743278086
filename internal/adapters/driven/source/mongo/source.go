// Package mongo reads forum topics and posts from a NodeBB-style MongoDB
// "objects" collection, where every object carries a "_key" such as
// "topic:42" or "post:105".
package mongo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// DefaultCollection is the NodeBB object collection name.
const DefaultCollection = "objects"

const (
	topicKeyPrefix = "topic:"
	postKeyPrefix  = "post:"
)

// millisThreshold separates millisecond from second encodings.
const millisThreshold = 1_000_000_000_000

// Ensure Source implements the interface.
var _ driven.ForumSource = (*Source)(nil)

// Source is a read-only forum source backed by MongoDB.
type Source struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client, verifies it with a ping and selects the collection.
func Connect(ctx context.Context, uri, database, collection string) (*Source, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %w", domain.ErrSourceUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: mongo ping: %w", domain.ErrSourceUnavailable, err)
	}
	return &Source{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Close disconnects the client.
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ChangedTopics returns topics created or last posted in after since.
// Deleted topics are included so the caller can decide what to skip.
func (s *Source) ChangedTopics(ctx context.Context, since time.Time) ([]domain.ForumTopic, error) {
	filter := changedFilter(topicKeyPrefix, since, "timestamp", "lastposttime")
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding topics: %w", err)
	}
	defer cur.Close(ctx)

	var topics []domain.ForumTopic
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding topic: %w", err)
		}
		topics = append(topics, decodeTopic(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating topics: %w", err)
	}
	return topics, nil
}

// ChangedPosts returns posts created or edited after since.
func (s *Source) ChangedPosts(ctx context.Context, since time.Time) ([]domain.ForumPost, error) {
	filter := changedFilter(postKeyPrefix, since, "timestamp", "edited")
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding posts: %w", err)
	}
	defer cur.Close(ctx)

	var posts []domain.ForumPost
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding post: %w", err)
		}
		posts = append(posts, decodePost(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	return posts, nil
}

// Topics loads topics by id.
func (s *Source) Topics(ctx context.Context, tids []int64) (map[int64]domain.ForumTopic, error) {
	out := make(map[int64]domain.ForumTopic, len(tids))
	if len(tids) == 0 {
		return out, nil
	}

	cur, err := s.coll.Find(ctx, bson.D{{Key: "_key", Value: bson.D{{Key: "$in", Value: topicKeys(tids)}}}})
	if err != nil {
		return nil, fmt.Errorf("finding topics by id: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding topic: %w", err)
		}
		t := decodeTopic(raw)
		out[t.TID] = t
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating topics: %w", err)
	}
	return out, nil
}

// FirstPostIDs returns the lowest live pid of each topic.
func (s *Source) FirstPostIDs(ctx context.Context, tids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(tids))
	if len(tids) == 0 {
		return out, nil
	}

	cur, err := s.coll.Aggregate(ctx, firstPostPipeline(tids))
	if err != nil {
		return nil, fmt.Errorf("aggregating first posts: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding first post: %w", err)
		}
		out[toInt64(raw["_id"])] = toInt64(raw["first"])
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating first posts: %w", err)
	}
	return out, nil
}

// DeletedTopicIDs returns the ids of every deleted topic.
func (s *Source) DeletedTopicIDs(ctx context.Context) ([]string, error) {
	return s.findIDs(ctx, deletedFilter(topicKeyPrefix), "tid")
}

// DeletedPostIDs returns the ids of every deleted post and of every post
// whose topic is deleted.
func (s *Source) DeletedPostIDs(ctx context.Context) ([]string, error) {
	topicIDs, err := s.DeletedTopicIDs(ctx)
	if err != nil {
		return nil, err
	}
	tids := make([]int64, 0, len(topicIDs))
	for _, id := range topicIDs {
		tid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}
	return s.findIDs(ctx, deletedPostsFilter(tids), "pid")
}

// findIDs returns the positive idField values of the objects matching filter.
func (s *Source) findIDs(ctx context.Context, filter bson.D, idField string) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: idField, Value: 1}})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding deleted %s ids: %w", idField, err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding deleted id: %w", err)
		}
		if id := toInt64(raw[idField]); id > 0 {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating deleted ids: %w", err)
	}
	return ids, nil
}
