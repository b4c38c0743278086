package mongo

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// changedFilter matches objects under prefix with any of the timestamp
// fields after since. Timestamps may be stored in milliseconds or seconds,
// so each field is matched against both encodings.
func changedFilter(prefix string, since time.Time, fields ...string) bson.D {
	sinceMs := since.UnixMilli()
	sinceSec := since.Unix()

	clauses := make(bson.A, 0, 2*len(fields))
	for _, f := range fields {
		clauses = append(clauses,
			bson.D{{Key: f, Value: bson.D{{Key: "$gt", Value: sinceMs}}}},
			bson.D{{Key: f, Value: bson.D{
				{Key: "$gt", Value: sinceSec},
				{Key: "$lt", Value: int64(millisThreshold)},
			}}},
		)
	}
	return bson.D{
		{Key: "_key", Value: bson.D{{Key: "$regex", Value: "^" + prefix}}},
		{Key: "$or", Value: clauses},
	}
}

// firstPostPipeline groups live posts of the given topics by tid and
// keeps the lowest pid.
func firstPostPipeline(tids []int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "_key", Value: bson.D{{Key: "$regex", Value: "^" + postKeyPrefix}}},
			{Key: "tid", Value: bson.D{{Key: "$in", Value: tids}}},
			{Key: "deleted", Value: bson.D{{Key: "$nin", Value: deletedValues()}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tid"},
			{Key: "first", Value: bson.D{{Key: "$min", Value: "$pid"}}},
		}}},
	}
}

// deletedFilter matches objects under prefix with the deleted flag set.
func deletedFilter(prefix string) bson.D {
	return bson.D{
		{Key: "_key", Value: bson.D{{Key: "$regex", Value: "^" + prefix}}},
		{Key: "deleted", Value: bson.D{{Key: "$in", Value: deletedValues()}}},
	}
}

// deletedPostsFilter matches posts that are deleted themselves or belong
// to one of the deleted topics.
func deletedPostsFilter(deletedTIDs []int64) bson.D {
	if len(deletedTIDs) == 0 {
		return deletedFilter(postKeyPrefix)
	}
	return bson.D{
		{Key: "_key", Value: bson.D{{Key: "$regex", Value: "^" + postKeyPrefix}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "deleted", Value: bson.D{{Key: "$in", Value: deletedValues()}}}},
			bson.D{{Key: "tid", Value: bson.D{{Key: "$in", Value: deletedTIDs}}}},
		}},
	}
}

// deletedValues are the encodings NodeBB uses for a set deleted flag.
func deletedValues() bson.A {
	return bson.A{1, true, "1"}
}

func topicKeys(tids []int64) bson.A {
	keys := make(bson.A, len(tids))
	for i, tid := range tids {
		keys[i] = topicKeyPrefix + strconv.FormatInt(tid, 10)
	}
	return keys
}

func decodeTopic(raw bson.M) domain.ForumTopic {
	return domain.ForumTopic{
		TID:        toInt64(raw["tid"]),
		Title:      toString(raw["title"]),
		Name:       toString(raw["name"]),
		Slug:       toString(raw["slug"]),
		CategoryID: toInt64(raw["cid"]),
		PostCount:  int(toInt64(raw["postcount"])),
		CreatedAt:  toInt64(raw["timestamp"]),
		LastPostAt: toInt64(raw["lastposttime"]),
		Deleted:    toBool(raw["deleted"]),
	}
}

func decodePost(raw bson.M) domain.ForumPost {
	return domain.ForumPost{
		PID:         toInt64(raw["pid"]),
		TopicID:     toInt64(raw["tid"]),
		AuthorID:    toInt64(raw["uid"]),
		Name:        toString(raw["name"]),
		ContentHTML: toString(raw["content"]),
		CreatedAt:   toInt64(raw["timestamp"]),
		EditedAt:    toInt64(raw["edited"]),
		Deleted:     toBool(raw["deleted"]),
	}
}

// toInt64 reads a numeric field stored as any BSON number or numeric string.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "1" || strings.EqualFold(b, "true")
	default:
		return toInt64(v) == 1
	}
}
