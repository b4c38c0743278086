package domain

import (
	"fmt"
	"time"
)

// Stream identifies an independently checkpointed source stream.
type Stream string

const (
	// StreamRelational covers members, teams, projects and events.
	StreamRelational Stream = "relational"
	// StreamForum covers forum topics and posts.
	StreamForum Stream = "forum"
)

// Streams returns every stream in a fixed order.
func Streams() []Stream {
	return []Stream{StreamRelational, StreamForum}
}

// ParseStream validates a stream name.
func ParseStream(s string) (Stream, error) {
	switch Stream(s) {
	case StreamRelational, StreamForum:
		return Stream(s), nil
	default:
		return "", fmt.Errorf("%w: stream %q", ErrUnsupportedType, s)
	}
}

// DefaultEpoch is the watermark used when a stream has never been synced.
// It is far enough in the past to force a full backfill.
var DefaultEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Checkpoint is the last successfully synchronised instant for a stream.
// Watermarks never decrease.
type Checkpoint struct {
	// Stream is the source stream.
	Stream Stream

	// Watermark is the boundary; rows changed strictly after it are pending.
	Watermark time.Time
}

// FormatWatermark renders a watermark in its stored ISO-8601 form.
func FormatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseWatermark parses a stored ISO-8601 watermark.
func ParseWatermark(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: watermark %q", ErrInvalidInput, s)
	}
	return t.UTC(), nil
}
