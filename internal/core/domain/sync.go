package domain

import "time"

// SyncReport summarises one sync run.
type SyncReport struct {
	RunID     string                  `json:"runId"`
	StartedAt time.Time               `json:"startedAt"`
	EndedAt   time.Time               `json:"endedAt"`
	Streams   map[Stream]StreamReport `json:"streams"`
}

// Duration returns how long the run took.
func (r SyncReport) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Succeeded reports whether any stream completed checkpoint-eligible work.
func (r SyncReport) Succeeded() bool {
	for _, s := range r.Streams {
		if s.Completed {
			return true
		}
	}
	return false
}

// StreamReport summarises one stream within a sync run.
type StreamReport struct {
	// Extracted is the number of changed records read.
	Extracted int `json:"extracted"`

	// Skipped is the number of records dropped by transformation.
	Skipped int `json:"skipped"`

	// Indexed is the number of documents the cluster accepted.
	Indexed int `json:"indexed"`

	// IndexFailed is the number of documents the cluster rejected.
	IndexFailed int `json:"indexFailed"`

	// Deleted is the number of tombstones applied, including already absent ones.
	Deleted int `json:"deleted"`

	// Failed lists entity types whose extraction failed.
	Failed []EntityType `json:"failed,omitempty"`

	// Completed is true when every entity type of the stream was extracted
	// and indexed.
	Completed bool `json:"completed"`

	// Watermark is the stream's checkpoint after the run.
	Watermark time.Time `json:"watermark"`

	// Advanced is true when the run moved the checkpoint forward.
	Advanced bool `json:"advanced"`

	// Error is the first fatal error for the stream, if any.
	Error string `json:"error,omitempty"`
}

