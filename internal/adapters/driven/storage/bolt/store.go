// Package bolt provides a bbolt-backed checkpoint store. It suits single
// host deployments that want a durable watermark file without SQLite.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// DBFile is the bolt file name inside the data directory.
const DBFile = "checkpoints.bolt"

var bucketCheckpoints = []byte("checkpoints")

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore persists stream watermarks in a bbolt database.
type CheckpointStore struct {
	db *bbolt.DB
}

type checkpointRecord struct {
	Watermark string `json:"watermark"`
	UpdatedAt string `json:"updated_at"`
}

// NewCheckpointStore opens (or creates) the bolt file in dataDir.
func NewCheckpointStore(dataDir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, DBFile), 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating checkpoints bucket: %w", err)
	}

	return &CheckpointStore{db: db}, nil
}

// Close releases the bolt file lock.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Get retrieves the watermark for a stream.
func (s *CheckpointStore) Get(ctx context.Context, stream domain.Stream) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	var rec checkpointRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCheckpoints).Get([]byte(stream))
		if data == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return time.Time{}, err
	}
	return domain.ParseWatermark(rec.Watermark)
}

// Set stores or replaces the watermark for a stream.
func (s *CheckpointStore) Set(ctx context.Context, stream domain.Stream, watermark time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(checkpointRecord{
		Watermark: domain.FormatWatermark(watermark),
		UpdatedAt: domain.FormatWatermark(time.Now()),
	})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Put([]byte(stream), data)
	})
}
