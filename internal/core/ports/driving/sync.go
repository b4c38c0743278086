package driving

import (
	"context"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// SyncOrchestrator runs incremental index synchronisation.
type SyncOrchestrator interface {
	// Run performs one sync pass over every enabled stream.
	// It returns domain.ErrSyncFailed when no stream completed.
	Run(ctx context.Context) (*domain.SyncReport, error)

	// Status returns the current sync state.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of the sync orchestrator.
type SyncStatus struct {
	// Running indicates if a sync is currently in progress.
	Running bool

	// RunID identifies the current or last run.
	RunID string

	// DocumentsProcessed is the count of documents indexed or deleted by the last run.
	DocumentsProcessed int

	// ErrorCount is the number of errors encountered by the last run.
	ErrorCount int

	// LastError is the last run's error, if any.
	LastError string
}
