package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates missing or malformed configuration.
	// It is fatal at process start.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown entity type, stream or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidTimestamp indicates a raw timestamp that is neither
	// seconds nor milliseconds since the epoch.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// Sync Errors.

	// ErrSourceUnavailable indicates a source store could not be reached.
	// The affected extraction is skipped and the checkpoint is not advanced.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSyncFailed indicates a run in which no checkpoint-eligible work completed.
	ErrSyncFailed = errors.New("sync failed")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Search Errors.

	// ErrSearchUnavailable indicates the search cluster is not configured.
	ErrSearchUnavailable = errors.New("search cluster unavailable")

	// ErrIndexNotFound indicates the cluster has no index with the requested name.
	ErrIndexNotFound = errors.New("index not found")
)
