package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	result      *domain.SearchResult
	err         error
	lastQuery   domain.QueryRequest
	lastSuggest domain.AutocompleteRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.QueryRequest) (*domain.SearchResult, error) {
	m.lastQuery = req
	return m.result, m.err
}

func (m *mockSearchService) Autocomplete(_ context.Context, req domain.AutocompleteRequest) (*domain.SearchResult, error) {
	m.lastSuggest = req
	return m.result, m.err
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	status *driving.SyncStatus
	err    error
}

func (m *mockSyncOrchestrator) Run(_ context.Context) (*domain.SyncReport, error) {
	return nil, m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.err
}

// mockCheckpointService is a mock implementation of driving.CheckpointService.
type mockCheckpointService struct {
	watermarks map[domain.Stream]time.Time
	err        error
}

func (m *mockCheckpointService) Current(_ context.Context, stream domain.Stream) (time.Time, error) {
	if m.err != nil {
		return time.Time{}, m.err
	}
	if wm, ok := m.watermarks[stream]; ok {
		return wm, nil
	}
	return domain.DefaultEpoch, nil
}

func (m *mockCheckpointService) Set(_ context.Context, stream domain.Stream, wm time.Time) error {
	if m.watermarks == nil {
		m.watermarks = make(map[domain.Stream]time.Time)
	}
	m.watermarks[stream] = wm
	return m.err
}

func (m *mockCheckpointService) Reset(ctx context.Context, stream domain.Stream) error {
	return m.Set(ctx, stream, domain.DefaultEpoch)
}
