package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
)

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	result      *domain.SearchResult
	err         error
	lastQuery   domain.QueryRequest
	lastSuggest domain.AutocompleteRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.QueryRequest) (*domain.SearchResult, error) {
	m.lastQuery = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockSearchService) Autocomplete(_ context.Context, req domain.AutocompleteRequest) (*domain.SearchResult, error) {
	m.lastSuggest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu     sync.Mutex
	report *domain.SyncReport
	err    error
	runs   int
	ran    chan struct{}
}

func (m *mockSyncOrchestrator) Run(_ context.Context) (*domain.SyncReport, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	if m.ran != nil {
		select {
		case m.ran <- struct{}{}:
		default:
		}
	}
	return m.report, m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{}, nil
}

// mockCheckpointService implements driving.CheckpointService for testing.
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
	if m.err != nil {
		return m.err
	}
	if m.watermarks == nil {
		m.watermarks = make(map[domain.Stream]time.Time)
	}
	m.watermarks[stream] = wm
	return nil
}

func (m *mockCheckpointService) Reset(ctx context.Context, stream domain.Stream) error {
	return m.Set(ctx, stream, domain.DefaultEpoch)
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search      *mockSearchService
	sync        *mockSyncOrchestrator
	checkpoints *mockCheckpointService
}

// setupTestServices installs mock services, disables config loading and
// resets flag state. The returned function restores the previous state.
func setupTestServices() (*testServices, func()) {
	oldLoad := loadServices
	oldSearch, oldSync, oldCheckpoints, oldScheduler := searchService, syncOrchestrator, checkpointService, schedulerStore
	oldCfg := cfg

	ts := &testServices{
		search:      &mockSearchService{result: sampleResult()},
		sync:        &mockSyncOrchestrator{report: sampleReport()},
		checkpoints: &mockCheckpointService{},
	}
	loadServices = func(*cobra.Command) error { return nil }
	searchService = ts.search
	syncOrchestrator = ts.sync
	checkpointService = ts.checkpoints
	schedulerStore = memory.NewSchedulerStore()
	cfg = nil
	resetFlags()

	return ts, func() {
		loadServices = oldLoad
		searchService, syncOrchestrator, checkpointService, schedulerStore = oldSearch, oldSync, oldCheckpoints, oldScheduler
		cfg = oldCfg
		resetFlags()
	}
}

func resetFlags() {
	configPath = file.DefaultPath
	verbose = false
	syncJSON = false
	searchMode = string(domain.ModeLoose)
	searchPage, searchPageSize = 0, 0
	searchNormalize, searchJSON = false, false
	searchCategory = ""
	autocompleteSize, autocompleteJSON = domain.DefaultSuggestSize, false
	daemonWatch = true
	configInitForce = false
}

// execute runs the root command with args and returns its output.
func execute(ctx context.Context, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func sampleResult() *domain.SearchResult {
	res := domain.NewSearchResult()
	res.ByCategory[domain.CategoryProjects] = []domain.Hit{
		{UID: "p1", Name: "IPFS", Category: domain.CategoryProjects, Score: 8,
			Matches: []domain.Match{{Field: "description", Content: "the <em>IPFS</em>\n  project"}}},
	}
	res.ByCategory[domain.CategoryMembers] = []domain.Hit{
		{UID: "m1", Name: "Ada", Category: domain.CategoryMembers, Score: 2},
	}
	res.Top = domain.MergeTop(res.ByCategory)
	return &res
}

func sampleReport() *domain.SyncReport {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.SyncReport{
		RunID:     "run-1",
		StartedAt: start,
		EndedAt:   start.Add(1500 * time.Millisecond),
		Streams: map[domain.Stream]domain.StreamReport{
			domain.StreamRelational: {
				Extracted: 12,
				Skipped:   1,
				Indexed:   10,
				Deleted:   2,
				Completed: true,
				Watermark: start,
				Advanced:  true,
			},
		},
	}
}
