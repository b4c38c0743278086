package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncConfig tunes a SyncOrchestrator.
type SyncConfig struct {
	// IndexPrefix is prepended to every index name.
	IndexPrefix string

	// BatchSize is the number of documents per bulk request.
	BatchSize int

	// BatchesPerSecond paces bulk requests; zero means unlimited.
	BatchesPerSecond float64
}

// extractor reads changed records of one entity type.
type extractor interface {
	Extract(ctx context.Context, entity domain.EntityType, since time.Time) ([]domain.SourceRecord, error)
}

// entityOutcome is the result of syncing one entity type.
type entityOutcome struct {
	entity       domain.EntityType
	extracted    int
	skipped      int
	stats        IndexStats
	candidate    time.Time
	hasCandidate bool
	err          error
}

// SyncOrchestrator runs incremental sync passes.
//
// The relational and forum streams run concurrently, each gated by its
// own checkpoint. Within a stream every entity type is extracted and
// indexed concurrently, then the tombstone pass runs. A stream's
// checkpoint advances only when every one of its entity types was
// extracted and indexed without a fatal error.
type SyncOrchestrator struct {
	cfg         SyncConfig
	relational  driven.RelationalSource
	forum       driven.ForumSource
	cluster     driven.SearchCluster
	transformer *Transformer
	indexer     *BulkIndexer
	tombstones  *TombstoneScanner
	advancer    *CheckpointAdvancer

	// Status tracking
	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSyncOrchestrator creates a sync orchestrator.
// A nil relational or forum source disables that stream.
func NewSyncOrchestrator(
	cfg SyncConfig,
	checkpoints driven.CheckpointStore,
	cluster driven.SearchCluster,
	relational driven.RelationalSource,
	forum driven.ForumSource,
	normalisers ...driven.Normaliser,
) *SyncOrchestrator {
	indexer := NewBulkIndexer(cluster, cfg.BatchSize, cfg.BatchesPerSecond)
	return &SyncOrchestrator{
		cfg:         cfg,
		relational:  relational,
		forum:       forum,
		cluster:     cluster,
		transformer: NewTransformer(cfg.IndexPrefix, normalisers...),
		indexer:     indexer,
		tombstones:  NewTombstoneScanner(relational, forum, indexer, cfg.IndexPrefix),
		advancer:    NewCheckpointAdvancer(checkpoints),
	}
}

// Run performs one sync pass.
// It returns domain.ErrSyncFailed, with the report, when no stream completed.
func (o *SyncOrchestrator) Run(ctx context.Context) (*domain.SyncReport, error) {
	runID := uuid.NewString()
	if err := o.begin(runID); err != nil {
		return nil, err
	}

	report := &domain.SyncReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Streams:   make(map[domain.Stream]domain.StreamReport),
	}

	logger.Section("Sync " + runID)
	o.ensureIndices(ctx)

	var mu sync.Mutex
	record := func(stream domain.Stream, sr domain.StreamReport) {
		mu.Lock()
		defer mu.Unlock()
		report.Streams[stream] = sr
	}

	g, gctx := errgroup.WithContext(ctx)
	if o.relational != nil {
		ex := NewRelationalExtractor(o.relational)
		g.Go(func() error {
			record(domain.StreamRelational, o.syncStream(gctx, runID, domain.StreamRelational, ex, domain.RelationalEntities()))
			return nil
		})
	}
	if o.forum != nil {
		ex := NewForumExtractor(o.forum)
		g.Go(func() error {
			record(domain.StreamForum, o.syncStream(gctx, runID, domain.StreamForum, ex, domain.ForumEntities()))
			return nil
		})
	}
	_ = g.Wait()

	report.EndedAt = time.Now()

	var err error
	if !report.Succeeded() {
		err = fmt.Errorf("%w: run %s: %w", domain.ErrSyncFailed, runID, reportErrors(report))
		logger.Error("Sync %s failed: no stream completed", runID)
	} else {
		logger.Info("Sync %s complete in %s", runID, report.Duration())
	}
	o.finish(report, err)
	return report, err
}

// Status returns the current sync state.
func (o *SyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status := o.status
	return &status, nil
}

func (o *SyncOrchestrator) begin(runID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Running {
		return domain.ErrSyncInProgress
	}
	o.status = driving.SyncStatus{Running: true, RunID: runID}
	return nil
}

func (o *SyncOrchestrator) finish(report *domain.SyncReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.Running = false
	o.status.DocumentsProcessed = 0
	o.status.ErrorCount = 0
	for _, sr := range report.Streams {
		o.status.DocumentsProcessed += sr.Indexed + sr.Deleted
		o.status.ErrorCount += sr.IndexFailed + len(sr.Failed)
	}
	if err != nil {
		o.status.LastError = err.Error()
	} else {
		o.status.LastError = ""
	}
}

// ensureIndices creates missing indices. Failures surface later as
// bulk errors for the affected categories.
func (o *SyncOrchestrator) ensureIndices(ctx context.Context) {
	for _, spec := range domain.CategorySpecs(o.cfg.IndexPrefix) {
		if err := o.cluster.EnsureIndex(ctx, spec); err != nil {
			logger.Warn("Ensure index %s: %v", spec.Index, err)
		}
	}
}

// syncStream runs one stream: extract, transform and index every entity
// type, apply tombstones, then advance the checkpoint if the pass was clean.
func (o *SyncOrchestrator) syncStream(
	ctx context.Context,
	runID string,
	stream domain.Stream,
	ex extractor,
	entities []domain.EntityType,
) domain.StreamReport {
	var sr domain.StreamReport

	current, err := o.advancer.Current(ctx, stream)
	if err != nil {
		logger.Error("[%s] %s stream skipped: %v", runID, stream, err)
		sr.Error = err.Error()
		return sr
	}
	sr.Watermark = current
	logger.Info("[%s] %s stream from %s", runID, stream, domain.FormatWatermark(current))

	outcomes := make([]entityOutcome, len(entities))
	var wg sync.WaitGroup
	for i, entity := range entities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = o.syncEntity(ctx, runID, ex, entity, current)
		}()
	}
	wg.Wait()

	clean := true
	candidate := current
	for _, out := range outcomes {
		sr.Extracted += out.extracted
		sr.Skipped += out.skipped
		sr.Indexed += out.stats.Succeeded
		sr.IndexFailed += out.stats.Failed
		if out.err != nil {
			clean = false
			sr.Failed = append(sr.Failed, out.entity)
			if sr.Error == "" {
				sr.Error = out.err.Error()
			}
			continue
		}
		if out.hasCandidate {
			candidate = domain.MaxTime(candidate, out.candidate)
		}
	}

	deleted, err := o.tombstones.Scan(ctx, stream)
	sr.Deleted = deleted.Succeeded
	if err != nil {
		logger.Warn("[%s] %s tombstone pass: %v", runID, stream, err)
	}

	wm, advanced, err := o.advancer.Advance(ctx, stream, current, candidate, clean)
	if err != nil {
		logger.Error("[%s] %v", runID, err)
		sr.Error = err.Error()
		clean = false
	}
	sr.Watermark = wm
	sr.Advanced = advanced
	sr.Completed = clean

	logger.Info("[%s] %s stream: extracted=%d indexed=%d failed=%d skipped=%d deleted=%d",
		runID, stream, sr.Extracted, sr.Indexed, sr.IndexFailed, sr.Skipped, sr.Deleted)
	return sr
}

// syncEntity extracts, transforms and indexes one entity type.
// The candidate watermark covers the records that were transformed.
func (o *SyncOrchestrator) syncEntity(
	ctx context.Context,
	runID string,
	ex extractor,
	entity domain.EntityType,
	since time.Time,
) entityOutcome {
	out := entityOutcome{entity: entity}

	records, err := ex.Extract(ctx, entity, since)
	if err != nil {
		logger.Error("[%s] %v", runID, err)
		out.err = err
		return out
	}
	out.extracted = len(records)

	docs := make([]domain.IndexDocument, 0, len(records))
	for _, rec := range records {
		doc, err := o.transformer.Transform(rec)
		if err != nil {
			logger.Warn("[%s] skipping %s %s: %v", runID, entity, rec.Key(), err)
			out.skipped++
			continue
		}
		docs = append(docs, doc)

		if ts, ok := rec.ChangedAt(); ok && (!out.hasCandidate || ts.After(out.candidate)) {
			out.candidate = ts
			out.hasCandidate = true
		}
	}

	if len(docs) == 0 {
		return out
	}

	stats, err := o.indexer.Upsert(ctx, docs)
	out.stats = stats
	if err != nil {
		logger.Error("[%s] index %s: %v", runID, entity, err)
		out.err = err
	}
	return out
}

// reportErrors collects the per-stream errors of a report.
func reportErrors(report *domain.SyncReport) error {
	var errs []error
	for _, stream := range domain.Streams() {
		sr, ok := report.Streams[stream]
		if ok && sr.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", stream, sr.Error))
		}
	}
	if len(errs) == 0 {
		return errors.New("no stream enabled")
	}
	return errors.Join(errs...)
}
