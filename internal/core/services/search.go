package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// QueryConfig tunes a SearchService. Zero values take the domain defaults.
type QueryConfig struct {
	IndexPrefix   string
	PerIndexLimit int
	TopN          int
	SuggestSize   int
	ExcerptLength int
}

// SearchService is the federated query and autocomplete engine.
type SearchService struct {
	cluster driven.SearchCluster
	specs   []domain.CategorySpec
	cfg     QueryConfig
}

// NewSearchService creates a search service over a cluster.
func NewSearchService(cluster driven.SearchCluster, cfg QueryConfig) *SearchService {
	if cfg.PerIndexLimit <= 0 {
		cfg.PerIndexLimit = domain.DefaultPerIndexLimit
	}
	if cfg.TopN <= 0 {
		cfg.TopN = domain.DefaultTopN
	}
	if cfg.SuggestSize <= 0 {
		cfg.SuggestSize = domain.DefaultSuggestSize
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = domain.DefaultExcerptLength
	}
	return &SearchService{
		cluster: cluster,
		specs:   domain.CategorySpecs(cfg.IndexPrefix),
		cfg:     cfg,
	}
}

// categoryResult is one category's contribution to a federated request.
type categoryResult struct {
	hits []domain.Hit
	err  error
}

// Search queries every requested category concurrently and merges the
// results. A failing category contributes an empty list; only an invalid
// mode or category is returned as an error.
func (s *SearchService) Search(ctx context.Context, req domain.QueryRequest) (*domain.SearchResult, error) {
	logger.Section("Search Execution")

	mode, err := domain.ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	specs, err := s.specsFor(req.Categories)
	if err != nil {
		return nil, err
	}

	result := domain.NewSearchResult()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		logger.Debug("Empty query, returning no results")
		result.Top = []domain.Hit{}
		return &result, nil
	}

	size := req.PerIndexLimit
	if size <= 0 {
		size = s.cfg.PerIndexLimit
	}
	if req.Page > 0 && req.PageSize > 0 && req.Page*req.PageSize > size {
		size = req.Page * req.PageSize
	}
	logger.Debug("Query: %q, mode=%s, per-index=%d", text, mode, size)

	results := s.scatter(ctx, specs, func(ctx context.Context, spec domain.CategorySpec) ([]domain.Hit, error) {
		return s.searchCategory(ctx, spec, mode, text, size)
	})

	for i, spec := range specs {
		if results[i].err != nil {
			logger.Warn("Category %s failed, returning no results for it: %v", spec.Category, results[i].err)
			continue
		}
		result.ByCategory[spec.Category] = results[i].hits
	}

	topN := req.TopN
	if topN <= 0 {
		topN = s.cfg.TopN
	}
	result.Top = domain.WindowTop(domain.MergeTop(result.ByCategory), req.Page, req.PageSize, topN)
	logger.Info("Search %q: %d hits across categories, %d in top", text, result.Total(), len(result.Top))

	return &result, nil
}

// specsFor resolves the categories of a request. No categories means all.
func (s *SearchService) specsFor(categories []domain.Category) ([]domain.CategorySpec, error) {
	if len(categories) == 0 {
		return s.specs, nil
	}
	seen := make(map[domain.Category]bool, len(categories))
	specs := make([]domain.CategorySpec, 0, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		spec, ok := domain.LookupCategorySpec(s.cfg.IndexPrefix, c)
		if !ok {
			return nil, fmt.Errorf("%w: category %q", domain.ErrUnsupportedType, c)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// scatter runs fn once per spec concurrently and waits for all of them.
// Results are indexed like specs. A panic or error in one category does
// not affect the others.
func (s *SearchService) scatter(
	ctx context.Context,
	specs []domain.CategorySpec,
	fn func(context.Context, domain.CategorySpec) ([]domain.Hit, error),
) []categoryResult {
	results := make([]categoryResult, len(specs))

	var wg sync.WaitGroup
	wg.Add(len(specs))
	for i, spec := range specs {
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = categoryResult{err: fmt.Errorf("category %s panicked: %v", spec.Category, r)}
				}
			}()
			hits, err := fn(ctx, spec)
			results[i] = categoryResult{hits: hits, err: err}
		}()
	}
	wg.Wait()

	return results
}

func (s *SearchService) searchCategory(
	ctx context.Context, spec domain.CategorySpec, mode domain.Mode, text string, size int,
) ([]domain.Hit, error) {
	raw, err := s.cluster.Search(ctx, driven.SearchRequest{
		Index:           spec.Index,
		Query:           domain.BuildQuery(mode, spec, text),
		Size:            size,
		HighlightFields: spec.TextFields(),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", spec.Index, err)
	}

	hits := make([]domain.Hit, 0, len(raw))
	for _, h := range raw {
		hit := hitFromSource(spec.Category, h.ID, h.Source)
		hit.Score = h.Score
		hit.Matches = highlightMatches(spec, h.Highlight)
		hits = append(hits, hit)
	}
	return hits, nil
}

// indexedSource is the subset of an index document read back for display.
type indexedSource struct {
	UID       string  `json:"uid"`
	Name      string  `json:"name"`
	Image     *string `json:"image"`
	Kind      string  `json:"kind"`
	IsComment *bool   `json:"isComment"`
}

// hitFromSource builds a hit from a stored document. Undecodable sources
// still yield a hit keyed by id.
func hitFromSource(category domain.Category, id string, source json.RawMessage) domain.Hit {
	hit := domain.Hit{
		UID:      id,
		Category: category,
		Source:   source,
	}
	var doc indexedSource
	if err := json.Unmarshal(source, &doc); err != nil {
		logger.Debug("Undecodable source for %s/%s: %v", category, id, err)
		return hit
	}
	if doc.UID != "" {
		hit.UID = doc.UID
	}
	hit.Name = doc.Name
	if doc.Image != nil {
		hit.Image = *doc.Image
	}
	hit.Kind = doc.Kind
	hit.IsComment = doc.IsComment
	return hit
}

// highlightMatches orders highlight fragments by the category's field order.
func highlightMatches(spec domain.CategorySpec, highlight map[string][]string) []domain.Match {
	if len(highlight) == 0 {
		return nil
	}
	var matches []domain.Match
	for _, field := range spec.TextFields() {
		fragments := highlight[field]
		if len(fragments) == 0 {
			continue
		}
		matches = append(matches, domain.Match{
			Field:   field,
			Content: strings.Join(fragments, " ... "),
		})
	}
	return matches
}
