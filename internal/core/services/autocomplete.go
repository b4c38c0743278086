package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// suggestion accumulates the completions of one document across fields.
type suggestion struct {
	id      string
	score   float64
	matches []domain.Match
}

// Autocomplete returns type-ahead suggestions per category.
//
// Each category issues one completion request per suggest field, merges
// the options by document id, then resolves the documents with a
// multi-get. Categories run concurrently; a failing category is empty.
func (s *SearchService) Autocomplete(
	ctx context.Context, req domain.AutocompleteRequest,
) (*domain.SearchResult, error) {
	logger.Section("Autocomplete")

	result := domain.NewSearchResult()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return &result, nil
	}
	size := req.Size
	if size <= 0 {
		size = s.cfg.SuggestSize
	}

	results := s.scatter(ctx, s.specs, func(ctx context.Context, spec domain.CategorySpec) ([]domain.Hit, error) {
		return s.suggestCategory(ctx, spec, text, size)
	})

	for i, spec := range s.specs {
		if results[i].err != nil {
			logger.Warn("Autocomplete %s failed, returning no results for it: %v", spec.Category, results[i].err)
			continue
		}
		result.ByCategory[spec.Category] = results[i].hits
	}
	logger.Info("Autocomplete %q: %d suggestions", text, result.Total())

	return &result, nil
}

func (s *SearchService) suggestCategory(
	ctx context.Context, spec domain.CategorySpec, text string, size int,
) ([]domain.Hit, error) {
	var order []string
	byID := make(map[string]*suggestion)

	for _, field := range spec.SuggestFields {
		options, err := s.cluster.Suggest(ctx, driven.SuggestRequest{
			Index:  spec.Index,
			Field:  domain.SuggestField(field),
			Prefix: text,
			Size:   size,
		})
		if err != nil {
			return nil, fmt.Errorf("suggest %s.%s: %w", spec.Index, field, err)
		}
		for _, opt := range options {
			sg, ok := byID[opt.ID]
			if !ok {
				sg = &suggestion{id: opt.ID}
				byID[opt.ID] = sg
				order = append(order, opt.ID)
			}
			if opt.Score > sg.score {
				sg.score = opt.Score
			}
			sg.matches = append(sg.matches, domain.Match{
				Field:   field,
				Content: domain.TruncateExcerpt(opt.Text, s.cfg.ExcerptLength),
			})
		}
	}
	if len(order) == 0 {
		return []domain.Hit{}, nil
	}

	sources, err := s.cluster.MultiGet(ctx, spec.Index, order)
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", spec.Index, err)
	}

	hits := make([]domain.Hit, 0, len(order))
	for _, id := range order {
		src, ok := sources[id]
		if !ok {
			logger.Debug("Suggested document %s/%s no longer exists", spec.Index, id)
			continue
		}
		sg := byID[id]
		name := displayName(spec.Category, src, hitFromSource(spec.Category, id, src).Name)
		hit := hitFromSource(spec.Category, id, s.shapeSource(spec, src, name))
		hit.Name = name
		hit.Score = sg.score
		hit.Matches = sg.matches
		hits = append(hits, hit)
	}
	return hits, nil
}

// shapeSource truncates the category's excerpt fields in a stored document
// and sets its name to the display name of the hit.
func (s *SearchService) shapeSource(spec domain.CategorySpec, src json.RawMessage, name string) json.RawMessage {
	var doc map[string]any
	if err := json.Unmarshal(src, &doc); err != nil {
		return src
	}
	if name != "" {
		doc["name"] = name
	}
	for _, field := range spec.ExcerptFields {
		if v, ok := doc[field].(string); ok {
			doc[field] = domain.TruncateExcerpt(v, s.cfg.ExcerptLength)
		}
	}
	shaped, err := json.Marshal(doc)
	if err != nil {
		return src
	}
	return shaped
}

// displayName applies the forum naming rules to a stored document.
func displayName(category domain.Category, src json.RawMessage, fallback string) string {
	var doc struct {
		Name       string `json:"name"`
		Title      string `json:"title"`
		PostName   string `json:"postName"`
		TopicTitle string `json:"topicTitle"`
		Content    string `json:"content"`
	}
	if err := json.Unmarshal(src, &doc); err != nil {
		return fallback
	}
	switch category {
	case domain.CategoryForumTopics:
		return domain.TopicDisplayName(doc.Title, doc.Name)
	case domain.CategoryForumPosts:
		if doc.Content == "" && doc.PostName == "" {
			return fallback
		}
		return domain.PostDisplayName(doc.PostName, doc.TopicTitle, doc.Content)
	default:
		return fallback
	}
}
