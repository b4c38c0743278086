package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// Search runs a query against one index.
func (c *Cluster) Search(ctx context.Context, req driven.SearchRequest) ([]driven.SearchHit, error) {
	idx, err := c.index(req.Index)
	if err != nil {
		return nil, err
	}
	q, err := translate(req.Query)
	if err != nil {
		return nil, err
	}

	sr := bleve.NewSearchRequestOptions(q, req.Size, req.From, false)
	sr.Fields = []string{sourceField}
	if len(req.HighlightFields) > 0 {
		sr.Highlight = bleve.NewHighlight()
		for _, f := range req.HighlightFields {
			sr.Highlight.AddField(f)
		}
	}

	serp, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve search error: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(serp.Hits))
	for _, h := range serp.Hits {
		hit := driven.SearchHit{
			ID:     h.ID,
			Score:  h.Score,
			Source: storedSource(h),
		}
		if len(h.Fragments) > 0 {
			hit.Highlight = h.Fragments
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// MultiGet returns source documents by id. Missing ids are omitted.
func (c *Cluster) MultiGet(ctx context.Context, index string, ids []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	idx, err := c.index(index)
	if err != nil {
		return nil, err
	}

	sr := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(ids), len(ids), 0, false)
	sr.Fields = []string{sourceField}
	serp, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve mget error: %w", err)
	}
	for _, h := range serp.Hits {
		if src := storedSource(h); src != nil {
			out[h.ID] = src
		}
	}
	return out, nil
}

// Suggest returns documents whose completion field has a value starting
// with the prefix. The option text is the first matching stored value.
func (c *Cluster) Suggest(ctx context.Context, req driven.SuggestRequest) ([]driven.SuggestOption, error) {
	idx, err := c.index(req.Index)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToLower(strings.TrimSpace(req.Prefix))
	if prefix == "" {
		return nil, nil
	}

	pq := bleve.NewPrefixQuery(prefix)
	pq.SetField(req.Field)
	sr := bleve.NewSearchRequestOptions(pq, req.Size, 0, false)
	sr.Fields = []string{req.Field}

	serp, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve suggest error: %w", err)
	}

	options := make([]driven.SuggestOption, 0, len(serp.Hits))
	for _, h := range serp.Hits {
		text, ok := matchingValue(h.Fields[req.Field], prefix)
		if !ok {
			continue
		}
		options = append(options, driven.SuggestOption{ID: h.ID, Text: text, Score: h.Score})
	}
	return options, nil
}

func storedSource(h *search.DocumentMatch) json.RawMessage {
	s, ok := h.Fields[sourceField].(string)
	if !ok {
		return nil
	}
	return json.RawMessage(s)
}

// matchingValue picks the first stored value with the given lowercase prefix.
func matchingValue(stored any, prefix string) (string, bool) {
	var values []string
	switch v := stored.(type) {
	case string:
		values = []string{v}
	case []interface{}:
		for _, e := range v {
			if s, ok := e.(string); ok {
				values = append(values, s)
			}
		}
	}
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), prefix) {
			return v, true
		}
	}
	return "", false
}
