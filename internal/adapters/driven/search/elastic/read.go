package elastic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

type mgetResponse struct {
	Docs []struct {
		ID     string          `json:"_id"`
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	} `json:"docs"`
}

type suggestResponse struct {
	Suggest map[string][]struct {
		Options []struct {
			ID    string  `json:"_id"`
			Text  string  `json:"text"`
			Score float64 `json:"_score"`
		} `json:"options"`
	} `json:"suggest"`
}

// Search runs a query against one index.
func (c *Cluster) Search(ctx context.Context, req driven.SearchRequest) ([]driven.SearchHit, error) {
	query, err := renderQuery(req.Query)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(req.Index),
		c.client.Search.WithBody(esutil.NewJSONReader(searchBody(query, req.Size, req.From, req.HighlightFields))),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Index, err)
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		return nil, err
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("error parsing the response body: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		hits = append(hits, driven.SearchHit{
			ID:        h.ID,
			Score:     h.Score,
			Source:    h.Source,
			Highlight: h.Highlight,
		})
	}
	return hits, nil
}

// MultiGet returns source documents by id. Missing ids are omitted.
func (c *Cluster) MultiGet(ctx context.Context, index string, ids []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	res, err := c.client.Mget(
		esutil.NewJSONReader(map[string]any{"ids": ids}),
		c.client.Mget.WithContext(ctx),
		c.client.Mget.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", index, err)
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		return nil, err
	}

	var r mgetResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("error parsing the response body: %w", err)
	}
	for _, d := range r.Docs {
		if d.Found {
			out[d.ID] = d.Source
		}
	}
	return out, nil
}

// Suggest runs a completion-suggest query on one field.
func (c *Cluster) Suggest(ctx context.Context, req driven.SuggestRequest) ([]driven.SuggestOption, error) {
	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(req.Index),
		c.client.Search.WithBody(esutil.NewJSONReader(suggestBody(req.Field, req.Prefix, req.Size))),
	)
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", req.Index, err)
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		return nil, err
	}

	var r suggestResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("error parsing the response body: %w", err)
	}

	var options []driven.SuggestOption
	for _, entry := range r.Suggest[suggestName] {
		for _, o := range entry.Options {
			options = append(options, driven.SuggestOption{ID: o.ID, Text: o.Text, Score: o.Score})
		}
	}
	return options, nil
}
