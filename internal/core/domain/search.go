package domain

import (
	"encoding/json"
	"sort"
)

// Defaults for query requests.
const (
	DefaultPerIndexLimit  = 20
	DefaultTopN           = 50
	DefaultSuggestSize    = 5
	DefaultScoreThreshold = 1.0
)

// QueryRequest is a federated full-text search request.
// Page and PageSize are 1-based and optional; zero means unset.
type QueryRequest struct {
	Text          string
	Mode          Mode
	PerIndexLimit int
	TopN          int
	Page          int
	PageSize      int

	// Categories restricts the search. Empty means every category.
	Categories []Category
}

// AutocompleteRequest is a type-ahead request.
type AutocompleteRequest struct {
	Text string
	Size int
}

// Match is one highlighted field of a hit.
type Match struct {
	Field   string `json:"field"`
	Content string `json:"content"`
}

// Hit is a single search or suggestion result.
type Hit struct {
	UID        string          `json:"uid"`
	Name       string          `json:"name"`
	Image      string          `json:"image,omitempty"`
	Category   Category        `json:"indexCategory"`
	Kind       string          `json:"kind,omitempty"`
	IsComment  *bool           `json:"isComment,omitempty"`
	Matches    []Match         `json:"matches,omitempty"`
	Score      float64         `json:"score"`
	Normalized float64         `json:"normalizedScore,omitempty"`
	Source     json.RawMessage `json:"source,omitempty"`
}

// SearchResult groups hits per category plus a globally ranked list.
// Top is nil for autocomplete results.
type SearchResult struct {
	ByCategory map[Category][]Hit `json:"byCategory"`
	Top        []Hit              `json:"top,omitempty"`
}

// NewSearchResult returns a result with an empty list for every category.
func NewSearchResult() SearchResult {
	byCategory := make(map[Category][]Hit, len(Categories()))
	for _, c := range Categories() {
		byCategory[c] = []Hit{}
	}
	return SearchResult{ByCategory: byCategory}
}

// Total returns the number of hits across categories.
func (r SearchResult) Total() int {
	n := 0
	for _, hits := range r.ByCategory {
		n += len(hits)
	}
	return n
}

// MergeTop flattens hits in category order and sorts them by score,
// descending. Ties keep category order then per-index order.
func MergeTop(byCategory map[Category][]Hit) []Hit {
	var all []Hit
	for _, c := range Categories() {
		all = append(all, byCategory[c]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	return all
}

// WindowTop windows a merged list. With page and pageSize set it returns
// that page; otherwise it truncates to topN.
func WindowTop(merged []Hit, page, pageSize, topN int) []Hit {
	if page > 0 && pageSize > 0 {
		start := (page - 1) * pageSize
		if start >= len(merged) {
			return []Hit{}
		}
		end := start + pageSize
		if end > len(merged) {
			end = len(merged)
		}
		return merged[start:end]
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(merged) > topN {
		return merged[:topN]
	}
	return merged
}

// NormalizeScores sets each hit's Normalized score to
// score / max(maxScore, threshold), clamped to [0, 1].
// The input slice is not modified.
func NormalizeScores(hits []Hit, threshold float64) []Hit {
	out := make([]Hit, len(hits))
	copy(out, hits)

	max := 0.0
	for _, h := range out {
		if h.Score > max {
			max = h.Score
		}
	}
	denom := max
	if threshold > denom {
		denom = threshold
	}
	for i := range out {
		if denom <= 0 {
			out[i].Normalized = 0
			continue
		}
		out[i].Normalized = clamp01(out[i].Score / denom)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
