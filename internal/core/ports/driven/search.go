package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// SearchCluster is the external search engine holding one index per category.
// Implementations must be safe for concurrent use.
type SearchCluster interface {
	// EnsureIndex creates the category's index with its mappings if it
	// does not exist.
	EnsureIndex(ctx context.Context, spec domain.CategorySpec) error

	// Bulk applies upserts and deletes. Per-item failures are reported in
	// the result; the error is reserved for whole-request failures.
	Bulk(ctx context.Context, actions []BulkAction) (BulkResult, error)

	// Search runs a query against one index.
	Search(ctx context.Context, req SearchRequest) ([]SearchHit, error)

	// MultiGet returns source documents by id. Missing ids are omitted.
	MultiGet(ctx context.Context, index string, ids []string) (map[string]json.RawMessage, error)

	// Suggest runs a completion-suggest query on one field.
	Suggest(ctx context.Context, req SuggestRequest) ([]SuggestOption, error)

	// Close releases resources.
	Close() error
}

// BulkOp is the kind of bulk action.
type BulkOp string

const (
	BulkUpsert BulkOp = "index"
	BulkDelete BulkOp = "delete"
)

// BulkAction is one bulk operation keyed by (Index, ID).
type BulkAction struct {
	Op    BulkOp
	Index string
	ID    string

	// Doc is the document body; nil for deletes.
	Doc map[string]any
}

// BulkResult reports the outcome of a bulk request.
type BulkResult struct {
	Succeeded int
	Failed    []BulkItemError
}

// BulkItemError describes one failed bulk item.
type BulkItemError struct {
	Index  string
	ID     string
	Status int
	Reason string

	// NotFound is set when a delete targeted an absent document.
	NotFound bool
}

// SearchRequest is a query against one index.
type SearchRequest struct {
	Index           string
	Query           domain.Query
	Size            int
	From            int
	HighlightFields []string
}

// SearchHit is one raw hit.
type SearchHit struct {
	ID        string
	Score     float64
	Source    json.RawMessage
	Highlight map[string][]string
}

// SuggestRequest is a completion query on one field.
type SuggestRequest struct {
	Index  string
	Field  string
	Prefix string
	Size   int
}

// SuggestOption is one completion.
type SuggestOption struct {
	ID    string
	Text  string
	Score float64
}
