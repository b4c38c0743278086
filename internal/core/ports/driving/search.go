package driving

import (
	"context"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// SearchService answers federated queries across every category.
type SearchService interface {
	// Search runs a full-text query. Failing categories yield empty lists.
	Search(ctx context.Context, req domain.QueryRequest) (*domain.SearchResult, error)

	// Autocomplete returns per-category suggestions; Top is not set.
	Autocomplete(ctx context.Context, req domain.AutocompleteRequest) (*domain.SearchResult, error)
}
