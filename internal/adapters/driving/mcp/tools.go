package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Text     string `json:"text" jsonschema:"the free text to search for"`
	Mode     string `json:"mode,omitempty" jsonschema:"loose (default) for recall or strict for precision"`
	Page     int    `json:"page,omitempty" jsonschema:"1-based page of the merged ranking"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"results per page of the merged ranking"`

	Categories []string `json:"categories,omitempty" jsonschema:"restrict to these categories: events, projects, teams, members, forumTopics, forumPosts"`
}

// AutocompleteInput is the input schema for the autocomplete tool.
type AutocompleteInput struct {
	Text string `json:"text" jsonschema:"the prefix typed so far"`
	Size int    `json:"size,omitempty" jsonschema:"maximum suggestions per field (default 5)"`
}

// HitOutput represents a single result.
type HitOutput struct {
	UID       string         `json:"uid"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Image     string         `json:"image,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	IsComment *bool          `json:"is_comment,omitempty"`
	Score     float64        `json:"score"`
	Matches   []domain.Match `json:"matches,omitempty"`
}

// SearchOutput is the output schema for the search and autocomplete tools.
type SearchOutput struct {
	ByCategory map[string][]HitOutput `json:"by_category"`
	Top        []HitOutput            `json:"top,omitempty"`
	Count      int                    `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search members, teams, projects, events and forum content",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "autocomplete",
		Description: "Suggest completions for a partially typed query",
	}, s.handleAutocomplete)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	mode, err := domain.ParseMode(input.Mode)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	categories, err := domain.ParseCategories(input.Categories)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	result, err := s.ports.Search.Search(ctx, domain.QueryRequest{
		Text:       input.Text,
		Mode:       mode,
		Page:       input.Page,
		PageSize:   input.PageSize,
		Categories: categories,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, toOutput(result), nil
}

// handleAutocomplete handles the autocomplete tool invocation.
func (s *Server) handleAutocomplete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AutocompleteInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	result, err := s.ports.Search.Autocomplete(ctx, domain.AutocompleteRequest{
		Text: input.Text,
		Size: input.Size,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, toOutput(result), nil
}

func toOutput(result *domain.SearchResult) SearchOutput {
	out := SearchOutput{ByCategory: make(map[string][]HitOutput)}
	if result == nil {
		return out
	}
	for _, c := range domain.Categories() {
		hits := result.ByCategory[c]
		converted := make([]HitOutput, len(hits))
		for i := range hits {
			converted[i] = toHitOutput(hits[i])
		}
		out.ByCategory[string(c)] = converted
		out.Count += len(hits)
	}
	if result.Top != nil {
		out.Top = make([]HitOutput, len(result.Top))
		for i := range result.Top {
			out.Top[i] = toHitOutput(result.Top[i])
		}
	}
	return out
}

func toHitOutput(h domain.Hit) HitOutput {
	return HitOutput{
		UID:       h.UID,
		Name:      h.Name,
		Category:  string(h.Category),
		Image:     h.Image,
		Kind:      h.Kind,
		IsComment: h.IsComment,
		Score:     h.Score,
		Matches:   h.Matches,
	}
}
