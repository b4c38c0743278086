// Package mcp provides an MCP (Model Context Protocol) server adapter for hubsearch.
// It exposes federated search and autocomplete as tools and the sync state as resources.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
