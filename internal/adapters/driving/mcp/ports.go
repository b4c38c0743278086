package mcp

import (
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers search and autocomplete tools.
	Search driving.SearchService

	// Sync reports sync status. Optional.
	Sync driving.SyncOrchestrator

	// Checkpoints reports stream watermarks. Optional.
	Checkpoints driving.CheckpointService

	// IndexPrefix is shown in the categories resource.
	IndexPrefix string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
