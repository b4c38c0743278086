package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driving"
)

const (
	// URIScheme is the custom URI scheme for hubsearch resources.
	uriScheme = "hubsearch://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "Searchable categories and their indices",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sync/status",
		Name:        "sync-status",
		Description: "State of the last or running index sync",
		MIMEType:    "application/json",
	}, s.handleSyncStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "checkpoints/{stream}",
		Name:        "checkpoint",
		Description: "Sync watermark of a source stream",
		MIMEType:    "application/json",
	}, s.handleCheckpointResource)
}

// handleCategoriesResource lists the categories with their fields.
func (s *Server) handleCategoriesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type categoryInfo struct {
		Category string   `json:"category"`
		Index    string   `json:"index"`
		Text     []string `json:"text_fields"`
		Keyword  []string `json:"keyword_fields,omitempty"`
		Suggest  []string `json:"suggest_fields"`
	}

	specs := domain.CategorySpecs(s.ports.IndexPrefix)
	infos := make([]categoryInfo, len(specs))
	for i, spec := range specs {
		infos[i] = categoryInfo{
			Category: string(spec.Category),
			Index:    spec.Index,
			Text:     spec.TextFields(),
			Keyword:  spec.KeywordOnlyFields(),
			Suggest:  spec.SuggestFields,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleSyncStatusResource returns the orchestrator status.
func (s *Server) handleSyncStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sync == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting sync status: %w", err)
	}
	if status == nil {
		return jsonResult(req.Params.URI, syncStatusOutput{})
	}
	return jsonResult(req.Params.URI, toSyncStatusOutput(status))
}

// syncStatusOutput is the wire form of driving.SyncStatus.
type syncStatusOutput struct {
	Running            bool   `json:"running"`
	RunID              string `json:"run_id,omitempty"`
	DocumentsProcessed int    `json:"documents_processed"`
	ErrorCount         int    `json:"error_count"`
	LastError          string `json:"last_error,omitempty"`
}

func toSyncStatusOutput(st *driving.SyncStatus) syncStatusOutput {
	return syncStatusOutput{
		Running:            st.Running,
		RunID:              st.RunID,
		DocumentsProcessed: st.DocumentsProcessed,
		ErrorCount:         st.ErrorCount,
		LastError:          st.LastError,
	}
}

// handleCheckpointResource returns one stream's watermark.
func (s *Server) handleCheckpointResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Checkpoints == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract stream from URI: hubsearch://checkpoints/{stream}
	stream, err := domain.ParseStream(extractStream(req.Params.URI))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	wm, err := s.ports.Checkpoints.Current(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	return jsonResult(req.Params.URI, map[string]string{
		"stream":    string(stream),
		"watermark": domain.FormatWatermark(wm),
	})
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractStream extracts the stream from a URI like hubsearch://checkpoints/{stream}.
func extractStream(uri string) string {
	const prefix = uriScheme + "checkpoints/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
