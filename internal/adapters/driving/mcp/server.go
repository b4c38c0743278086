package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	// HealthPath serves the sync health report over HTTP.
	HealthPath = "/healthz"

	shutdownTimeout = 5 * time.Second
)

// Server exposes the federated search engine as MCP tools and the sync
// state as resources.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "hubsearch", Version: Version},
			&mcp.ServerOptions{Instructions: instructions()},
		),
	}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells clients which categories exist and how the modes differ.
func instructions() string {
	names := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		names = append(names, string(c))
	}
	return fmt.Sprintf(
		"Searches the hub directory and forum. Results are grouped by category (%s) "+
			"and merged into one ranking by raw score. Use mode \"strict\" when every "+
			"word must match, for example an exact project or member name; the default "+
			"\"loose\" mode tolerates typos and partial words. Pass categories to narrow "+
			"a search. Use autocomplete for short prefixes.",
		strings.Join(names, ", "),
	)
}

// Run serves MCP over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP handler: streamable MCP at the root and the
// health report at HealthPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP serves Handler on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// healthReport is the body served at HealthPath.
type healthReport struct {
	Status      string            `json:"status"`
	Sync        *syncStatusOutput `json:"sync,omitempty"`
	Checkpoints map[string]string `json:"checkpoints,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
}

// handleHealth reports "ok" unless the last sync recorded errors or a port
// could not be read, in which case it reports "degraded" with status 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := healthReport{Status: "ok"}

	if s.ports.Sync != nil {
		st, err := s.ports.Sync.Status(ctx)
		switch {
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("sync status: %v", err))
		case st != nil:
			out := toSyncStatusOutput(st)
			report.Sync = &out
			if st.LastError != "" {
				report.Errors = append(report.Errors, "last sync: "+st.LastError)
			}
		}
	}

	if s.ports.Checkpoints != nil {
		report.Checkpoints = make(map[string]string, len(domain.Streams()))
		for _, stream := range domain.Streams() {
			wm, err := s.ports.Checkpoints.Current(ctx, stream)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("checkpoint %s: %v", stream, err))
				continue
			}
			report.Checkpoints[string(stream)] = domain.FormatWatermark(wm)
		}
	}

	status := http.StatusOK
	if len(report.Errors) > 0 {
		report.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Debug("Writing health report: %v", err)
	}
}
