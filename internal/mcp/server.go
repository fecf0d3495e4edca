package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/notesearch-mcp/internal/searcher"
	"github.com/dshills/notesearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "notesearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp          *server.MCPServer
	store        storage.Store
	orchestrator *searcher.Orchestrator
}

// NewServer creates an MCP server over an opened store and a wired
// search orchestrator
func NewServer(store storage.Store, orchestrator *searcher.Orchestrator) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	s := &Server{
		mcp:          server.NewMCPServer(ServerName, ServerVersion),
		store:        store,
		orchestrator: orchestrator,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	defer s.orchestrator.Caches().Dispose()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchNotesTool(), s.handleSearchNotes)
	s.mcp.AddTool(upsertNoteTool(), s.handleUpsertNote)
	s.mcp.AddTool(deleteNoteTool(), s.handleDeleteNote)
	s.mcp.AddTool(getCapabilitiesTool(), s.handleGetCapabilities)
	s.mcp.AddTool(getCacheStatsTool(), s.handleGetCacheStats)
	s.mcp.AddTool(clearCachesTool(), s.handleClearCaches)
}
