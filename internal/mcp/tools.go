package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/notesearch-mcp/internal/searcher"
	"github.com/dshills/notesearch-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeNoBackends    = -32002 // No search backend is configured
	ErrorCodeNotFound      = -32003 // Referenced note does not exist
)

// handleSearchNotes handles the search_notes tool invocation
func (s *Server) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := searcher.SearchMode(getStringDefault(args, "mode", string(searcher.ModeHybrid)))
	switch mode {
	case searcher.ModeFast, searcher.ModeSemantic, searcher.ModeHybrid, searcher.ModeAdvanced:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   string(mode),
			"allowed": []string{"fast", "semantic", "hybrid", "advanced"},
		})
	}

	resp, err := s.orchestrator.Search(ctx, query, searcher.Options{Mode: mode, Limit: limit})
	if err != nil {
		if errors.Is(err, searcher.ErrNoBackends) {
			return nil, newMCPError(ErrorCodeNoBackends, "no search backend is configured", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"path":    r.FilePath,
			"line":    r.LineNumber,
			"preview": r.Preview,
			"score":   r.Score,
		}
		if r.Title != "" {
			entry["title"] = r.Title
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"query":          query,
		"mode":           string(resp.Mode),
		"requested_mode": string(resp.RequestedMode),
		"results":        results,
		"total_results":  resp.TotalResults,
		"reranked":       resp.Reranked,
		"duration_ms":    resp.Duration.Milliseconds(),
	}
	if len(resp.ExpandedQueries) > 0 {
		response["expanded_queries"] = resp.ExpandedQueries
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUpsertNote handles the upsert_note tool invocation
func (s *Server) handleUpsertNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	content, ok := args["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	lineNumber := getIntDefault(args, "line_number", 1)
	if lineNumber < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "line_number must be >= 1", map[string]interface{}{
			"param": "line_number",
			"value": lineNumber,
		})
	}

	title := getStringDefault(args, "title", "")

	doc := &storage.Document{
		Path:        path,
		LineNumber:  lineNumber,
		Title:       title,
		Content:     content,
		ContentHash: contentHash(content),
	}
	if err := s.store.UpsertDocument(ctx, doc); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "upsert failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"upserted":    true,
		"document_id": doc.ID,
		"path":        path,
		"line_number": lineNumber,
	})), nil
}

// handleDeleteNote handles the delete_note tool invocation
func (s *Server) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.store.DeleteDocumentsByPath(ctx, path); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"path":    path,
	})), nil
}

// handleGetCapabilities handles the get_capabilities tool invocation
func (s *Server) handleGetCapabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caps := s.orchestrator.Capabilities(ctx)

	response := map[string]interface{}{
		"server":  ServerName,
		"version": ServerVersion,
		"capabilities": map[string]interface{}{
			"lexical":       caps.Lexical,
			"vector":        caps.Vector,
			"expansion_prf": caps.ExpansionPRF,
			"expansion_llm": caps.ExpansionLLM,
			"reranking":     caps.Reranking,
		},
	}

	if stats, err := s.store.GetStats(ctx); err == nil {
		response["index"] = map[string]interface{}{
			"documents_count":  stats.DocumentsCount,
			"embeddings_count": stats.EmbeddingsCount,
			"database_size_mb": fmt.Sprintf("%.2f", stats.DatabaseSizeMB),
			"health": map[string]interface{}{
				"database_accessible":  stats.Health.DatabaseAccessible,
				"embeddings_available": stats.Health.EmbeddingsAvailable,
				"fts_index_built":      stats.Health.FTSIndexBuilt,
			},
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCacheStats handles the get_cache_stats tool invocation
func (s *Server) handleGetCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.orchestrator.Caches().GetStats()

	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode cache stats", nil)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// handleClearCaches handles the clear_caches tool invocation
func (s *Server) handleClearCaches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.orchestrator.Caches().Clear()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": true,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// contentHash fingerprints note content for change detection
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
