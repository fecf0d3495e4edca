package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchNotesTool returns the tool definition for search_notes
func searchNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_notes",
		Description: "Search the notes index with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: fast (keyword only), semantic (vector only), hybrid (both, fused), or advanced (hybrid plus query expansion and LLM re-ranking)",
					"enum":        []string{"fast", "semantic", "hybrid", "advanced"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// upsertNoteTool returns the tool definition for upsert_note
func upsertNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upsert_note",
		Description: "Add or update a note section in the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Note path relative to the notes root (e.g. 'journal/2026-08.md')",
				},
				"line_number": map[string]interface{}{
					"type":        "integer",
					"description": "1-based line where the section starts",
					"default":     1,
					"minimum":     1,
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Optional section or document title",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Section text to index",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

// deleteNoteTool returns the tool definition for delete_note
func deleteNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_note",
		Description: "Remove a note path and all its indexed sections from the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Note path whose sections should be removed",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getCapabilitiesTool returns the tool definition for get_capabilities
func getCapabilitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_capabilities",
		Description: "Report which search features are available with the current wiring (lexical, vector, expansion, re-ranking) plus index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getCacheStatsTool returns the tool definition for get_cache_stats
func getCacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_cache_stats",
		Description: "Report hit/miss statistics for the embedding, expansion, and re-ranking caches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearCachesTool returns the tool definition for clear_caches
func clearCachesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_caches",
		Description: "Clear all search caches (embedding, expansion, re-ranking scores)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
