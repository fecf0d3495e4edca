package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/notesearch-mcp/internal/searcher"
	"github.com/dshills/notesearch-mcp/internal/storage"
)

// newTestServer wires an in-memory store to a lexical-only orchestrator
func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orch, err := searcher.New(searcher.Config{
		Lexical: searcher.LexicalFromStore(store),
	})
	require.NoError(t, err)

	srv, err := NewServer(store, orch)
	require.NoError(t, err)
	return srv
}

// toolRequest builds a CallToolRequest for direct handler invocation
func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the text payload of a tool result
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

// resultJSON unmarshals the text payload of a tool result
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestNewServerValidation(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	orch, err := searcher.New(searcher.Config{Lexical: searcher.LexicalFromStore(store)})
	require.NoError(t, err)

	_, err = NewServer(nil, orch)
	assert.Error(t, err)

	_, err = NewServer(store, nil)
	assert.Error(t, err)

	srv, err := NewServer(store, orch)
	require.NoError(t, err)
	assert.NotNil(t, srv.mcp)
}

func TestUpsertAndSearchNotes(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleUpsertNote(ctx, toolRequest("upsert_note", map[string]interface{}{
		"path":        "journal/2026-08.md",
		"line_number": float64(12),
		"title":       "Garden log",
		"content":     "Planted tomato seedlings along the south fence",
	}))
	require.NoError(t, err)

	upserted := resultJSON(t, result)
	assert.Equal(t, true, upserted["upserted"])
	assert.Equal(t, "journal/2026-08.md", upserted["path"])
	assert.NotZero(t, upserted["document_id"])

	result, err = srv.handleSearchNotes(ctx, toolRequest("search_notes", map[string]interface{}{
		"query": "tomato seedlings",
		"mode":  "fast",
	}))
	require.NoError(t, err)

	search := resultJSON(t, result)
	assert.Equal(t, "fast", search["mode"])
	results, ok := search["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)
	hit := results[0].(map[string]interface{})
	assert.Equal(t, "journal/2026-08.md", hit["path"])
	assert.Equal(t, float64(12), hit["line"])
}

func TestSearchNotesValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantCode int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank query", map[string]interface{}{"query": "   "}, ErrorCodeEmptyQuery},
		{"limit too large", map[string]interface{}{"query": "x", "limit": float64(500)}, ErrorCodeInvalidParams},
		{"limit too small", map[string]interface{}{"query": "x", "limit": float64(0)}, ErrorCodeInvalidParams},
		{"bad mode", map[string]interface{}{"query": "x", "mode": "turbo"}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.handleSearchNotes(ctx, toolRequest("search_notes", tt.args))
			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.wantCode, mcpErr.Code)
		})
	}
}

func TestSearchNotesModeDowngrade(t *testing.T) {
	srv := newTestServer(t)

	// Lexical-only wiring: a hybrid request downgrades to fast
	result, err := srv.handleSearchNotes(context.Background(), toolRequest("search_notes", map[string]interface{}{
		"query": "anything",
		"mode":  "hybrid",
	}))
	require.NoError(t, err)

	search := resultJSON(t, result)
	assert.Equal(t, "fast", search["mode"])
	assert.Equal(t, "hybrid", search["requested_mode"])
}

func TestUpsertNoteValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleUpsertNote(ctx, toolRequest("upsert_note", map[string]interface{}{
		"content": "no path",
	}))
	require.Error(t, err)

	_, err = srv.handleUpsertNote(ctx, toolRequest("upsert_note", map[string]interface{}{
		"path": "notes/a.md",
	}))
	require.Error(t, err)

	_, err = srv.handleUpsertNote(ctx, toolRequest("upsert_note", map[string]interface{}{
		"path":        "notes/a.md",
		"content":     "text",
		"line_number": float64(0),
	}))
	require.Error(t, err)
}

func TestDeleteNote(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleUpsertNote(ctx, toolRequest("upsert_note", map[string]interface{}{
		"path":    "notes/remove-me.md",
		"content": "ephemeral zanzibar content",
	}))
	require.NoError(t, err)

	result, err := srv.handleDeleteNote(ctx, toolRequest("delete_note", map[string]interface{}{
		"path": "notes/remove-me.md",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["deleted"])

	// Deleted content no longer matches
	search, err := srv.handleSearchNotes(ctx, toolRequest("search_notes", map[string]interface{}{
		"query": "zanzibar",
	}))
	require.NoError(t, err)
	results := resultJSON(t, search)["results"].([]interface{})
	assert.Empty(t, results)
}

func TestGetCapabilities(t *testing.T) {
	srv := newTestServer(t)

	result, err := srv.handleGetCapabilities(context.Background(), toolRequest("get_capabilities", nil))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, ServerName, payload["server"])

	caps := payload["capabilities"].(map[string]interface{})
	assert.Equal(t, true, caps["lexical"])
	assert.Equal(t, false, caps["vector"])
	assert.Equal(t, false, caps["reranking"])

	index := payload["index"].(map[string]interface{})
	assert.Contains(t, index, "documents_count")
	assert.Contains(t, index, "health")
}

func TestCacheStatsAndClear(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleGetCacheStats(ctx, toolRequest("get_cache_stats", nil))
	require.NoError(t, err)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stats))
	assert.Contains(t, stats, "embeddings")
	assert.Contains(t, stats, "expansions")
	assert.Contains(t, stats, "rerank_scores")

	result, err = srv.handleClearCaches(ctx, toolRequest("clear_caches", nil))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["cleared"])
}
