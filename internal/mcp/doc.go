// Package mcp implements the Model Context Protocol (MCP) server surface
// for the note search pipeline.
//
// The server exposes six tools to MCP clients:
//   - search_notes: Search indexed notes (fast, semantic, hybrid, advanced)
//   - upsert_note: Add or update a note section in the index
//   - delete_note: Remove a note path and all its sections
//   - get_capabilities: Report available search features and index stats
//   - get_cache_stats: Report embedding/expansion/rerank cache counters
//   - clear_caches: Drop all cached search artifacts
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. Tool failures are
// reported as MCPError values carrying a protocol error code; the
// mark3labs/mcp-go framework handles encoding.
package mcp
