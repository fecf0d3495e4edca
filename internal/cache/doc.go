// Package cache provides a bounded LRU cache with per-entry TTL, used to
// memoize the expensive sub-steps of the search pipeline.
//
// The generic Cache is specialized three ways by the Manager, each keyed
// independently so clearing or evicting one never touches another:
//
//   - query embeddings (vector per model+query)
//   - query expansions (expansion strings per method+query)
//   - reranker relevance scores (one float per query+document, sized 2x
//     because per-document-per-query entries proliferate faster)
//
// # Semantics
//
// TTL is an absolute lifetime from insertion, not a sliding window. Expiry
// is checked lazily on lookup (an expired entry is deleted and counts as a
// miss) and swept eagerly by Cleanup, which the Manager runs every five
// minutes while enabled. Capacity overflow evicts the least-recently-used
// entry. Disabling a cache is destructive: it clears all entries and halts
// periodic cleanup until re-enabled.
//
// # Usage
//
//	mgr := cache.NewManager(cache.DefaultManagerOptions())
//	defer mgr.Dispose()
//
//	if vec, ok := mgr.GetEmbedding("nomic-embed-text", query); ok {
//	    return vec, nil
//	}
//
// Keys are stable across process runs: a sha256 prefix over the namespaced
// parts, so identical inputs always map to the same entry.
package cache
