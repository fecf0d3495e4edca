// Package searcher orchestrates note search across lexical and vector
// backends, fusing results with weighted reciprocal rank fusion and
// optionally re-ranking them with a local LLM oracle.
//
// The orchestrator supports four search modes:
//   - Fast: lexical full-text search only
//   - Semantic: vector similarity search only
//   - Hybrid: both backends in parallel, fused (default)
//   - Advanced: hybrid plus query expansion and oracle re-ranking
//
// Modes degrade silently when a backend is missing: hybrid falls back
// to whichever backend is configured, and advanced skips expansion or
// re-ranking when the oracle is unreachable. Search fails only when no
// backend is configured at all.
//
// # Basic Usage
//
//	o, err := searcher.New(searcher.Config{
//	    Lexical:  searcher.LexicalFromStore(store),
//	    Vector:   searcher.VectorFromStore(store),
//	    Embedder: emb,
//	})
//	if err != nil {
//	    return err
//	}
//
//	resp, err := o.Search(ctx, "sourdough starter schedule", searcher.Options{
//	    Mode:  searcher.ModeHybrid,
//	    Limit: 10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%s:%d %.3f\n", r.FilePath, r.LineNumber, r.Score)
//	}
//
// Backends are plain functions, so any retrieval source can be wired
// in; LexicalFromStore and VectorFromStore adapt a storage.Store.
package searcher
