// Package types provides shared type definitions for the NoteSearch MCP server.
//
// This package defines the domain types that flow through the search
// pipeline: retrieval results, labeled source batches for fusion, and
// reranked results.
//
// # Core Types
//
// SearchResult represents one matched location in the note corpus. Its
// SourceKey (conventionally "path:line") is the stable identity used for
// deduplication and cache correlation:
//
//	result := types.SearchResult{
//	    SourceKey:  "notes/journal.md:42",
//	    FilePath:   "notes/journal.md",
//	    LineNumber: 42,
//	    Preview:    "Decided to move the trading config to ...",
//	    Score:      -4.2,
//	}
//
// The meaning of Score depends on the pipeline stage. Retrieval backends
// return raw backend scores (signed BM25 relevance for lexical, similarity
// or cosine distance for vector); normalization rescales them into [0, 1];
// fusion overwrites them with additive RRF contributions that are only
// meaningful for relative ordering, not as absolute measures.
//
// RetrievalSource is one labeled batch of results to be fused. List order is
// the sole source of rank; Score is never consulted for rank:
//
//	src := types.RetrievalSource{
//	    Results:         results,
//	    Weight:          0.5,
//	    SourceType:      types.SourceLexical,
//	    IsOriginalQuery: true,
//	}
//
// RerankedResult extends SearchResult with the oracle score, the original
// retrieval rank, and the blended score used for the final ordering.
//
// # Validation
//
// SearchResult implements a Validate method to ensure data integrity before
// results enter the pipeline:
//
//	if err := result.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
