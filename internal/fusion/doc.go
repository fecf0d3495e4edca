// Package fusion combines ranked result lists from independent retrieval
// backends into a single ordering using weighted Reciprocal Rank Fusion.
//
// The pipeline has three pieces:
//
//   - Score normalization converts heterogeneous raw backend scores (signed
//     BM25 relevance, cosine distance) into a comparable [0, 1] similarity
//     scale.
//   - The rank position policy maps a result's rank to retrieval/oracle
//     blend weights and a top-rank bonus multiplier.
//   - The engine folds any number of labeled sources into one list,
//     weighting each source (with an extra multiplier for the user's
//     literal query), rewarding cross-source agreement, and deduplicating
//     by source key.
//
// # Basic Usage
//
//	engine := fusion.NewEngine(fusion.DefaultOptions())
//
//	fused := engine.Fuse([]types.RetrievalSource{
//	    {Results: lexical, Weight: 0.5, SourceType: types.SourceLexical, IsOriginalQuery: true},
//	    {Results: vector, Weight: 0.5, SourceType: types.SourceVector, IsOriginalQuery: true},
//	})
//
// Fusion is a deterministic, pure function of its inputs: identical sources
// always produce identical output order. Output scores are additive RRF
// contributions, meaningful only for relative ordering.
//
// # Degenerate Inputs
//
// Normalization and fusion never fail. Empty sources produce empty output,
// all-tied lexical batches normalize to uniform 1.0 (rank order decides),
// and out-of-range vector scores are clamped.
package fusion
