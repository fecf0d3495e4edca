// Package rerank re-orders fused search results using an external LLM
// relevance oracle.
//
// The oracle is an Ollama-style HTTP endpoint: availability is probed once
// per client lifetime against the model-listing endpoint (short timeout,
// resolved state cached until ResetAvailability), and each candidate
// document is scored with a single generate call asking for a 0-10 rating.
//
// # Graceful Degradation
//
// Search must never fail or block because the oracle is down. When the
// probe fails, results pass through in input order with their retrieval
// scores intact. When a single scoring call errors, times out, or returns
// an unparseable reply, that document falls back to the neutral score 0.5.
//
// # Scoring and Blending
//
// Only the first TopK results are candidates for reordering; the remainder
// passes through unchanged. Candidates are scored in batches (concurrent
// within a batch, batches sequential, bounding in-flight oracle calls) and
// each oracle score is blended with the retrieval score using the rank
// position policy: top retrieval ranks trust retrieval more, deeper ranks
// lean on the oracle.
//
//	reranker := rerank.New(client, caches, rerank.DefaultOptions())
//	reranked := reranker.Rerank(ctx, query, fused)
//
// RerankWithProgress additionally reports (completed, total) after each
// scored document, in completion order.
package rerank
