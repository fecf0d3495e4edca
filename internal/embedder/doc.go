// Package embedder generates vector embeddings for note text using various providers.
//
// The embedder supports multiple embedding providers (Ollama, OpenAI, local
// fallback) and provides batching, retries, and error handling for
// production use.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	// Generate single embedding
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "ORB strategy decision locked",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// For efficiency when embedding many snippets, use batch processing:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//
// # Provider Selection
//
// The embedder selects a provider based on environment variables:
//
//  1. If NOTESEARCH_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else → use Ollama at NOTESEARCH_OLLAMA_URL (default localhost:11434)
//
// The local provider exists for offline test scenarios: it produces a
// deterministic hash-derived vector and never touches the network.
//
// # Error Handling
//
// Transient API failures are retried with exponential backoff:
//
//	emb, err := embedder.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API temporarily unavailable, retry later
//	}
//
// Query-embedding caching lives in the cache manager, not here; the
// embedder is a plain stateless client.
package embedder
