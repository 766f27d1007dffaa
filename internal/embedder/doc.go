// Package embedder generates vector embeddings for code snippets.
//
// Two real providers are supported, OpenAI and Ollama, plus a deterministic
// local provider for tests. All providers share batching, LRU caching by
// content hash, and retry with exponential backoff.
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
//	    Text: "exports.createProduct = async (req, res) => { ... }",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// Index runs embed snippets in batches of DefaultBatchSize:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{fn1.Snippet, fn2.Snippet, fn3.Snippet},
//	})
//
//	for i, embedding := range resp.Embeddings {
//	    // Store embedding for snippet i
//	}
//
// Batch order matches input order; the OpenAI path verifies the response
// count so a snippet can never be paired with another snippet's vector.
//
// # Provider Selection
//
// The factory selects a provider from the environment:
//
//  1. If JSCONTEXT_EMBEDDING_PROVIDER is set, use the named provider
//  2. Else if OPENAI_API_KEY is set, use OpenAI (text-embedding-3-small)
//  3. Else if OLLAMA_HOST is set, use Ollama (nomic-embed-text)
//  4. Else fail with ErrNoProviderEnabled
//
// There is no silent fallback: an index built from placeholder vectors would
// answer every query with noise, so a missing provider is an error. The
// local provider exists for tests and must be asked for by name.
//
// # Failure Handling
//
// Transient API failures (429, 5xx) retry up to MaxRetries with exponential
// backoff starting at InitialBackoffMs. Request errors (other 4xx) fail
// immediately. All failures surface wrapped in ErrProviderFailed; callers on
// the query path translate that into retrieval unavailability rather than an
// empty result.
package embedder
