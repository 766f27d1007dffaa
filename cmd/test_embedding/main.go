package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
	"github.com/dkarlsven/jscontext-mcp/internal/graph"
	"github.com/dkarlsven/jscontext-mcp/internal/indexer"
	"github.com/dkarlsven/jscontext-mcp/internal/parser"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
)

// MockEmbedder provides a simple test embedder
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	vector := make([]float32, m.dimension)
	for i := range vector {
		vector[i] = 0.1 * float32(i)
	}
	return &embedder.Embedding{
		Vector:    vector,
		Dimension: m.dimension,
		Provider:  "mock",
		Model:     "mock-v1",
	}, nil
}

func (m *MockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return &embedder.BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   "mock",
		Model:      "mock-v1",
	}, nil
}

func (m *MockEmbedder) Dimension() int   { return m.dimension }
func (m *MockEmbedder) Provider() string { return "mock" }
func (m *MockEmbedder) Model() string    { return "mock-v1" }
func (m *MockEmbedder) Close() error     { return nil }

func main() {
	fmt.Println("Testing embedding integration...")

	// Create temp directory for test
	tmpDir, err := os.MkdirTemp("", "jscontext-test-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	// Create a simple test JavaScript file
	testFile := tmpDir + "/math.js"
	testCode := `function add(a, b) {
  return a + b;
}

function double(n) {
  return add(n, n);
}

module.exports = { add, double };
`
	if err := os.WriteFile(testFile, []byte(testCode), 0644); err != nil {
		log.Fatalf("Failed to write test file: %v", err)
	}

	// Create in-memory stores
	vectors, err := vecstore.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	defer func() { _ = vectors.Close() }()
	gstore := graph.NewMemoryStore()

	// Create mock embedder and indexer
	mockEmb := NewMockEmbedder(384)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	idx := indexer.New(parser.New(0), mockEmb, vectors, gstore, logger)

	ctx := context.Background()
	stats, err := idx.IndexCodebase(ctx, tmpDir, nil)
	if err != nil {
		log.Fatalf("Failed to index codebase: %v", err)
	}

	// Print statistics
	fmt.Printf("\nIndexing Statistics:\n")
	fmt.Printf("  Files Parsed: %d\n", stats.FilesParsed)
	fmt.Printf("  Files Skipped: %d\n", stats.FilesSkipped)
	fmt.Printf("  Files Failed: %d\n", stats.FilesFailed)
	fmt.Printf("  Functions: %d\n", stats.Functions)
	fmt.Printf("  Calls Resolved: %d\n", stats.CallsResolved)
	fmt.Printf("  Snippets Embedded: %d\n", stats.SnippetsEmbedded)
	fmt.Printf("  Batches Failed: %d\n", stats.BatchesFailed)
	fmt.Printf("  Duration: %v\n", stats.Duration)

	if len(stats.ErrorMessages) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, msg := range stats.ErrorMessages {
			fmt.Printf("  - %s\n", msg)
		}
	}

	// Verify both stores hold the same identifiers
	vecIDs, err := vectors.Identifiers(ctx)
	if err != nil {
		log.Fatalf("Failed to list vector identifiers: %v", err)
	}
	graphIDs, err := gstore.Identifiers(ctx)
	if err != nil {
		log.Fatalf("Failed to list graph identifiers: %v", err)
	}

	fmt.Printf("\nVerification:\n")
	fmt.Printf("  Snippets in vector index: %d\n", len(vecIDs))
	fmt.Printf("  Function nodes in graph: %d\n", len(graphIDs))

	if len(vecIDs) > 0 && len(vecIDs) == len(graphIDs) {
		fmt.Println("\n✓ SUCCESS: Embeddings stored and identifier sets match!")
	} else {
		fmt.Println("\n✗ FAILURE: Stores disagree or are empty!")
		os.Exit(1)
	}
}
