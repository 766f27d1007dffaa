package integration

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
)

// MockEmbedder generates deterministic unit vectors from a content hash, so
// identical text always embeds to the identical vector. Querying with a
// snippet's exact text therefore retrieves that snippet with similarity 1.
type MockEmbedder struct {
	dimension int
	provider  string
	model     string
}

// NewMockEmbedder creates a mock embedder producing vectors of the given
// dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{
		dimension: dimension,
		provider:  "mock",
		model:     "mock-v1",
	}
}

// GenerateEmbedding derives a pseudo-random but deterministic unit vector
// from the sha256 of the text.
func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if req.Text == "" {
		return nil, embedder.ErrEmptyText
	}

	hash := sha256.Sum256([]byte(req.Text))
	vector := make([]float32, m.dimension)
	for i := 0; i < m.dimension; i++ {
		idx := (i * 4) % 28
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		// Mix the lane index in so dimensions beyond the hash width differ.
		val ^= uint32(i) * 2654435761
		vector[i] = (float32(val)/float32(1<<32))*2 - 1
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		inv := float32(1 / math.Sqrt(sum))
		for i := range vector {
			vector[i] *= inv
		}
	}

	return &embedder.Embedding{
		Vector:    vector,
		Dimension: m.dimension,
		Provider:  m.provider,
		Model:     m.model,
		Hash:      embedder.ComputeHash(req.Text),
	}, nil
}

// GenerateBatch embeds each text independently.
func (m *MockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if len(req.Texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

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
		Provider:   m.provider,
		Model:      m.model,
	}, nil
}

// Dimension returns the embedding dimension.
func (m *MockEmbedder) Dimension() int {
	return m.dimension
}

// Provider returns the provider name.
func (m *MockEmbedder) Provider() string {
	return m.provider
}

// Model returns the model name.
func (m *MockEmbedder) Model() string {
	return m.model
}

// Close releases resources (no-op for mock).
func (m *MockEmbedder) Close() error {
	return nil
}
