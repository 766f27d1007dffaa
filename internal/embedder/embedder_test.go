package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_DeepCopy(t *testing.T) {
	cache := NewCache(10)
	cache.Set("h1", &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Model:     "local-embeddings",
		Hash:      "h1",
	})

	got, ok := cache.Get("h1")
	require.True(t, ok)

	// Mutating the returned copy must not touch the cached value.
	got.Vector[0] = 99

	again, ok := cache.Get("h1")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(10)
	cache.Set("a", &Embedding{Hash: "a"})
	require.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("function add(a, b) { return a + b; }")
	h2 := ComputeHash("function add(a, b) { return a + b; }")
	h3 := ComputeHash("function sub(a, b) { return a - b; }")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
	}{
		{"valid", []string{"a", "b"}, false},
		{"empty list", nil, true},
		{"empty element", []string{"a", "", "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{404, false},
	}

	for _, tt := range tests {
		pe := &ProviderError{Provider: ProviderOpenAI, StatusCode: tt.status, Message: "x"}
		assert.Equal(t, tt.retryable, pe.Retryable(), "status %d", tt.status)
	}

	pe := &ProviderError{Provider: ProviderOllama, StatusCode: 502, Message: "bad gateway"}
	assert.Contains(t, pe.Error(), "ollama")
	assert.Contains(t, pe.Error(), "502")
}
