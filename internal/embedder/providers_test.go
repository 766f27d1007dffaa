package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, serverURL string, cache *Cache) *OpenAIProvider {
	t.Helper()
	t.Setenv(EnvOpenAIBase, serverURL)
	t.Setenv(EnvOpenAIModel, "")
	p, err := NewOpenAIProvider("test-key", cache)
	require.NoError(t, err)
	return p
}

func openAIResponse(vectors ...[]float32) map[string]interface{} {
	data := make([]map[string]interface{}, len(vectors))
	for i, v := range vectors {
		data[i] = map[string]interface{}{"index": i, "embedding": v}
	}
	return map[string]interface{}{"model": DefaultOpenAIModel, "data": data}
}

func TestOpenAIProvider_GenerateBatch(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIResponse(
			[]float32{0.1, 0.2},
			[]float32{0.3, 0.4},
		))
	}))
	defer server.Close()

	cache := NewCache(10)
	provider := newTestOpenAI(t, server.URL, cache)
	defer provider.Close()

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"snippet one", "snippet two"},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, gotBody["model"])
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2}, resp.Embeddings[0].Vector)
	assert.Equal(t, []float32{0.3, 0.4}, resp.Embeddings[1].Vector)
	assert.Equal(t, ProviderOpenAI, resp.Provider)
	assert.NotEmpty(t, resp.Embeddings[0].Hash)

	// Both results land in the cache keyed by content hash.
	assert.Equal(t, 2, cache.Size())
}

func TestOpenAIProvider_CacheHit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(openAIResponse([]float32{0.5}))
	}))
	defer server.Close()

	provider := newTestOpenAI(t, server.URL, NewCache(10))
	defer provider.Close()

	ctx := context.Background()
	first, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same snippet"})
	require.NoError(t, err)
	second, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "same snippet"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, int32(1), calls.Load(), "second call should be served from cache")
}

func TestOpenAIProvider_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(openAIResponse([]float32{0.9}))
	}))
	defer server.Close()

	provider := newTestOpenAI(t, server.URL, nil)
	defer provider.Close()

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"snippet"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []float32{0.9}, resp.Embeddings[0].Vector)
}

func TestOpenAIProvider_BadRequestFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid model"}`))
	}))
	defer server.Close()

	provider := newTestOpenAI(t, server.URL, nil)
	defer provider.Close()

	_, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"snippet"},
	})
	require.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load(), "request errors must not be retried")
}

func TestOpenAIProvider_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openAIResponse([]float32{0.1}))
	}))
	defer server.Close()

	provider := newTestOpenAI(t, server.URL, nil)
	defer provider.Close()

	_, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"one", "two"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	_, err := NewOpenAIProvider("", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProvider_ModelFromEnv(t *testing.T) {
	t.Setenv(EnvOpenAIModel, "text-embedding-3-large")
	provider, err := NewOpenAIProvider("test-key", nil)
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "text-embedding-3-large", provider.Model())
	assert.Equal(t, 3072, provider.Dimension())
}

func TestOpenAIProvider_Validation(t *testing.T) {
	provider, err := NewOpenAIProvider("test-key", nil)
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	_, err = provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	large := make([]string, MaxBatchSize+1)
	for i := range large {
		large[i] = "text"
	}
	_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: large})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestOllamaProvider_GenerateEmbedding(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultOllamaModel, body["model"])
		assert.NotEmpty(t, body["prompt"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.5, 0.25},
		})
	}))
	defer server.Close()

	t.Setenv(EnvOllamaModel, "")
	cache := NewCache(10)
	provider, err := NewOllamaProvider(server.URL, cache)
	require.NoError(t, err)
	defer provider.Close()

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "snippet"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, emb.Vector)
	assert.Equal(t, 2, emb.Dimension)
	assert.Equal(t, ProviderOllama, emb.Provider)

	// Batches loop over the single-prompt API and reuse the cache.
	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"snippet", "other snippet"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
	assert.Equal(t, int32(2), calls.Load(), "cached snippet must not hit the API again")
}

func TestLocalProvider_Deterministic(t *testing.T) {
	ctx := context.Background()

	p1, err := NewLocalProvider(nil)
	require.NoError(t, err)
	p2, err := NewLocalProvider(nil)
	require.NoError(t, err)

	a, err := p1.GenerateEmbedding(ctx, EmbeddingRequest{Text: "function a() {}"})
	require.NoError(t, err)
	b, err := p2.GenerateEmbedding(ctx, EmbeddingRequest{Text: "function a() {}"})
	require.NoError(t, err)
	c, err := p1.GenerateEmbedding(ctx, EmbeddingRequest{Text: "function c() {}"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector, "same text must embed identically")
	assert.NotEqual(t, a.Vector, c.Vector)
	assert.Len(t, a.Vector, LocalDimension)
}

func TestProviderMetadata(t *testing.T) {
	t.Setenv(EnvOpenAIModel, "")
	t.Setenv(EnvOllamaModel, "")

	openai, err := NewOpenAIProvider("test-key", nil)
	require.NoError(t, err)
	ollama, err := NewOllamaProvider("", nil)
	require.NoError(t, err)
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)

	tests := []struct {
		provider  Embedder
		name      string
		model     string
		dimension int
	}{
		{openai, ProviderOpenAI, DefaultOpenAIModel, OpenAIDimension},
		{ollama, ProviderOllama, DefaultOllamaModel, OllamaDimension},
		{local, ProviderLocal, "local-embeddings", LocalDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.provider.Provider())
			assert.Equal(t, tt.model, tt.provider.Model())
			assert.Equal(t, tt.dimension, tt.provider.Dimension())
			assert.NoError(t, tt.provider.Close())
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	fastConfig := RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		result, err := retryWithBackoff(context.Background(), fastConfig, func() (string, error) {
			calls++
			if calls < 2 {
				return "", fmt.Errorf("transient")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 2, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), fastConfig, func() (int, error) {
			calls++
			return 0, fmt.Errorf("error %d", calls)
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "error 3")
	})

	t.Run("non-retryable provider error short-circuits", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), fastConfig, func() (int, error) {
			calls++
			return 0, &ProviderError{Provider: ProviderOpenAI, StatusCode: 401, Message: "bad key"}
		})
		var pe *ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retryWithBackoff(ctx, fastConfig, func() (string, error) {
			calls++
			cancel()
			return "", fmt.Errorf("failing")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
