package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	// Dimensions
	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Environment variables consulted by the providers and the factory.
const (
	EnvProvider     = "JSCONTEXT_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIModel  = "OPENAI_EMBEDDING_MODEL"
	EnvOpenAIBase   = "OPENAI_BASE_URL"
	EnvOllamaHost   = "OLLAMA_HOST"
	EnvOllamaModel  = "OLLAMA_EMBEDDING_MODEL"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOllamaHost    = "http://localhost:11434"
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates a new OpenAI embedder. An empty apiKey falls back
// to OPENAI_API_KEY; the model and base URL come from the environment so an
// OpenAI-compatible endpoint can be substituted.
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	model := os.Getenv(EnvOpenAIModel)
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := strings.TrimRight(os.Getenv(EnvOpenAIBase), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Use batch API for consistency
	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return o.callAPI(ctx, req.Texts, model)
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	// Cache successful embeddings
	if o.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(req.Texts[i])
			emb.Hash = hash
			o.cache.Set(hash, emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      model,
	}, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Provider:   ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// A count mismatch would silently pair snippets with the wrong vectors.
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data))
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  ProviderOpenAI,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int {
	switch o.model {
	case "text-embedding-3-large":
		return 3072
	default:
		return OpenAIDimension
	}
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// OllamaProvider implements Embedder against a local Ollama instance. The
// native API embeds one prompt per call, so batches degrade to a loop.
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates an Ollama embedder. An empty host falls back to
// OLLAMA_HOST, then to the default local address.
func NewOllamaProvider(host string, cache *Cache) (*OllamaProvider, error) {
	if host == "" {
		host = os.Getenv(EnvOllamaHost)
	}
	if host == "" {
		host = defaultOllamaHost
	}
	model := os.Getenv(EnvOllamaModel)
	if model == "" {
		model = DefaultOllamaModel
	}

	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (l *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	model := req.Model
	if model == "" {
		model = l.model
	}

	config := DefaultRetryConfig()
	emb, err := retryWithBackoff(ctx, config, func() (*Embedding, error) {
		return l.callAPI(ctx, req.Text, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	emb.Hash = hash
	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      l.model,
	}, nil
}

func (l *OllamaProvider) callAPI(ctx context.Context, text, model string) (*Embedding, error) {
	reqBody := map[string]interface{}{
		"model":  model,
		"prompt": text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Provider:   ProviderOllama,
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}

	var apiResp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vector := make([]float32, len(apiResp.Embedding))
	for i, v := range apiResp.Embedding {
		vector[i] = float32(v)
	}

	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderOllama,
		Model:     model,
	}, nil
}

func (l *OllamaProvider) Dimension() int {
	return OllamaDimension
}

func (l *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (l *OllamaProvider) Model() string {
	return l.model
}

func (l *OllamaProvider) Close() error {
	l.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors with no network
// dependency. It exists for tests and offline runs; the vectors carry no
// semantic signal.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a deterministic offline embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-embeddings",
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	vector := make([]float32, LocalDimension)
	textHash := sha256.Sum256([]byte(req.Text))
	for i := 0; i < LocalDimension; i++ {
		vector[i] = float32(textHash[i%len(textHash)]) / 255.0
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
