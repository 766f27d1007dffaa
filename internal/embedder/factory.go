package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. JSCONTEXT_EMBEDDING_PROVIDER (openai, ollama, local)
//  2. OPENAI_API_KEY set: use OpenAI
//  3. OLLAMA_HOST set: use Ollama
//
// With nothing configured the factory fails rather than silently producing
// non-semantic vectors; the local provider must be selected explicitly.
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)
	ollamaHost := os.Getenv(EnvOllamaHost)

	cache := NewCache(10000) // Default cache size

	// Explicit provider selection
	if provider != "" {
		provider = strings.ToLower(provider)
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, cache)
		case ProviderOllama:
			return NewOllamaProvider(ollamaHost, cache)
		case ProviderLocal:
			return NewLocalProvider(cache)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
		}
	}

	// Auto-detect based on available configuration
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}
	if ollamaHost != "" {
		return NewOllamaProvider(ollamaHost, cache)
	}

	return nil, fmt.Errorf("%w: set %s or %s", ErrNoProviderEnabled, EnvOpenAIAPIKey, EnvOllamaHost)
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderOllama:
		return NewOllamaProvider("", cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvOllamaHost) != "" {
		return ProviderOllama
	}

	return ""
}
