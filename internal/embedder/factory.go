package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. NOTESEARCH_EMBEDDING_PROVIDER (ollama, openai, local)
// 2. OPENAI_API_KEY set → OpenAI
// 3. Default to Ollama (local server, no key required)
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	openaiKey := os.Getenv(EnvOpenAIKey)

	// Explicit provider selection
	if provider != "" {
		provider = strings.ToLower(provider)
		switch provider {
		case ProviderOllama:
			return NewOllamaProvider("", ""), nil
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey)
		case ProviderLocal:
			return NewLocalProvider(), nil
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	// Auto-detect based on available API keys
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey)
	}

	// Fallback to the local Ollama server
	return NewOllamaProvider("", ""), nil
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey)
	case ProviderLocal:
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvOpenAIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderOllama
}
