// Package embedder turns text into vectors for document upload and query.
// Embedders implement the eino embedding.Embedder interface.
package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// Providers accepted by Config.Provider.
const (
	ProviderASCII  = "ascii"
	ProviderOpenAI = "openai"
)

// DefaultOpenAIModel is used when Config.Model is empty.
const DefaultOpenAIModel = "text-embedding-ada-002"

// Config selects and configures the embedding provider.
type Config struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`  // Falls back to OPENAI_API_KEY
	BaseURL    string        `mapstructure:"base_url"` // Falls back to OPENAI_BASE_URL
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Meta describes the embedder New picked.
type Meta struct {
	Provider string
	Model    string
	Dim      int
}

// New builds the embedder named by cfg.Provider. dim is the vector size used
// when cfg.Dimensions is unset.
func New(ctx context.Context, cfg Config, dim int) (embedding.Embedder, Meta, error) {
	if cfg.Dimensions > 0 {
		dim = cfg.Dimensions
	}

	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", ProviderASCII:
		return NewASCII(dim), Meta{Provider: ProviderASCII, Model: ProviderASCII, Dim: dim}, nil
	case ProviderOpenAI:
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
		if apiKey == "" {
			return nil, Meta{}, fmt.Errorf("openai embedding needs an api key (milvus.embedding.api_key or OPENAI_API_KEY)")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = DefaultOpenAIModel
		}
		baseURL := strings.TrimSpace(cfg.BaseURL)
		if baseURL == "" {
			baseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		oc := &openaiembed.EmbeddingConfig{
			APIKey:  apiKey,
			Model:   model,
			BaseURL: baseURL,
			Timeout: timeout,
		}
		// ada-002 rejects the dimensions parameter, so it is only sent when configured.
		if cfg.Dimensions > 0 {
			localDim := cfg.Dimensions
			oc.Dimensions = &localDim
		}
		em, err := openaiembed.NewEmbedder(ctx, oc)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("create openai embedder: %w", err)
		}
		return em, Meta{Provider: ProviderOpenAI, Model: model, Dim: dim}, nil
	default:
		return nil, Meta{}, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}

// Embed runs e over texts and converts the result to float32 vectors of length dim.
func Embed(ctx context.Context, e embedding.Embedder, texts []string, dim int) ([][]float32, error) {
	vectors, err := e.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim)
		}
		out[i] = make([]float32, len(v))
		for j, x := range v {
			out[i][j] = float32(x)
		}
	}
	return out, nil
}
