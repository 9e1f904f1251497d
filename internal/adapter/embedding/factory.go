package embedding

import (
	"fmt"
	"log/slog"
	"os"

	"docindex/config"
	"docindex/internal/adapter/cache"
	"docindex/internal/port"
)

// New builds the embedder described by cfg. Remote providers are wrapped
// with rate limiting and a circuit breaker. A positive cache size adds the
// embedding cache on the outside so cache hits skip the limiter.
func New(cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, error) {
	var (
		base   port.Embedder
		remote bool
		err    error
	)

	switch cfg.Provider {
	case "hash", "":
		base, err = NewHashingEmbedder(cfg.Dimension)
	case "openai":
		var apiKey string
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		if apiKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		base, err = NewOpenAIEmbedder(openAIOptions(cfg, apiKey))
		remote = true
	case "ollama":
		base, err = NewOllamaEmbedder(openAIOptions(cfg, ""))
		remote = true
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	embedder := base
	if remote {
		embedder = NewResilientEmbedder(embedder, ResilienceOptions{
			RequestsPerMinute: cfg.RequestsPerMinute,
			MinRequests:       cfg.BreakerMinReqs,
			FailureRatio:      cfg.BreakerRatio,
			OpenTimeout:       cfg.BreakerOpenTimeout(),
		}, logger)
	}
	if cfg.CacheSize > 0 {
		embedder = cache.NewCachedEmbedder(embedder, cache.NewEmbeddingCache(cfg.CacheSize, cfg.CacheTTL()))
	}
	return embedder, nil
}

func openAIOptions(cfg config.EmbeddingConfig, apiKey string) OpenAIOptions {
	return OpenAIOptions{
		BaseURL:   cfg.BaseURL,
		APIKey:    apiKey,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
		Timeout:   cfg.Timeout(),
	}
}
