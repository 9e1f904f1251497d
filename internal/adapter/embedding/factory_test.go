package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/config"
	"docindex/internal/adapter/cache"
)

func TestNew_HashProvider(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.CacheSize = 0

	e, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &HashingEmbedder{}, e)
	assert.Equal(t, 384, e.Dimension())
}

func TestNew_WrapsCacheAndResilience(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "ollama"
	cfg.Model = "all-minilm"
	cfg.Dimension = 0

	e, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &cache.CachedEmbedder{}, e)
	assert.Equal(t, 384, e.Dimension())
	assert.Equal(t, "all-minilm", e.ModelName())
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "openai"
	cfg.Model = "text-embedding-3-small"
	cfg.APIKeyEnv = "DOCINDEX_TEST_MISSING_KEY"
	t.Setenv("DOCINDEX_TEST_MISSING_KEY", "")

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "carrier-pigeon"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}
