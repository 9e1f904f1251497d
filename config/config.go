package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDir is the per-project directory holding the index and an optional
// config file.
const DataDir = ".docindex"

// Config holds all configuration for docindex.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// IndexConfig holds ingestion defaults.
type IndexConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
}

// RetrieveConfig holds query defaults.
type RetrieveConfig struct {
	TopK           int `yaml:"top_k"`
	NeighborWindow int `yaml:"neighbor_window"`
}

// EmbeddingConfig selects and tunes the embedder.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "hash", "openai", "ollama"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
	BreakerMinReqs    uint32  `yaml:"breaker_min_requests"`
	BreakerRatio      float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenSecs   int     `yaml:"breaker_open_secs"`
	CacheSize         int     `yaml:"cache_size"` // 0 disables the query-embedding cache
	CacheTTLSecs      int     `yaml:"cache_ttl_secs"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"`   // "bolt", "sqlite", "memory"
	Path     string `yaml:"path"`     // empty means .docindex/index.<ext> under the project dir
	Distance string `yaml:"distance"` // "cosine", "l2"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
	Mode               string   `yaml:"mode"` // gin mode: debug, release, test
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// TelemetryConfig controls OpenTelemetry tracing export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			ChunkSize:    100,
			ChunkOverlap: 20,
			Includes:     []string{"**/*.txt", "**/*.md", "**/*.rst"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/" + DataDir + "/**"},
			MaxFileBytes: 10 << 20,
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			NeighborWindow: 0,
		},
		Embedding: EmbeddingConfig{
			Provider:        "hash",
			APIKeyEnv:       "OPENAI_API_KEY",
			Dimension:       384,
			BatchSize:       100,
			TimeoutSecs:     60,
			BreakerMinReqs:  3,
			BreakerRatio:    0.6,
			BreakerOpenSecs: 30,
			CacheSize:       256,
			CacheTTLSecs:    600,
		},
		Store: StoreConfig{
			Driver:   "bolt",
			Distance: "cosine",
		},
		Server: ServerConfig{
			Addr:               ":8080",
			CORSOrigins:        []string{"*"},
			RequestTimeoutSecs: 60,
			Mode:               "release",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "docindex",
			SampleRatio: 1,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for docindex.yaml, then .docindex/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "docindex.yaml"),
		filepath.Join(dir, DataDir, "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 {
		return fmt.Errorf("index.chunk_overlap must not be negative, got %d", c.Index.ChunkOverlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.NeighborWindow < 0 {
		return fmt.Errorf("retrieve.neighbor_window must not be negative, got %d", c.Retrieve.NeighborWindow)
	}

	switch c.Embedding.Provider {
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive for the hash provider")
		}
	case "openai", "ollama":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider %q", c.Embedding.Provider)
		}
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}

	switch c.Store.Driver {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Store.Distance {
	case "cosine", "l2":
	default:
		return fmt.Errorf("unknown store.distance %q", c.Store.Distance)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server.mode %q", c.Server.Mode)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath resolves the index location for the project rooted at dir.
func (c *Config) StorePath(dir string) string {
	if c.Store.Path != "" {
		if filepath.IsAbs(c.Store.Path) {
			return c.Store.Path
		}
		return filepath.Join(dir, c.Store.Path)
	}
	ext := "db"
	if c.Store.Driver == "sqlite" {
		ext = "sqlite"
	}
	return filepath.Join(dir, DataDir, "index."+ext)
}

// EnsureDataDir creates the parent directory of the index file.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}

func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSecs) * time.Second
}

func (e EmbeddingConfig) BreakerOpenTimeout() time.Duration {
	return time.Duration(e.BreakerOpenSecs) * time.Second
}

func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}
