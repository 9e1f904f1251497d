package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultBatchSize     = 100
)

// knownDimensions lists output sizes for models we have seen. Anything else
// must be configured explicitly.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// OpenAIEmbedder talks to any server implementing the OpenAI /embeddings
// endpoint (OpenAI itself, Ollama, vLLM, LocalAI).
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
}

type OpenAIOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	if opts.Dimension <= 0 {
		dim, ok := knownDimensions[opts.Model]
		if !ok {
			return nil, fmt.Errorf("unknown dimension for model %q: set embedding.dimension", opts.Model)
		}
		opts.Dimension = dim
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &OpenAIEmbedder{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		dimension: opts.Dimension,
		batchSize: opts.BatchSize,
		client:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

// NewOllamaEmbedder targets a local Ollama through its OpenAI-compatible API.
func NewOllamaEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaBaseURL
	}
	if opts.APIKey == "" {
		opts.APIKey = "ollama"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return NewOpenAIEmbedder(opts)
}

// Embed sends texts in batches of at most batchSize and returns one vector
// per text in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	// The API may return data out of order; Index is authoritative.
	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("response index %d out of range for %d inputs", data.Index, len(texts))
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("model %s returned dimension %d, expected %d", e.model, len(data.Embedding), e.dimension)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("response missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
