package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer answers /embeddings with vectors [len(text), i] and
// returns the data array in reverse order.
func fakeEmbeddingsServer(t *testing.T, batches *[][]string) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		*batches = append(*batches, req.Input)
		mu.Unlock()

		resp := embeddingResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), float32(i)},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder_BatchesPreserveOrder(t *testing.T) {
	var batches [][]string
	srv := fakeEmbeddingsServer(t, &batches)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{
		BaseURL: srv.URL, APIKey: "secret", Model: "test-model", Dimension: 2, BatchSize: 2,
	})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Equal(t, []string{"eeeee"}, batches[2])
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestOpenAIEmbedder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m", Dimension: 2})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOpenAIEmbedder_MissingAndWrongDimension(t *testing.T) {
	tests := []struct {
		name string
		data []embeddingData
	}{
		{"missing index", []embeddingData{{Index: 0, Embedding: []float32{1, 2}}}},
		{"wrong dimension", []embeddingData{{Index: 0, Embedding: []float32{1}}, {Index: 1, Embedding: []float32{1}}}},
		{"index out of range", []embeddingData{{Index: 5, Embedding: []float32{1, 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(embeddingResponse{Data: tt.data})
			}))
			defer srv.Close()

			e, err := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: "m", Dimension: 2})
			require.NoError(t, err)
			_, err = e.Embed(context.Background(), []string{"a", "b"})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIEmbedder_KnownDimension(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIOptions{Model: "text-embedding-3-small", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())

	_, err = NewOpenAIEmbedder(OpenAIOptions{Model: "who-knows"})
	assert.Error(t, err)
}

func TestOllamaEmbedderDefaults(t *testing.T) {
	e, err := NewOllamaEmbedder(OpenAIOptions{Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, defaultOllamaBaseURL, e.baseURL)
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIOptions{BaseURL: "http://127.0.0.1:1", Model: "m", Dimension: 2})
	require.NoError(t, err)
	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}
