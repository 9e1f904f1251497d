package domain

import (
	"fmt"
	"time"
)

// Document is an immutable unit of ingested text.
type Document struct {
	ID          string
	Fingerprint string
	Text        string
	CreatedAt   time.Time
}

// Chunk is a contiguous slice of a document's text. Index is zero-based and
// contiguous within one document.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Text       string
}

// Embedding is the vector stored for exactly one chunk.
type Embedding struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// SearchHit is one row of a distance-ranked search. Lower Distance is closer.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// Result is what a query returns per hit. When a neighbor window was
// requested, Text holds the joined window instead of the single chunk.
type Result struct {
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// IndexProfile records how the vectors in a store were produced. Vectors
// from different profiles are not comparable.
type IndexProfile struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Distance  string `json:"distance"`
}

// Compatible returns nil when vectors produced under want can be compared
// with those stored under p.
func (p IndexProfile) Compatible(want IndexProfile) error {
	if p == want {
		return nil
	}
	return fmt.Errorf("%w: index was built with model %q (dimension %d, %s distance) but %q (dimension %d, %s distance) is configured",
		ErrConflict, p.Model, p.Dimension, p.Distance, want.Model, want.Dimension, want.Distance)
}

type Stats struct {
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
}

const (
	DefaultChunkSize      = 100
	DefaultChunkOverlap   = 20
	DefaultTopK           = 5
	DefaultNeighborWindow = 0
)

// IngestRequest carries the text to index and its chunking parameters.
type IngestRequest struct {
	Text         string
	ChunkSize    int
	ChunkOverlap int
}

// IngestResult reports the document id and how many chunks were created by
// this call. Created is false when the text was already indexed.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	NumChunks  int    `json:"num_chunks"`
	Created    bool   `json:"created"`
}

// QueryRequest describes a nearest-neighbor query. An empty DocumentID
// searches the whole corpus.
type QueryRequest struct {
	Query           string
	TopK            int
	DocumentID      string
	NeighborWindow  int
	RequireDocument bool
}

// Texts flattens results to their text, preserving order.
func Texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}
