package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"docindex/internal/adapter/analyzer"
	"docindex/internal/port"
)

// HashingEmbedder is an offline embedder using signed feature hashing over
// stemmed terms and adjacent-term bigrams. Texts sharing vocabulary land
// close under cosine distance. Output vectors are L2-normalized, and a text
// with no terms maps to the zero vector.
type HashingEmbedder struct {
	dimension int
	tokenizer port.Tokenizer
}

const hashingModelPrefix = "feature-hash-v1"

func NewHashingEmbedder(dimension int) (*HashingEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hashing embedder dimension must be positive, got %d", dimension)
	}
	return &HashingEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}, nil
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimension)
	terms := e.tokenizer.Tokenize(text)
	for i, term := range terms {
		e.add(vec, term, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+term, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return fmt.Sprintf("%s-%d", hashingModelPrefix, e.dimension)
}
