package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"docindex/internal/adapter/memstore"
	"docindex/internal/domain"
)

// lexiconEmbedder maps known words to fixed dimensions and ignores the
// rest, so test corpora get predictable distances.
type lexiconEmbedder struct {
	mu        sync.Mutex
	dims      map[string]int
	dimension int
	batches   [][]string
	err       error
	short     bool
}

func newLexiconEmbedder(dims map[string]int) *lexiconEmbedder {
	n := 0
	for _, d := range dims {
		n = max(n, d+1)
	}
	return &lexiconEmbedder{dims: dims, dimension: n}
}

// wordEmbedder gives each of w0..w(n-1) its own dimension.
func wordEmbedder(n int) *lexiconEmbedder {
	dims := make(map[string]int, n)
	for i := 0; i < n; i++ {
		dims[word(i)] = i
	}
	return newLexiconEmbedder(dims)
}

func word(i int) string {
	return "w" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func (e *lexiconEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, append([]string(nil), texts...))
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if d, ok := e.dims[w]; ok {
				vec[d]++
			}
		}
		out[i] = vec
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *lexiconEmbedder) Dimension() int    { return e.dimension }
func (e *lexiconEmbedder) ModelName() string { return "lexicon" }

func (e *lexiconEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batches)
}

// racingStore simulates a concurrent ingester that commits the same text
// between our fingerprint lookup and our insert.
type racingStore struct {
	*memstore.MemoryStore
	once     sync.Once
	winnerID string
}

func (s *racingStore) FindDocumentByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	raced := false
	s.once.Do(func() {
		id, err := s.MemoryStore.CreateDocument(ctx, "winner", fingerprint)
		if err != nil {
			panic(err)
		}
		ids, err := s.MemoryStore.CreateChunks(ctx, id, []string{"winner"})
		if err != nil {
			panic(err)
		}
		if err := s.MemoryStore.StoreEmbeddings(ctx, id, ids, [][]float32{{1}}); err != nil {
			panic(err)
		}
		s.winnerID = id
		raced = true
	})
	if raced {
		return "", domain.ErrNotFound
	}
	return s.MemoryStore.FindDocumentByFingerprint(ctx, fingerprint)
}

// flakyStore fails reads with a transport error.
type flakyStore struct {
	*memstore.MemoryStore
}

var errStoreDown = errors.New("connection reset by peer")

func (s *flakyStore) FindDocumentByFingerprint(context.Context, string) (string, error) {
	return "", errStoreDown
}

func (s *flakyStore) Search(context.Context, []float32, int, string) ([]domain.SearchHit, error) {
	return nil, errStoreDown
}
