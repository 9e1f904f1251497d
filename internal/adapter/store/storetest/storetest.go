// Package storetest holds the behavioural contract every port.Store
// backend must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// Factory returns an empty store using cosine distance. The suite closes it.
type Factory func(t *testing.T) port.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s port.Store)
	}{
		{"DocumentLifecycle", testDocumentLifecycle},
		{"DuplicateFingerprint", testDuplicateFingerprint},
		{"ConcurrentDuplicateFingerprint", testConcurrentDuplicateFingerprint},
		{"ChunkRangeClamps", testChunkRangeClamps},
		{"ChunksOnlyOnce", testChunksOnlyOnce},
		{"ChunksForUnknownDocument", testChunksForUnknownDocument},
		{"MisalignedEmbeddingsPanic", testMisalignedEmbeddingsPanic},
		{"SearchOrdering", testSearchOrdering},
		{"SearchScopedToDocument", testSearchScopedToDocument},
		{"SearchDeterministicTies", testSearchDeterministicTies},
		{"SearchSkipsUnembeddedChunks", testSearchSkipsUnembeddedChunks},
		{"SearchValidation", testSearchValidation},
		{"HasEmbeddings", testHasEmbeddings},
		{"UpdateCommits", testUpdateCommits},
		{"UpdateRollsBack", testUpdateRollsBack},
		{"EnsureProfile", testEnsureProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// seed creates a document whose chunks carry the given vectors, in order.
func seed(t *testing.T, s port.Store, fingerprint string, vectors ...[]float32) (string, []string) {
	t.Helper()
	ctx := context.Background()

	docID, err := s.CreateDocument(ctx, "text of "+fingerprint, fingerprint)
	require.NoError(t, err)

	texts := make([]string, len(vectors))
	for i := range vectors {
		texts[i] = fmt.Sprintf("%s-c%d", fingerprint, i)
	}
	chunkIDs, err := s.CreateChunks(ctx, docID, texts)
	require.NoError(t, err)
	require.Len(t, chunkIDs, len(texts))
	require.NoError(t, s.StoreEmbeddings(ctx, docID, chunkIDs, vectors))
	return docID, chunkIDs
}

func testDocumentLifecycle(t *testing.T, s port.Store) {
	ctx := context.Background()

	_, err := s.FindDocumentByFingerprint(ctx, "fp-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	id, err := s.CreateDocument(ctx, "hello world", "fp-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	found, err := s.FindDocumentByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
	assert.Equal(t, "fp-1", doc.Fingerprint)
	assert.False(t, doc.CreatedAt.IsZero())

	_, err = s.GetDocument(ctx, "no-such-document")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 1}, stats)
}

func testDuplicateFingerprint(t *testing.T, s port.Store) {
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, "one", "fp")
	require.NoError(t, err)

	_, err = s.CreateDocument(ctx, "one", "fp")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func testConcurrentDuplicateFingerprint(t *testing.T, s port.Store) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateDocument(ctx, "same text", "same-fp")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
}

func testChunkRangeClamps(t *testing.T, s port.Store) {
	ctx := context.Background()
	vectors := make([][]float32, 10)
	for i := range vectors {
		vectors[i] = []float32{1, float32(i)}
	}
	docID, _ := seed(t, s, "doc", vectors...)

	tests := []struct {
		from, to int
		want     []string
	}{
		{3, 7, []string{"doc-c3", "doc-c4", "doc-c5", "doc-c6", "doc-c7"}},
		{4, 4, []string{"doc-c4"}},
		{-2, 1, []string{"doc-c0", "doc-c1"}},
		{8, 20, []string{"doc-c8", "doc-c9"}},
		{-5, 50, []string{"doc-c0", "doc-c1", "doc-c2", "doc-c3", "doc-c4", "doc-c5", "doc-c6", "doc-c7", "doc-c8", "doc-c9"}},
		{6, 5, []string{}},
		{12, 15, []string{}},
	}
	for _, tt := range tests {
		got, err := s.GetChunksInRange(ctx, docID, tt.from, tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "range [%d, %d]", tt.from, tt.to)
	}

	got, err := s.GetChunksInRange(ctx, "no-such-document", 0, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testChunksOnlyOnce(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, err := s.CreateDocument(ctx, "text", "fp")
	require.NoError(t, err)

	_, err = s.CreateChunks(ctx, docID, []string{"a", "b"})
	require.NoError(t, err)

	_, err = s.CreateChunks(ctx, docID, []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.GetChunksInRange(ctx, docID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func testChunksForUnknownDocument(t *testing.T, s port.Store) {
	_, err := s.CreateChunks(context.Background(), "no-such-document", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testMisalignedEmbeddingsPanic(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, err := s.CreateDocument(ctx, "text", "fp")
	require.NoError(t, err)
	ids, err := s.CreateChunks(ctx, docID, []string{"a", "b"})
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = s.StoreEmbeddings(ctx, docID, ids, [][]float32{{1, 0}})
	})
}

func testSearchOrdering(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, chunkIDs := seed(t, s, "doc",
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{1, 1},
	)

	hits, err := s.Search(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 4)

	var order []int
	for i, h := range hits {
		order = append(order, h.Index)
		assert.Equal(t, docID, h.DocumentID)
		assert.Equal(t, chunkIDs[h.Index], h.ChunkID)
		assert.Equal(t, fmt.Sprintf("doc-c%d", h.Index), h.Text)
		if i > 0 {
			assert.LessOrEqual(t, hits[i-1].Distance, h.Distance)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 0}, order)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, hits[3].Distance, 1e-6)

	top2, err := s.Search(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, top2, 2)
	assert.Equal(t, 1, top2[0].Index)
	assert.Equal(t, 2, top2[1].Index)
}

func testSearchScopedToDocument(t *testing.T, s port.Store) {
	ctx := context.Background()
	docA, _ := seed(t, s, "a", []float32{1, 0}, []float32{0, 1})
	docB, _ := seed(t, s, "b", []float32{1, 0})

	hits, err := s.Search(ctx, []float32{1, 0}, 10, docA)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, docA, h.DocumentID)
	}

	all, err := s.Search(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyB, err := s.Search(ctx, []float32{1, 0}, 10, docB)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "b-c0", onlyB[0].Text)

	none, err := s.Search(ctx, []float32{1, 0}, 10, "no-such-document")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearchDeterministicTies(t *testing.T, s port.Store) {
	ctx := context.Background()
	seed(t, s, "x", []float32{1, 0}, []float32{1, 0}, []float32{1, 0})
	seed(t, s, "y", []float32{1, 0}, []float32{1, 0})

	first, err := s.Search(ctx, []float32{1, 0}, 4, "")
	require.NoError(t, err)
	require.Len(t, first, 4)
	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].Index, first[i].Index, "equal distances must come back by ascending index")
	}

	for i := 0; i < 5; i++ {
		again, err := s.Search(ctx, []float32{1, 0}, 4, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func testSearchSkipsUnembeddedChunks(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, err := s.CreateDocument(ctx, "text", "fp")
	require.NoError(t, err)
	_, err = s.CreateChunks(ctx, docID, []string{"a", "b"})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func testSearchValidation(t *testing.T, s port.Store) {
	ctx := context.Background()
	seed(t, s, "doc", []float32{1, 0})

	_, err := s.Search(ctx, []float32{1, 0}, 0, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 3, "")
	assert.Error(t, err)
}

func testHasEmbeddings(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, err := s.CreateDocument(ctx, "text", "fp")
	require.NoError(t, err)

	has, err := s.HasEmbeddings(ctx, docID)
	require.NoError(t, err)
	assert.False(t, has)

	ids, err := s.CreateChunks(ctx, docID, []string{"a"})
	require.NoError(t, err)
	has, err = s.HasEmbeddings(ctx, docID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.StoreEmbeddings(ctx, docID, ids, [][]float32{{1, 0}}))
	has, err = s.HasEmbeddings(ctx, docID)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasEmbeddings(ctx, "no-such-document")
	require.NoError(t, err)
	assert.False(t, has)
}

func testUpdateCommits(t *testing.T, s port.Store) {
	ctx := context.Background()
	docID, err := s.CreateDocument(ctx, "text", "fp")
	require.NoError(t, err)

	err = s.Update(ctx, func(tx port.Writer) error {
		ids, err := tx.CreateChunks(ctx, docID, []string{"a", "b", "c"})
		if err != nil {
			return err
		}
		return tx.StoreEmbeddings(ctx, docID, ids, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 1, Chunks: 3, Embeddings: 3}, stats)
}

func testUpdateRollsBack(t *testing.T, s port.Store) {
	ctx := context.Background()
	boom := errors.New("embedder went away")

	err := s.Update(ctx, func(tx port.Writer) error {
		docID, err := tx.CreateDocument(ctx, "text", "fp")
		if err != nil {
			return err
		}
		ids, err := tx.CreateChunks(ctx, docID, []string{"a", "b"})
		if err != nil {
			return err
		}
		if err := tx.StoreEmbeddings(ctx, docID, ids[:1], [][]float32{{1, 0}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindDocumentByFingerprint(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, stats)

	// The fingerprint is free again after the rollback.
	_, err = s.CreateDocument(ctx, "text", "fp")
	assert.NoError(t, err)
}

func testEnsureProfile(t *testing.T, s port.Store) {
	ctx := context.Background()
	profile := domain.IndexProfile{Model: "m", Dimension: 2, Distance: "cosine"}

	require.NoError(t, s.EnsureProfile(ctx, profile))
	require.NoError(t, s.EnsureProfile(ctx, profile))

	changed := profile
	changed.Model = "other"
	assert.ErrorIs(t, s.EnsureProfile(ctx, changed), domain.ErrConflict)
}
