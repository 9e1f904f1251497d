package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"docindex/internal/adapter/store/storetest"
	"docindex/internal/domain"
	"docindex/internal/port"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"), nil)
		require.NoError(t, err)
		return s
	})
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path, nil)
	require.NoError(t, err)
	docID, err := s.CreateDocument(ctx, "persisted text", "fp")
	require.NoError(t, err)
	ids, err := s.CreateChunks(ctx, docID, []string{"first", "second"})
	require.NoError(t, err)
	require.NoError(t, s.StoreEmbeddings(ctx, docID, ids, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, s.EnsureProfile(ctx, domain.IndexProfile{Model: "m", Dimension: 2, Distance: "cosine"}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	found, err := s.FindDocumentByFingerprint(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, docID, found)

	hits, err := s.Search(ctx, []float32{0, 1}, 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Text)
	assert.Equal(t, ids[1], hits[0].ChunkID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 1, Chunks: 2, Embeddings: 2}, stats)

	err = s.EnsureProfile(ctx, domain.IndexProfile{Model: "m", Dimension: 3, Distance: "cosine"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestBoltStore_SchemaStamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path, nil)
	require.NoError(t, err)
	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
	assert.Nil(t, info.Profile)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte("99"))
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = NewBoltStore(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer version")
}
