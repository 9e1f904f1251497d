package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/adapter/store/storetest"
	"docindex/internal/domain"
	"docindex/internal/port"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		s, err := Open(filepath.Join(t.TempDir(), "index.sqlite"), nil)
		require.NoError(t, err)
		return s
	})
}

func TestMigrationsAreRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")

	s, err := Open(path, nil)
	require.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
	require.NoError(t, s.Close())

	// Reopening must not re-run migrations.
	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	var applied int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestForeignKeysEnabled(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.sqlite"), nil)
	require.NoError(t, err)
	defer s.Close()

	var enabled int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.sqlite")

	s, err := Open(path, nil)
	require.NoError(t, err)
	docID, err := s.CreateDocument(ctx, "persisted text", "fp")
	require.NoError(t, err)
	ids, err := s.CreateChunks(ctx, docID, []string{"first", "second"})
	require.NoError(t, err)
	require.NoError(t, s.StoreEmbeddings(ctx, docID, ids, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "persisted text", doc.Text)

	hits, err := s.Search(ctx, []float32{0, 1}, 1, docID)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Text)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 1, Chunks: 2, Embeddings: 2}, stats)
}
