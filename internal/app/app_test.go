package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/config"
	"docindex/internal/adapter/memstore"
	"docindex/internal/adapter/sqlstore"
	"docindex/internal/adapter/store"
	"docindex/internal/domain"
)

func TestOpenStore_Drivers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	st, err := OpenStore(cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &store.BoltStore{}, st)
	require.NoError(t, st.Close())
	assert.FileExists(t, filepath.Join(dir, config.DataDir, "index.db"))

	cfg.Store.Driver = "sqlite"
	st, err = OpenStore(cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, st)
	require.NoError(t, st.Close())

	cfg.Store.Driver = "memory"
	st, err = OpenStore(cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &memstore.MemoryStore{}, st)

	cfg.Store.Driver = "mongo"
	_, err = OpenStore(cfg, dir)
	assert.Error(t, err)

	cfg.Store.Driver = "memory"
	cfg.Store.Distance = "manhattan"
	_, err = OpenStore(cfg, dir)
	assert.Error(t, err)
}

func TestOpen_StampsAndChecksProfile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	a, err := Open(ctx, cfg, dir, "test", io.Discard)
	require.NoError(t, err)
	res, err := a.Engine.Ingest(ctx, domain.IngestRequest{Text: "The sky is blue and beautiful.", ChunkSize: 100})
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NoError(t, a.Close(ctx))

	a, err = Open(ctx, cfg, dir, "test", io.Discard)
	require.NoError(t, err)
	stats, err := a.Engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	require.NoError(t, a.Close(ctx))

	cfg.Store.Distance = "l2"
	_, err = Open(ctx, cfg, dir, "test", io.Discard)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOpen_BadLogLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "chatty"
	_, err := Open(context.Background(), cfg, t.TempDir(), "test", io.Discard)
	assert.Error(t, err)
}
