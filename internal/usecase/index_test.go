package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/adapter/fs"
	"docindex/internal/adapter/memstore"
	"docindex/internal/domain"
	"docindex/internal/port"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexUseCase_IndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "w00 w01 w02")
	writeFile(t, dir, "b.md", "w03 w04")
	writeFile(t, dir, "copy/a.txt", "w00 w01 w02")
	writeFile(t, dir, "binary.txt", "\xff\xfe")
	writeFile(t, dir, "skip.go", "package main")

	ctx := context.Background()
	store := memstore.NewMemoryStore(nil)
	engine := newTestEngine(store, wordEmbedder(5))
	walker := fs.NewWalker([]string{"**/*.txt", "**/*.md"}, nil, 0)
	uc := NewIndexUseCase(engine, walker, nil)

	files, tooLarge, err := uc.Files(dir)
	require.NoError(t, err)
	assert.Empty(t, tooLarge)
	require.Len(t, files, 4)

	var seen []string
	result, err := uc.Index(ctx, files, 3, 0, func(f port.FileInfo) {
		seen = append(seen, filepath.Base(f.Path))
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesIndexed)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Equal(t, 5, result.ChunksCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "binary.txt")
	assert.Len(t, seen, 4)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 2, Chunks: 5, Embeddings: 5}, stats)
}

func TestIndexUseCase_InvalidChunkingReportedPerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "w00")

	uc := NewIndexUseCase(newTestEngine(memstore.NewMemoryStore(nil), wordEmbedder(1)), fs.NewWalker(nil, nil, 0), nil)
	files, _, err := uc.Files(dir)
	require.NoError(t, err)

	result, err := uc.Index(context.Background(), files, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesIndexed)
	require.Len(t, result.Errors, 1)
}

func TestIndexUseCase_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "w00")

	uc := NewIndexUseCase(newTestEngine(memstore.NewMemoryStore(nil), wordEmbedder(1)), fs.NewWalker(nil, nil, 0), nil)
	files, _, err := uc.Files(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = uc.Index(ctx, files, 10, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexUseCase_MissingRoot(t *testing.T) {
	uc := NewIndexUseCase(newTestEngine(memstore.NewMemoryStore(nil), wordEmbedder(1)), fs.NewWalker(nil, nil, 0), nil)
	_, _, err := uc.Files(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
