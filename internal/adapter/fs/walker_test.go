package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/port"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func relPaths(t *testing.T, root string, files []port.FileInfo) []string {
	t.Helper()
	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(absRoot, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestWalker_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "notes/b.md", "beta")
	writeFile(t, root, "notes/c.go", "package c")
	writeFile(t, root, "node_modules/d.txt", "ignored")
	writeFile(t, root, ".docindex/e.txt", "ignored")

	w := NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"**/node_modules/**", "**/.docindex/**"}, 0)
	files, skipped, err := w.Walk(root)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"a.txt", "notes/b.md"}, relPaths(t, root, files))
}

func TestWalker_MaxBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "ok")
	writeFile(t, root, "big.txt", "this file is too large")

	w := NewWalker(nil, nil, 5)
	files, skipped, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, relPaths(t, root, files))
	require.Len(t, skipped, 1)
	assert.Equal(t, "big.txt", filepath.Base(skipped[0]))
}

func TestWalker_SingleFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "only.bin", "data")

	w := NewWalker([]string{"**/*.txt"}, nil, 0)
	files, _, err := w.Walk(filepath.Join(root, "only.bin"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestWalker_MissingRoot(t *testing.T) {
	_, _, err := NewWalker(nil, nil, 0).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "héllo")
	text, err := ReadText(filepath.Join(root, "ok.txt"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)

	bad := filepath.Join(root, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 0x00}, 0644))
	_, err = ReadText(bad)
	assert.Error(t, err)
}
