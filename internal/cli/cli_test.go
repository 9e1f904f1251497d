package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/domain"
)

// resetFlags restores every flag to its default so runs do not leak state
// through the package-level command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg, rootDir = nil, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestStdinThenQuery(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "The sky is blue and beautiful.", "--dir", dir, "ingest", "-", "--json")
	require.NoError(t, err, out)
	var first domain.IngestResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.True(t, first.Created)
	assert.Equal(t, 1, first.NumChunks)

	out, err = run(t, "The sky is blue and beautiful.", "--dir", dir, "ingest", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Already indexed as document "+first.DocumentID)

	out, err = run(t, "", "--dir", dir, "query", "blue", "sky", "--json")
	require.NoError(t, err, out)
	var results []domain.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, first.DocumentID, results[0].DocumentID)

	out, err = run(t, "", "--dir", dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  1")
	assert.Contains(t, out, "feature-hash-v1-384")

	assert.FileExists(t, filepath.Join(dir, ".docindex", "index.db"))
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("alpha beta gamma delta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.md"), []byte("eta theta iota kappa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "c.go"), []byte("package c"), 0o644))

	out, err := run(t, "", "--dir", dir, "ingest", docs, "--chunk-size", "11", "--chunk-overlap", "0")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Files indexed:  2")
	assert.Contains(t, out, "Chunks created: 4")

	out, err = run(t, "", "--dir", dir, "query", "-q", "gamma", "-k", "1", "--window", "1", "--json")
	require.NoError(t, err, out)
	var windows []string
	require.NoError(t, json.Unmarshal([]byte(out), &windows))
	assert.Equal(t, []string{"alpha beta gamma delta"}, windows)
}

func TestSQLiteDriverFromConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte("store:\n  driver: sqlite\n"), 0o644))

	out, err := run(t, "I love green eggs, ham, sausages and bacon!", "--dir", dir, "ingest", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed document")
	assert.FileExists(t, filepath.Join(dir, ".docindex", "index.sqlite"))

	out, err = run(t, "", "--dir", dir, "stats", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"driver": "sqlite"`)
}

func TestIncompatibleEmbedderRefused(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "some text", "--dir", dir, "ingest", "-")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte("embedding:\n  dimension: 128\n"), 0o644))
	_, err = run(t, "", "--dir", dir, "query", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestQueryRequiresText(t *testing.T) {
	_, err := run(t, "", "--dir", t.TempDir(), "query")
	assert.ErrorContains(t, err, "a query is required")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1s", formatDuration(0))
	assert.Equal(t, "42s", formatDuration(42e9))
	assert.Equal(t, "2m5s", formatDuration(125e9))
	assert.Equal(t, "1h1m", formatDuration(3660e9))
}
