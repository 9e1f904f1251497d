package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docindex/internal/adapter/fs"
	"docindex/internal/app"
	"docindex/internal/domain"
	"docindex/internal/port"
	"docindex/internal/usecase"
)

var (
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestJSON         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path|-]",
	Short: "Ingest text into the index",
	Long: `Ingest a file, every matching file under a directory, or stdin ("-").
Each file becomes one document. Text that is already indexed is skipped.

Examples:
  docindex ingest .                       # Ingest the project directory
  docindex ingest report.md --chunk-size 200
  cat notes.txt | docindex ingest -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "maximum chunk length in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "characters of trailing words repeated in the next chunk (default from config)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	chunkSize := cfg.Index.ChunkSize
	if cmd.Flags().Changed("chunk-size") {
		chunkSize = ingestChunkSize
	}
	overlap := cfg.Index.ChunkOverlap
	if cmd.Flags().Changed("chunk-overlap") {
		overlap = ingestChunkOverlap
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if len(args) == 1 && args[0] == "-" {
		return ingestStdin(cmd, a, chunkSize, overlap)
	}

	path := GetRootDir()
	if len(args) > 0 {
		path = args[0]
	}

	walker := fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes, cfg.Index.MaxFileBytes)
	indexUC := usecase.NewIndexUseCase(a.Engine, walker, a.Logger)

	files, tooLarge, err := indexUC.Files(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No matching files under %s\n", path)
		return nil
	}

	if !ingestJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Ingesting %d files from %s...\n", len(files), path)
	}
	bar := newProgressBar(len(files))
	start := time.Now()
	processed := 0

	result, err := indexUC.Index(ctx, files, chunkSize, overlap, func(port.FileInfo) {
		processed++
		_ = bar.Set(processed)
		if rate := float64(processed) / time.Since(start).Seconds(); rate > 0 {
			eta := time.Duration(float64(len(files)-processed)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
		}
	})
	if err != nil {
		return fmt.Errorf("ingestion interrupted: %w", err)
	}

	out := cmd.OutOrStdout()
	if ingestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "\nIngestion complete:\n")
	fmt.Fprintf(out, "  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Fprintf(out, "  Files skipped:  %d (already indexed)\n", result.FilesSkipped)
	fmt.Fprintf(out, "  Chunks created: %d\n", result.ChunksCreated)

	if len(tooLarge) > 0 || len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, p := range tooLarge {
			fmt.Fprintf(out, "  - %s: larger than %d bytes, skipped\n", p, cfg.Index.MaxFileBytes)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}

	fmt.Fprintf(out, "\nIndex stored at: %s\n", cfg.StorePath(GetRootDir()))
	return nil
}

func ingestStdin(cmd *cobra.Command, a *app.App, chunkSize, overlap int) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("stdin is not valid UTF-8 text")
	}

	res, err := a.Engine.Ingest(cmd.Context(), domain.IngestRequest{
		Text:         string(data),
		ChunkSize:    chunkSize,
		ChunkOverlap: overlap,
	})
	if err != nil {
		return err
	}

	if ingestJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Created {
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed document %s (%d chunks)\n", res.DocumentID, res.NumChunks)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Already indexed as document %s\n", res.DocumentID)
	}
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
