package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docindex/internal/adapter/fs"
	"docindex/internal/domain"
	"docindex/internal/port"
)

// Ingester is the part of Engine used for bulk ingestion.
type Ingester interface {
	Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error)
}

// IndexUseCase ingests every matching file under a path, one document per
// file.
type IndexUseCase struct {
	engine Ingester
	walker port.FileWalker
	logger *slog.Logger
}

func NewIndexUseCase(engine Ingester, walker port.FileWalker, logger *slog.Logger) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{engine: engine, walker: walker, logger: logger}
}

// IndexResult summarizes a bulk ingestion. Per-file failures are collected
// in Errors and do not stop the run.
type IndexResult struct {
	FilesIndexed  int      `json:"files_indexed"`
	FilesSkipped  int      `json:"files_skipped"`
	ChunksCreated int      `json:"chunks_created"`
	Errors        []string `json:"errors,omitempty"`
}

// Files lists what Index would ingest under root.
func (u *IndexUseCase) Files(root string) ([]port.FileInfo, []string, error) {
	files, tooLarge, err := u.walker.Walk(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, tooLarge, nil
}

// Index ingests files with the given chunking parameters. onFile, if set,
// is called after each file. FilesSkipped counts files whose text was
// already indexed.
func (u *IndexUseCase) Index(ctx context.Context, files []port.FileInfo, chunkSize, overlap int, onFile func(port.FileInfo)) (*IndexResult, error) {
	result := &IndexResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := u.indexFile(ctx, file, chunkSize, overlap)
		switch {
		case err != nil:
			u.logger.Warn("failed to index file", "path", file.Path, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
		case res.Created:
			result.FilesIndexed++
			result.ChunksCreated += res.NumChunks
		default:
			result.FilesSkipped++
			result.ChunksCreated += res.NumChunks
		}
		if onFile != nil {
			onFile(file)
		}
	}
	return result, nil
}

func (u *IndexUseCase) indexFile(ctx context.Context, file port.FileInfo, chunkSize, overlap int) (domain.IngestResult, error) {
	text, err := fs.ReadText(file.Path)
	if err != nil {
		return domain.IngestResult{}, err
	}
	return u.engine.Ingest(ctx, domain.IngestRequest{
		Text:         text,
		ChunkSize:    chunkSize,
		ChunkOverlap: overlap,
	})
}
