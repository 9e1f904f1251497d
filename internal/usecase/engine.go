package usecase

import (
	"context"
	"log/slog"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// Engine is the retrieval engine: ingestion and query over one store and
// one embedder. It holds no mutable state of its own and is safe for
// concurrent use.
type Engine struct {
	ingest   *IngestUseCase
	retrieve *RetrieveUseCase
	store    port.Store
	embedder port.Embedder
}

func NewEngine(
	store port.Store,
	embedder port.Embedder,
	chunker port.Chunker,
	hasher port.Hasher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		ingest:   NewIngestUseCase(store, embedder, chunker, hasher, logger),
		retrieve: NewRetrieveUseCase(store, embedder, logger),
		store:    store,
		embedder: embedder,
	}
}

func (e *Engine) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	return e.ingest.Ingest(ctx, req)
}

func (e *Engine) Query(ctx context.Context, req domain.QueryRequest) ([]domain.Result, error) {
	return e.retrieve.Query(ctx, req)
}

func (e *Engine) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return domain.Stats{}, domain.Dependency("stats", err)
	}
	return stats, nil
}

// Profile describes the vectors this engine produces under the given
// distance.
func (e *Engine) Profile(distance string) domain.IndexProfile {
	return domain.IndexProfile{
		Model:     e.embedder.ModelName(),
		Dimension: e.embedder.Dimension(),
		Distance:  distance,
	}
}

// CheckIndex stamps a fresh store with the engine's profile, or fails with
// domain.ErrConflict if the store was built by a different embedder.
func (e *Engine) CheckIndex(ctx context.Context, distance string) error {
	return e.store.EnsureProfile(ctx, e.Profile(distance))
}
