package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// RetrieveUseCase answers nearest-neighbour queries.
type RetrieveUseCase struct {
	store    port.Reader
	embedder port.Embedder
	expander *ContextExpander
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewRetrieveUseCase(store port.Reader, embedder port.Embedder, logger *slog.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		store:    store,
		embedder: embedder,
		expander: NewContextExpander(store),
		logger:   logger,
		tracer:   otel.Tracer("docindex/retrieve"),
	}
}

// Query embeds req.Query and returns up to req.TopK results by ascending
// distance. An unknown req.DocumentID yields no results, or
// domain.ErrNotFound when req.RequireDocument is set.
func (u *RetrieveUseCase) Query(ctx context.Context, req domain.QueryRequest) ([]domain.Result, error) {
	ctx, span := u.tracer.Start(ctx, "query")
	defer span.End()
	span.SetAttributes(
		attribute.Int("query.top_k", req.TopK),
		attribute.Int("query.neighbor_window", req.NeighborWindow),
		attribute.String("query.document_id", req.DocumentID),
	)

	results, err := u.query(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("query.results", len(results)))
	return results, nil
}

func (u *RetrieveUseCase) query(ctx context.Context, req domain.QueryRequest) ([]domain.Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.Invalid("query must not be empty")
	}
	if req.TopK <= 0 {
		return nil, domain.Invalid("top_k must be positive, got %d", req.TopK)
	}
	if req.NeighborWindow < 0 {
		return nil, domain.Invalid("neighbor_window must not be negative, got %d", req.NeighborWindow)
	}

	if req.DocumentID != "" {
		_, err := u.store.GetDocument(ctx, req.DocumentID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if req.RequireDocument {
				return nil, err
			}
			u.logger.Debug("query scoped to unknown document", "document_id", req.DocumentID)
			return []domain.Result{}, nil
		case err != nil:
			return nil, domain.Dependency("get document", err)
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, domain.Dependency("embed query", err)
	}
	if err := checkVectors(vectors, 1, u.embedder.Dimension()); err != nil {
		return nil, domain.Dependency("embed query", err)
	}

	hits, err := u.store.Search(ctx, vectors[0], req.TopK, req.DocumentID)
	if err != nil {
		return nil, domain.Dependency("search", err)
	}

	results, err := u.expander.Expand(ctx, hits, req.NeighborWindow)
	if err != nil {
		return nil, err
	}
	u.logger.Debug("query answered", "hits", len(results), "top_k", req.TopK)
	return results, nil
}
