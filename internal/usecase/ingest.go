package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// IngestUseCase turns text into a stored, embedded document exactly once
// per distinct text.
type IngestUseCase struct {
	store    port.Store
	embedder port.Embedder
	chunker  port.Chunker
	hasher   port.Hasher
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewIngestUseCase(
	store port.Store,
	embedder port.Embedder,
	chunker port.Chunker,
	hasher port.Hasher,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		hasher:   hasher,
		logger:   logger,
		tracer:   otel.Tracer("docindex/ingest"),
	}
}

// Ingest stores req.Text unless a document with the same fingerprint
// already exists, in which case that document's id is returned with
// Created false and no new chunks.
//
// The chunk texts are embedded before anything is written, and the
// document, its chunks and their embeddings are committed in one store
// transaction. A cancelled or failed ingestion therefore leaves nothing
// behind.
func (u *IngestUseCase) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	ctx, span := u.tracer.Start(ctx, "ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int("ingest.chunk_size", req.ChunkSize),
		attribute.Int("ingest.chunk_overlap", req.ChunkOverlap),
		attribute.Int("ingest.text_length", len(req.Text)),
	)

	res, err := u.ingest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.IngestResult{}, err
	}
	span.SetAttributes(
		attribute.String("document.id", res.DocumentID),
		attribute.Int("ingest.chunks_created", res.NumChunks),
		attribute.Bool("ingest.created", res.Created),
	)
	return res, nil
}

func (u *IngestUseCase) ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	if req.ChunkSize <= 0 {
		return domain.IngestResult{}, domain.Invalid("chunk_size must be positive, got %d", req.ChunkSize)
	}
	if req.ChunkOverlap < 0 {
		return domain.IngestResult{}, domain.Invalid("chunk_overlap must not be negative, got %d", req.ChunkOverlap)
	}

	fingerprint, err := u.hasher.Fingerprint(req.Text)
	if err != nil {
		return domain.IngestResult{}, err
	}

	existing, err := u.store.FindDocumentByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		return u.resume(ctx, existing, req)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.IngestResult{}, domain.Dependency("find document by fingerprint", err)
	}

	chunks, vectors, err := u.prepare(ctx, req)
	if err != nil {
		return domain.IngestResult{}, err
	}

	var documentID string
	err = u.store.Update(ctx, func(tx port.Writer) error {
		id, err := tx.CreateDocument(ctx, req.Text, fingerprint)
		if err != nil {
			return err
		}
		documentID = id
		return persistChunks(ctx, tx, id, chunks, vectors)
	})
	if errors.Is(err, domain.ErrConflict) {
		// Another ingestion of the same text committed first.
		id, lookupErr := u.store.FindDocumentByFingerprint(ctx, fingerprint)
		if lookupErr != nil {
			return domain.IngestResult{}, fmt.Errorf("%w: re-resolve fingerprint after conflict: %w", domain.ErrDependency, lookupErr)
		}
		u.logger.Warn("concurrent ingestion of identical text, using existing document", "document_id", id)
		return domain.IngestResult{DocumentID: id}, nil
	}
	if err != nil {
		return domain.IngestResult{}, domain.Dependency("persist document", err)
	}

	u.logger.Info("document indexed", "document_id", documentID, "chunks", len(chunks))
	return domain.IngestResult{DocumentID: documentID, NumChunks: len(chunks), Created: true}, nil
}

// resume handles a fingerprint that is already stored. A document without
// embeddings was written by an ingestion that never completed, so its
// chunks are produced now under the same id.
func (u *IngestUseCase) resume(ctx context.Context, documentID string, req domain.IngestRequest) (domain.IngestResult, error) {
	done := domain.IngestResult{DocumentID: documentID}

	has, err := u.store.HasEmbeddings(ctx, documentID)
	if err != nil {
		return domain.IngestResult{}, domain.Dependency("check embeddings", err)
	}
	if has {
		u.logger.Debug("text already indexed", "document_id", documentID)
		return done, nil
	}

	chunks, vectors, err := u.prepare(ctx, req)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if len(chunks) == 0 {
		return done, nil
	}

	err = u.store.Update(ctx, func(tx port.Writer) error {
		return persistChunks(ctx, tx, documentID, chunks, vectors)
	})
	if errors.Is(err, domain.ErrConflict) {
		u.logger.Warn("document chunks already written by another ingestion", "document_id", documentID)
		return done, nil
	}
	if err != nil {
		return domain.IngestResult{}, domain.Dependency("persist chunks", err)
	}

	u.logger.Info("resumed incomplete document", "document_id", documentID, "chunks", len(chunks))
	done.NumChunks = len(chunks)
	return done, nil
}

// prepare splits the text and embeds all chunks in one batch.
func (u *IngestUseCase) prepare(ctx context.Context, req domain.IngestRequest) ([]string, [][]float32, error) {
	chunks, err := u.chunker.Split(req.Text, req.ChunkSize, req.ChunkOverlap)
	if err != nil {
		return nil, nil, err
	}
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	vectors, err := u.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, nil, domain.Dependency("embed chunks", err)
	}
	if err := checkVectors(vectors, len(chunks), u.embedder.Dimension()); err != nil {
		return nil, nil, domain.Dependency("embed chunks", err)
	}
	return chunks, vectors, nil
}

func persistChunks(ctx context.Context, tx port.Writer, documentID string, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	ids, err := tx.CreateChunks(ctx, documentID, chunks)
	if err != nil {
		return err
	}
	return tx.StoreEmbeddings(ctx, documentID, ids, vectors)
}

// checkVectors enforces the embedder contract: one vector per input, all of
// the advertised dimension.
func checkVectors(vectors [][]float32, want, dimension int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if dimension > 0 && len(v) != dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dimension)
		}
	}
	return nil
}
