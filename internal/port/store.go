package port

import (
	"context"

	"docindex/internal/domain"
)

// Writer holds the mutating store operations. Each call on a Store is its
// own transaction; inside Store.Update all calls share one.
type Writer interface {
	// CreateDocument inserts a document and returns its new id. It fails with
	// domain.ErrConflict when the fingerprint is already taken.
	CreateDocument(ctx context.Context, text, fingerprint string) (string, error)

	// CreateChunks inserts texts as chunks of documentID with index equal to
	// position, returning the new chunk ids in the same order. An index that
	// already exists for the document fails with domain.ErrConflict.
	CreateChunks(ctx context.Context, documentID string, texts []string) ([]string, error)

	// StoreEmbeddings stores vectors[i] for chunkIDs[i]. Slices of different
	// lengths are a programming error and panic.
	StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error
}

// Reader holds the query side of the store.
type Reader interface {
	// FindDocumentByFingerprint returns the id of the document with the
	// given fingerprint or domain.ErrNotFound.
	FindDocumentByFingerprint(ctx context.Context, fingerprint string) (string, error)

	// GetDocument returns a document or domain.ErrNotFound.
	GetDocument(ctx context.Context, documentID string) (domain.Document, error)

	// Search ranks embedded chunks by ascending distance to query, ties by
	// chunk index, and returns at most topK. A non-empty documentID restricts
	// the search to that document.
	Search(ctx context.Context, query []float32, topK int, documentID string) ([]domain.SearchHit, error)

	// GetChunksInRange returns chunk texts with index in [from, to], ordered
	// by index. Bounds outside the document are clamped.
	GetChunksInRange(ctx context.Context, documentID string, from, to int) ([]string, error)

	// HasEmbeddings reports whether any chunk of the document has an
	// embedding.
	HasEmbeddings(ctx context.Context, documentID string) (bool, error)

	Stats(ctx context.Context) (domain.Stats, error)
}

// Store persists documents, chunks and embeddings.
type Store interface {
	Reader
	Writer

	// Update runs fn inside a single write transaction. The writes made
	// through tx are committed together when fn returns nil and discarded
	// otherwise.
	Update(ctx context.Context, fn func(tx Writer) error) error

	// EnsureProfile records profile on first use. A store already holding a
	// different profile fails with domain.ErrConflict.
	EnsureProfile(ctx context.Context, profile domain.IndexProfile) error

	Close() error
}
