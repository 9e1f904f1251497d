package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docindex/internal/adapter/vector"
	"docindex/internal/domain"
	"docindex/internal/port"
)

// MemoryStore keeps everything in process memory. Writes are serialized by
// a single lock, and Update rolls back through an undo log when fn fails.
type MemoryStore struct {
	mu            sync.RWMutex
	distance      vector.DistanceFunc
	docs          map[string]domain.Document
	byFingerprint map[string]string
	chunks        map[string][]domain.Chunk // by document id, position == index
	chunkDoc      map[string]string         // chunk id -> document id
	embeddings    map[string][]float32      // by chunk id
	profile       *domain.IndexProfile
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore(distance vector.DistanceFunc) *MemoryStore {
	if distance == nil {
		distance = vector.CosineDistance
	}
	return &MemoryStore{
		distance:      distance,
		docs:          make(map[string]domain.Document),
		byFingerprint: make(map[string]string),
		chunks:        make(map[string][]domain.Chunk),
		chunkDoc:      make(map[string]string),
		embeddings:    make(map[string][]float32),
	}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx port.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, text, fingerprint string) (id string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		id, err = tx.CreateDocument(ctx, text, fingerprint)
		return err
	})
	return id, err
}

func (s *MemoryStore) CreateChunks(ctx context.Context, documentID string, texts []string) (ids []string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		ids, err = tx.CreateChunks(ctx, documentID, texts)
		return err
	})
	return ids, err
}

func (s *MemoryStore) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	return s.Update(ctx, func(tx port.Writer) error {
		return tx.StoreEmbeddings(ctx, documentID, chunkIDs, vectors)
	})
}

func (s *MemoryStore) FindDocumentByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFingerprint[fingerprint]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, documentID string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, topK int, documentID string) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return nil, domain.Invalid("top_k must be positive, got %d", topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := s.chunks
	if documentID != "" {
		scope = map[string][]domain.Chunk{documentID: s.chunks[documentID]}
	}

	top := vector.NewTopK(topK)
	for docID, chunks := range scope {
		for _, c := range chunks {
			vec, ok := s.embeddings[c.ID]
			if !ok {
				continue
			}
			d, err := s.distance(query, vec)
			if err != nil {
				return nil, domain.Invalid("%v", err)
			}
			top.Push(vector.Candidate{DocumentID: docID, Index: c.Index, Distance: d})
		}
	}

	ranked := top.Sorted()
	hits := make([]domain.SearchHit, len(ranked))
	for i, c := range ranked {
		chunk := s.chunks[c.DocumentID][c.Index]
		hits[i] = domain.SearchHit{
			DocumentID: c.DocumentID,
			ChunkID:    chunk.ID,
			Index:      c.Index,
			Text:       chunk.Text,
			Distance:   c.Distance,
		}
	}
	return hits, nil
}

func (s *MemoryStore) GetChunksInRange(ctx context.Context, documentID string, from, to int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.chunks[documentID]
	from = max(from, 0)
	to = min(to, len(chunks)-1)
	if from > to {
		return []string{}, nil
	}
	out := make([]string, 0, to-from+1)
	for _, c := range chunks[from : to+1] {
		out = append(out, c.Text)
	}
	return out, nil
}

func (s *MemoryStore) HasEmbeddings(ctx context.Context, documentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chunks[documentID] {
		if _, ok := s.embeddings[c.ID]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return domain.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Stats{
		Documents:  len(s.docs),
		Chunks:     len(s.chunkDoc),
		Embeddings: len(s.embeddings),
	}, nil
}

func (s *MemoryStore) EnsureProfile(ctx context.Context, profile domain.IndexProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		s.profile = &profile
		return nil
	}
	return s.profile.Compatible(profile)
}

func (s *MemoryStore) Close() error {
	return nil
}

// memTx applies writes directly and remembers how to undo them. It is only
// used while the store's write lock is held.
type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) CreateDocument(ctx context.Context, text, fingerprint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := tx.s
	if _, taken := s.byFingerprint[fingerprint]; taken {
		return "", fmt.Errorf("fingerprint %s already indexed: %w", fingerprint, domain.ErrConflict)
	}

	id := uuid.NewString()
	s.docs[id] = domain.Document{ID: id, Fingerprint: fingerprint, Text: text, CreatedAt: time.Now().UTC()}
	s.byFingerprint[fingerprint] = id
	tx.undo = append(tx.undo, func() {
		delete(s.docs, id)
		delete(s.byFingerprint, fingerprint)
	})
	return id, nil
}

func (tx *memTx) CreateChunks(ctx context.Context, documentID string, texts []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := tx.s
	if _, ok := s.docs[documentID]; !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if len(texts) == 0 {
		return []string{}, nil
	}
	if len(s.chunks[documentID]) > 0 {
		return nil, fmt.Errorf("document %s already has chunks: %w", documentID, domain.ErrConflict)
	}

	chunks := make([]domain.Chunk, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = uuid.NewString()
		chunks[i] = domain.Chunk{ID: ids[i], DocumentID: documentID, Index: i, Text: text}
		s.chunkDoc[ids[i]] = documentID
	}
	s.chunks[documentID] = chunks
	tx.undo = append(tx.undo, func() {
		delete(s.chunks, documentID)
		for _, id := range ids {
			delete(s.chunkDoc, id)
		}
	})
	return ids, nil
}

func (tx *memTx) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		panic("memstore: StoreEmbeddings called with misaligned chunk ids and vectors")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s := tx.s
	for _, id := range chunkIDs {
		if s.chunkDoc[id] != documentID {
			return fmt.Errorf("chunk %s of document %s: %w", id, documentID, domain.ErrNotFound)
		}
		if _, exists := s.embeddings[id]; exists {
			return fmt.Errorf("chunk %s already embedded: %w", id, domain.ErrConflict)
		}
	}

	for i, id := range chunkIDs {
		s.embeddings[id] = append([]float32(nil), vectors[i]...)
	}
	tx.undo = append(tx.undo, func() {
		for _, id := range chunkIDs {
			delete(s.embeddings, id)
		}
	})
	return nil
}
