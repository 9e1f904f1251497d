package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"docindex/internal/adapter/vector"
	"docindex/internal/domain"
	"docindex/internal/port"
)

var (
	bucketMeta         = []byte("meta")
	bucketDocs         = []byte("documents")
	bucketFingerprints = []byte("fingerprints")
	bucketChunkRefs    = []byte("chunk_refs")
	bucketChunks       = []byte("chunks")     // nested per document, keyed by index
	bucketEmbeddings   = []byte("embeddings") // nested per document, keyed by index
)

// BoltStore is the default durable backend. bbolt allows one writer at a
// time, so fingerprint and chunk-index uniqueness is checked and written
// inside the same serialized transaction.
type BoltStore struct {
	db       *bbolt.DB
	distance vector.DistanceFunc
	vectors  *vectorIndex
}

var _ port.Store = (*BoltStore)(nil)

type docRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

type chunkRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type chunkRef struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
}

func NewBoltStore(path string, distance vector.DistanceFunc) (*BoltStore, error) {
	if distance == nil {
		distance = vector.CosineDistance
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMeta, bucketDocs, bucketFingerprints, bucketChunkRefs, bucketChunks, bucketEmbeddings} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, distance: distance, vectors: newVectorIndex()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.View(s.vectors.load); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Update(ctx context.Context, fn func(tx port.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&boltTx{tx: btx, vectors: s.vectors})
	})
}

func (s *BoltStore) CreateDocument(ctx context.Context, text, fingerprint string) (id string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		id, err = tx.CreateDocument(ctx, text, fingerprint)
		return err
	})
	return id, err
}

func (s *BoltStore) CreateChunks(ctx context.Context, documentID string, texts []string) (ids []string, err error) {
	err = s.Update(ctx, func(tx port.Writer) error {
		ids, err = tx.CreateChunks(ctx, documentID, texts)
		return err
	})
	return ids, err
}

func (s *BoltStore) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	return s.Update(ctx, func(tx port.Writer) error {
		return tx.StoreEmbeddings(ctx, documentID, chunkIDs, vectors)
	})
}

func (s *BoltStore) FindDocumentByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketFingerprints).Get([]byte(fingerprint))
		if v == nil {
			return fmt.Errorf("fingerprint %s: %w", fingerprint, domain.ErrNotFound)
		}
		id = string(v)
		return nil
	})
	return id, err
}

func (s *BoltStore) GetDocument(ctx context.Context, documentID string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(documentID))
		if data == nil {
			return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode document %s: %w", documentID, err)
		}
		doc = domain.Document{
			ID:          documentID,
			Fingerprint: rec.Fingerprint,
			Text:        rec.Text,
			CreatedAt:   rec.CreatedAt,
		}
		return nil
	})
	return doc, err
}

func (s *BoltStore) Search(ctx context.Context, query []float32, topK int, documentID string) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return nil, domain.Invalid("top_k must be positive, got %d", topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked, err := s.vectors.search(query, topK, documentID, s.distance)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(ranked))
	err = s.db.View(func(tx *bbolt.Tx) error {
		for _, c := range ranked {
			rec, err := getChunk(tx, c.DocumentID, c.Index)
			if err != nil {
				return err
			}
			hits = append(hits, domain.SearchHit{
				DocumentID: c.DocumentID,
				ChunkID:    rec.ID,
				Index:      c.Index,
				Text:       rec.Text,
				Distance:   c.Distance,
			})
		}
		return nil
	})
	return hits, err
}

func (s *BoltStore) GetChunksInRange(ctx context.Context, documentID string, from, to int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []string{}
	from = max(from, 0)
	if from > to {
		return out, nil
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks).Bucket([]byte(documentID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(indexKey(from)); k != nil && decodeIndex(k) <= to; k, v = c.Next() {
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode chunk %s/%d: %w", documentID, decodeIndex(k), err)
			}
			out = append(out, rec.Text)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) HasEmbeddings(ctx context.Context, documentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.vectors.has(documentID), nil
}

func (s *BoltStore) Stats(ctx context.Context) (domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return domain.Stats{}, err
	}
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.Documents = tx.Bucket(bucketDocs).Stats().KeyN
		stats.Chunks = tx.Bucket(bucketChunkRefs).Stats().KeyN
		return nil
	})
	stats.Embeddings = s.vectors.len()
	return stats, err
}

// boltTx is the port.Writer handed to Update callbacks.
type boltTx struct {
	tx      *bbolt.Tx
	vectors *vectorIndex
}

func (t *boltTx) CreateDocument(ctx context.Context, text, fingerprint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fps := t.tx.Bucket(bucketFingerprints)
	if fps.Get([]byte(fingerprint)) != nil {
		return "", fmt.Errorf("fingerprint %s already indexed: %w", fingerprint, domain.ErrConflict)
	}

	id := uuid.NewString()
	data, err := json.Marshal(docRecord{Fingerprint: fingerprint, Text: text, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := t.tx.Bucket(bucketDocs).Put([]byte(id), data); err != nil {
		return "", err
	}
	if err := fps.Put([]byte(fingerprint), []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

func (t *boltTx) CreateChunks(ctx context.Context, documentID string, texts []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.tx.Bucket(bucketDocs).Get([]byte(documentID)) == nil {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	b, err := t.tx.Bucket(bucketChunks).CreateBucketIfNotExists([]byte(documentID))
	if err != nil {
		return nil, err
	}
	refs := t.tx.Bucket(bucketChunkRefs)

	ids := make([]string, len(texts))
	for i, text := range texts {
		key := indexKey(i)
		if b.Get(key) != nil {
			return nil, fmt.Errorf("chunk %d of document %s already exists: %w", i, documentID, domain.ErrConflict)
		}
		ids[i] = uuid.NewString()
		data, err := json.Marshal(chunkRecord{ID: ids[i], Text: text})
		if err != nil {
			return nil, err
		}
		if err := b.Put(key, data); err != nil {
			return nil, err
		}
		ref, err := json.Marshal(chunkRef{DocumentID: documentID, Index: i})
		if err != nil {
			return nil, err
		}
		if err := refs.Put([]byte(ids[i]), ref); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (t *boltTx) StoreEmbeddings(ctx context.Context, documentID string, chunkIDs []string, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		panic("store: StoreEmbeddings called with misaligned chunk ids and vectors")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := t.tx.Bucket(bucketEmbeddings).CreateBucketIfNotExists([]byte(documentID))
	if err != nil {
		return err
	}
	refs := t.tx.Bucket(bucketChunkRefs)

	added := make([]indexedVector, 0, len(chunkIDs))
	for i, id := range chunkIDs {
		data := refs.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
		}
		var ref chunkRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return fmt.Errorf("decode chunk ref %s: %w", id, err)
		}
		if ref.DocumentID != documentID {
			return fmt.Errorf("chunk %s of document %s: %w", id, documentID, domain.ErrNotFound)
		}
		key := indexKey(ref.Index)
		if b.Get(key) != nil {
			return fmt.Errorf("chunk %s already embedded: %w", id, domain.ErrConflict)
		}
		if err := b.Put(key, vector.Encode(vectors[i])); err != nil {
			return err
		}
		added = append(added, indexedVector{index: ref.Index, vector: append([]float32(nil), vectors[i]...)})
	}

	t.tx.OnCommit(func() {
		t.vectors.add(documentID, added)
	})
	return nil
}

func getChunk(tx *bbolt.Tx, documentID string, index int) (chunkRecord, error) {
	var rec chunkRecord
	b := tx.Bucket(bucketChunks).Bucket([]byte(documentID))
	if b == nil {
		return rec, fmt.Errorf("chunks of document %s: %w", documentID, domain.ErrNotFound)
	}
	data := b.Get(indexKey(index))
	if data == nil {
		return rec, fmt.Errorf("chunk %d of document %s: %w", index, documentID, domain.ErrNotFound)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode chunk %s/%d: %w", documentID, index, err)
	}
	return rec, nil
}

// indexKey encodes a chunk index big-endian so cursor order is index order.
func indexKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}

func decodeIndex(k []byte) int {
	return int(binary.BigEndian.Uint64(k))
}
