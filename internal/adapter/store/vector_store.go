package store

import (
	"sync"

	"go.etcd.io/bbolt"

	"docindex/internal/adapter/vector"
	"docindex/internal/domain"
)

// vectorIndex mirrors every committed embedding in memory so a search is a
// linear scan without decoding blobs. It is filled once at open and then
// extended from transaction commit hooks.
type vectorIndex struct {
	mu    sync.RWMutex
	docs  map[string][]indexedVector
	count int
}

type indexedVector struct {
	index  int
	vector []float32
}

func newVectorIndex() *vectorIndex {
	return &vectorIndex{docs: make(map[string][]indexedVector)}
}

func (v *vectorIndex) load(tx *bbolt.Tx) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	root := tx.Bucket(bucketEmbeddings)
	return root.ForEach(func(docID, val []byte) error {
		if val != nil {
			return nil
		}
		b := root.Bucket(docID)
		items := make([]indexedVector, 0, b.Stats().KeyN)
		err := b.ForEach(func(k, val []byte) error {
			vec, err := vector.Decode(val)
			if err != nil {
				return err
			}
			items = append(items, indexedVector{index: decodeIndex(k), vector: vec})
			return nil
		})
		if err != nil {
			return err
		}
		v.docs[string(docID)] = items
		v.count += len(items)
		return nil
	})
}

func (v *vectorIndex) add(documentID string, items []indexedVector) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs[documentID] = append(v.docs[documentID], items...)
	v.count += len(items)
}

func (v *vectorIndex) has(documentID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docs[documentID]) > 0
}

func (v *vectorIndex) len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

func (v *vectorIndex) search(query []float32, topK int, documentID string, distance vector.DistanceFunc) ([]vector.Candidate, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	top := vector.NewTopK(topK)
	scan := func(docID string, items []indexedVector) error {
		for _, item := range items {
			d, err := distance(query, item.vector)
			if err != nil {
				return domain.Invalid("%v", err)
			}
			top.Push(vector.Candidate{DocumentID: docID, Index: item.index, Distance: d})
		}
		return nil
	}

	if documentID != "" {
		if err := scan(documentID, v.docs[documentID]); err != nil {
			return nil, err
		}
		return top.Sorted(), nil
	}
	for docID, items := range v.docs {
		if err := scan(docID, items); err != nil {
			return nil, err
		}
	}
	return top.Sorted(), nil
}
