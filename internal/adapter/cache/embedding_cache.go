package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"docindex/internal/port"
)

// EmbeddingCache is an LRU of vectors with a TTL, keyed by model and text.
type EmbeddingCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	key      string
	vector   []float32
	storedAt time.Time
}

func NewEmbeddingCache(maxSize int, ttl time.Duration) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EmbeddingCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(model, text)
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.vector, true
}

func (c *EmbeddingCache) Put(model, text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(model, text)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.vector = vector
		entry.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vector: vector, storedAt: c.now()})
}

func (c *EmbeddingCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CachedEmbedder serves repeated texts from an EmbeddingCache and forwards
// only the misses, in one batch, to the wrapped embedder.
type CachedEmbedder struct {
	next  port.Embedder
	cache *EmbeddingCache
}

func NewCachedEmbedder(next port.Embedder, cache *EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.next.ModelName()
	out := make([][]float32, len(texts))
	var missTexts []string
	var missPos []int
	for i, text := range texts {
		if v, ok := e.cache.Get(model, text); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missPos = append(missPos, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := e.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}
	for j, v := range vectors {
		out[missPos[j]] = v
		e.cache.Put(model, missTexts[j], v)
	}
	return out, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.next.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.next.ModelName()
}
