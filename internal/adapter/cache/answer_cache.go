package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Key identifies an answer: the same normalized question against the same
// index build with the same k always maps to the same key.
func Key(normalizedQuestion string, k int, modelVersion string, builtAt time.Time) string {
	h := sha256.New()
	h.Write([]byte(normalizedQuestion))
	h.Write([]byte{0})
	h.Write([]byte(modelVersion))
	h.Write([]byte{0})

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(k))
	binary.BigEndian.PutUint64(buf[8:], uint64(builtAt.UnixNano()))
	h.Write(buf[:])

	return hex.EncodeToString(h.Sum(nil)[:16])
}

// MemoryCache is an in-process LRU with a TTL. Invalidate bumps a generation
// so entries stored before an index swap are never served after it.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time
}

type cacheEntry struct {
	answer    domain.Answer
	timestamp time.Time
	gen       uint64
}

func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.Answer, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.gen
	c.mu.RUnlock()

	if !exists {
		return domain.Answer{}, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.gen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return domain.Answer{}, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return cloneAnswer(entry.answer), true
}

func (c *MemoryCache) Put(_ context.Context, key string, answer domain.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{
		answer:    cloneAnswer(answer),
		timestamp: c.now(),
		gen:       c.gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *MemoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *MemoryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func cloneAnswer(a domain.Answer) domain.Answer {
	if a.Citations != nil {
		a.Citations = append([]int(nil), a.Citations...)
	}
	return a
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (domain.Answer, bool) { return domain.Answer{}, false }

func (NopCache) Put(context.Context, string, domain.Answer) {}

func (NopCache) Invalidate(context.Context) {}
