// Package memo caches translated chunks for the lifetime of a run so
// identical text is never sent to a provider twice.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type item struct {
	value     string
	expiresAt time.Time
}

// Cache is an in-memory TTL map keyed by content hash.
type Cache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]item
}

// New returns a cache whose entries live for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		items: make(map[string]item),
	}
}

// Key derives the cache key for a chunk of text and its target language.
func Key(text, lang string) string {
	h := sha256.Sum256([]byte(lang + "|" + text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached translation, if still fresh.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(it.expiresAt) {
		return "", false
	}
	return it.value, true
}

// Set stores a translation.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiresAt: time.Now().Add(c.ttl)}
}
