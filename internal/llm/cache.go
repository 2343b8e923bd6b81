package llm

import (
	"sync"
	"time"
)

// cacheEntry represents a cached categorization result.
type cacheEntry struct {
	expiry   time.Time
	category string
}

// suggestionCache provides thread-safe caching of categories keyed by the
// transaction's description and merchant.
type suggestionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newSuggestionCache creates a new cache with the specified TTL.
func newSuggestionCache(ttl time.Duration) *suggestionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &suggestionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func cacheKey(tx TxSummary) string {
	return tx.Description + "|" + tx.MerchantName
}

// get retrieves a category from the cache if it exists and hasn't expired.
func (c *suggestionCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}
	if time.Now().After(entry.expiry) {
		return "", false
	}

	return entry.category, true
}

// set stores a category in the cache.
func (c *suggestionCache) set(key, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		category: category,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *suggestionCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// stop terminates the cleanup goroutine.
func (c *suggestionCache) stop() {
	close(c.stopCh)
}
