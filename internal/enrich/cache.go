package enrich

import (
	"strings"
	"sync"
	"time"
)

// Cache stores lookup results with a TTL. Negative results (nil intros) are
// cached too, so a speaker with no search hits is not retried within the
// same crawl cycle.
type Cache struct {
	mu       sync.Mutex
	intros   map[string]*Intro
	cachedAt map[string]time.Time
	ttl      time.Duration
}

// NewCache creates a cache with the default 6-hour TTL.
func NewCache() *Cache {
	return &Cache{
		intros:   make(map[string]*Intro),
		cachedAt: make(map[string]time.Time),
		ttl:      6 * time.Hour,
	}
}

// Get retrieves a cached result if not expired. The second return reports
// whether an entry (possibly a cached miss) exists.
func (c *Cache) Get(speaker, topic string) (*Intro, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(speaker, topic)
	cachedTime, ok := c.cachedAt[key]
	if !ok {
		return nil, false
	}
	if time.Since(cachedTime) > c.ttl {
		delete(c.intros, key)
		delete(c.cachedAt, key)
		return nil, false
	}
	return c.intros[key], true
}

// Set stores a lookup result. A nil intro records a miss.
func (c *Cache) Set(speaker, topic string, intro *Intro) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(speaker, topic)
	c.intros[key] = intro
	c.cachedAt[key] = time.Now()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cachedAt)
}

func cacheKey(speaker, topic string) string {
	return strings.ToLower(strings.TrimSpace(speaker)) + "|" + strings.ToLower(strings.TrimSpace(topic))
}
