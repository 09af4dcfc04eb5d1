package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/sitemapper/models"
)

// entry holds a cached crawl result with its creation timestamp.
type entry struct {
	data      *models.CrawlData
	createdAt time.Time
}

// Cache is an in-memory store of recent crawl results, keyed by the
// normalized seed and crawl bounds. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Cache holding at most maxEntries results. A background
// goroutine evicts entries older than ttl every ttl/12 (at least once a
// minute) until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Key generates a cache key from the seed URL and crawl bounds.
func Key(seedURL string, maxDepth, maxPages int) string {
	h := sha256.New()
	h.Write([]byte(seedURL))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(maxDepth)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(maxPages)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result if it exists and is younger than maxAge.
// maxAge is in milliseconds. If maxAge <= 0, no cache lookup is performed.
func (c *Cache) Get(key string, maxAgeMs int) (*models.CrawlData, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	age := c.now().Sub(e.createdAt)
	if age > time.Duration(maxAgeMs)*time.Millisecond || age > c.ttl {
		return nil, false
	}

	return e.data, true
}

// Set stores a result. If the cache is at capacity, the oldest entry is
// evicted to make room.
func (c *Cache) Set(key string, data *models.CrawlData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{
		data:      data,
		createdAt: c.now(),
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	interval := min(c.ttl/12, time.Minute)
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
