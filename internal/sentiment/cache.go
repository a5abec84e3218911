package sentiment

import (
	"sync"
	"time"

	"gold-pulse/internal/domain"
)

// DefaultTTL is how long a scored batch stays fresh.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	result   domain.SentimentResult
	storedAt time.Time
	degraded bool
}

// Cache holds the single shared sentiment result. Entries are immutable and
// replaced wholesale, so readers never observe a partial update.
type Cache struct {
	mu    sync.RWMutex
	entry *cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns an empty cache. A non-positive ttl uses DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached result and whether it is still within the TTL.
// A result served after a failed refresh carries half its original
// confidence.
func (c *Cache) Get() (result domain.SentimentResult, fresh bool, ok bool) {
	c.mu.RLock()
	e := c.entry
	c.mu.RUnlock()
	if e == nil {
		return domain.SentimentResult{}, false, false
	}

	result = cloneResult(e.result)
	if e.degraded {
		result.Confidence = e.result.Confidence / 2
	}
	fresh = !e.degraded && c.now().Sub(e.storedAt) < c.ttl
	return result, fresh, true
}

// Set replaces the cached result.
func (c *Cache) Set(result domain.SentimentResult) {
	e := &cacheEntry{result: cloneResult(result), storedAt: c.now()}
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()
}

// MarkDegraded flags the current entry as served after a failure. The
// original confidence is kept so repeated failures do not compound.
func (c *Cache) MarkDegraded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.entry.degraded {
		return
	}
	next := *c.entry
	next.degraded = true
	c.entry = &next
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func cloneResult(r domain.SentimentResult) domain.SentimentResult {
	r.TriggerWords = append([]string{}, r.TriggerWords...)
	r.Headlines = append([]string{}, r.Headlines...)
	return r
}
