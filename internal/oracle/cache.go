package oracle

import (
	"sync"
	"time"
)

// quoteCache holds the most recently fetched quote so the API can serve
// it without hitting the relay.
type quoteCache struct {
	mu        sync.RWMutex
	quote     Quote
	fetchedAt time.Time
	set       bool
}

func (c *quoteCache) put(q Quote, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote = q
	c.fetchedAt = at
	c.set = true
}

// get returns the cached quote if it was fetched within maxAge.
func (c *quoteCache) get(maxAge time.Duration) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || time.Since(c.fetchedAt) > maxAge {
		return Quote{}, false
	}
	return c.quote, true
}
