package cache

import (
	"sync"
	"time"

	"tally/internal/services"
)

// ViewCache memoizes rendered dashboard payloads, keyed by owner plus a view
// key (for example the requested month). Mutations call Invalidate with the
// owner id and every cached view for that owner is dropped.
type ViewCache struct {
	views *LRUCache[[]byte]

	mu   sync.Mutex
	keys map[string]map[string]struct{} // owner id -> cached view keys
}

var _ services.ViewInvalidator = (*ViewCache)(nil)

func NewViewCache(maxEntries int, ttl time.Duration) *ViewCache {
	return &ViewCache{
		views: NewLRUCache[[]byte](maxEntries, ttl),
		keys:  make(map[string]map[string]struct{}),
	}
}

func (c *ViewCache) Get(ownerID, view string) ([]byte, bool) {
	return c.views.Get(ownerID + "|" + view)
}

func (c *ViewCache) Set(ownerID, view string, payload []byte) {
	c.mu.Lock()
	if c.keys[ownerID] == nil {
		c.keys[ownerID] = make(map[string]struct{})
	}
	c.keys[ownerID][view] = struct{}{}
	c.mu.Unlock()

	c.views.Set(ownerID+"|"+view, payload)
}

func (c *ViewCache) Invalidate(ownerID string) {
	c.mu.Lock()
	views := c.keys[ownerID]
	delete(c.keys, ownerID)
	c.mu.Unlock()

	for view := range views {
		c.views.Delete(ownerID + "|" + view)
	}
}

func (c *ViewCache) CleanExpired() int {
	return c.views.CleanExpired()
}

func (c *ViewCache) Size() int {
	return c.views.Size()
}
