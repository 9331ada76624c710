package tool

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yieldland/production-core/internal/domain"
)

const (
	cacheSize = 4096
	cacheTTL  = 30 * time.Second
)

// toolCache is an in-memory LRU for tool lookups with time-based expiration.
// Every write path through the registry refreshes or invalidates entries;
// writers that bypass the registry (settlement transactions) must call
// Invalidate after commit.
type toolCache struct {
	lru *expirable.LRU[string, domain.Tool]
}

func newToolCache(size int, ttl time.Duration) *toolCache {
	return &toolCache{
		lru: expirable.NewLRU[string, domain.Tool](size, nil, ttl),
	}
}

func (c *toolCache) Get(toolID string) (*domain.Tool, bool) {
	t, found := c.lru.Get(toolID)
	if !found {
		return nil, false
	}
	copied := t
	return &copied, true
}

func (c *toolCache) Set(t *domain.Tool) {
	c.lru.Add(t.ID, *t)
}

func (c *toolCache) Invalidate(toolID string) {
	c.lru.Remove(toolID)
}
