package services

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/amirphl/Kusanagi/utils"
)

type memoryEntry struct {
	link     CachedLink
	deadline time.Time
}

// MemoryLinkCache is an in-process LinkCache for single instance deployments.
// Entries are evicted by LRU order or when their deadline passes.
type MemoryLinkCache struct {
	entries *lru.Cache
	now     func() time.Time
}

// NewMemoryLinkCache creates a cache holding at most size entries
func NewMemoryLinkCache(size int) (*MemoryLinkCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &MemoryLinkCache{entries: entries, now: utils.UTCNow}, nil
}

func (c *MemoryLinkCache) Get(_ context.Context, code string) (*CachedLink, error) {
	key := linkKey(code)
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, nil
	}
	entry, ok := v.(memoryEntry)
	if !ok {
		c.entries.Remove(key)
		return nil, nil
	}
	if !entry.deadline.IsZero() && !c.now().Before(entry.deadline) {
		c.entries.Remove(key)
		return nil, nil
	}
	link := entry.link
	return &link, nil
}

func (c *MemoryLinkCache) Set(_ context.Context, code string, link *CachedLink, ttl time.Duration) error {
	if link == nil {
		return nil
	}
	entry := memoryEntry{link: *link}
	if ttl > 0 {
		entry.deadline = c.now().Add(ttl)
	}
	c.entries.Add(linkKey(code), entry)
	return nil
}

func (c *MemoryLinkCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Remove(k)
	}
	return nil
}

func (c *MemoryLinkCache) Ping(context.Context) error {
	return nil
}

// Purge drops expired entries; the LRU only evicts on overflow
func (c *MemoryLinkCache) Purge() int {
	now := c.now()
	removed := 0
	for _, k := range c.entries.Keys() {
		v, ok := c.entries.Peek(k)
		if !ok {
			continue
		}
		entry, ok := v.(memoryEntry)
		if !ok || (!entry.deadline.IsZero() && !now.Before(entry.deadline)) {
			c.entries.Remove(k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, expired ones included
func (c *MemoryLinkCache) Len() int {
	return c.entries.Len()
}

func linkKey(code string) string {
	return utils.LinkCacheKey(code)
}
