// Package services provides technical concerns used by the business flows: link caching, user agent parsing and IP geolocation
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLink is the cached resolution of a short code
type CachedLink struct {
	TargetURL string     `json:"targetUrl"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// LinkCache is a time-boxed key/value cache in front of the short link store.
// Get returns (nil, nil) on a miss. Delete takes logical keys such as utils.LinkCacheKey(code).
type LinkCache interface {
	Get(ctx context.Context, code string) (*CachedLink, error)
	Set(ctx context.Context, code string, link *CachedLink, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// RedisLinkCache implements LinkCache on top of a shared redis client
type RedisLinkCache struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisLinkCache creates a redis backed link cache. Every call is bounded by opTimeout.
func NewRedisLinkCache(client *redis.Client, prefix string, opTimeout time.Duration) *RedisLinkCache {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &RedisLinkCache{
		client:    client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (c *RedisLinkCache) key(logical string) string {
	return c.prefix + logical
}

func (c *RedisLinkCache) Get(ctx context.Context, code string) (*CachedLink, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(linkKey(code))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", code, err)
	}

	var link CachedLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decode cached link %s: %w", code, err)
	}
	return &link, nil
}

func (c *RedisLinkCache) Set(ctx context.Context, code string, link *CachedLink, ttl time.Duration) error {
	if link == nil {
		return nil
	}
	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode cached link %s: %w", code, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(linkKey(code)), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", code, err)
	}
	return nil
}

func (c *RedisLinkCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisLinkCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}
