package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Kusanagi/utils"
)

func newTestRedisCache(t *testing.T) (*RedisLinkCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLinkCache(client, "test:", 500*time.Millisecond), mr
}

func TestRedisLinkCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss returns nil without error", func(t *testing.T) {
		cache, _ := newTestRedisCache(t)
		link, err := cache.Get(ctx, "abc1234")
		require.NoError(t, err)
		assert.Nil(t, link)
	})

	t.Run("set then get round trips under the prefixed url key", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		err := cache.Set(ctx, "abc1234", &CachedLink{TargetURL: "https://example.com", Active: true, ExpiresAt: &expires}, utils.LinkCacheTTL)
		require.NoError(t, err)

		assert.True(t, mr.Exists("test:url:abc1234"))
		assert.Equal(t, utils.LinkCacheTTL, mr.TTL("test:url:abc1234"))

		link, err := cache.Get(ctx, "abc1234")
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "https://example.com", link.TargetURL)
		assert.True(t, link.Active)
		require.NotNil(t, link.ExpiresAt)
		assert.True(t, expires.Equal(*link.ExpiresAt))
	})

	t.Run("stored value uses the json field names", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		require.NoError(t, cache.Set(ctx, "json1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))

		raw, err := mr.Get("test:url:json1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"targetUrl":"https://example.com","active":true}`, raw)
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		require.NoError(t, cache.Set(ctx, "ttl1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Minute))
		mr.FastForward(2 * time.Minute)

		link, err := cache.Get(ctx, "ttl1")
		require.NoError(t, err)
		assert.Nil(t, link)
	})

	t.Run("delete removes url and qr keys", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		require.NoError(t, cache.Set(ctx, "del1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))
		require.NoError(t, mr.Set("test:qr:del1", "png"))

		require.NoError(t, cache.Delete(ctx, utils.LinkCacheKey("del1"), utils.QRCacheKey("del1")))
		assert.False(t, mr.Exists("test:url:del1"))
		assert.False(t, mr.Exists("test:qr:del1"))
	})

	t.Run("unprefixed cache uses the shared url and qr keys", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache := NewRedisLinkCache(client, "", 500*time.Millisecond)

		require.NoError(t, cache.Set(ctx, "abc1234", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))
		assert.True(t, mr.Exists("url:abc1234"))

		// written by the QR component
		require.NoError(t, mr.Set("qr:abc1234", "png"))

		require.NoError(t, cache.Delete(ctx, utils.LinkCacheKey("abc1234"), utils.QRCacheKey("abc1234")))
		assert.False(t, mr.Exists("url:abc1234"))
		assert.False(t, mr.Exists("qr:abc1234"))
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		require.NoError(t, mr.Set("test:url:bad1", "{not json"))

		link, err := cache.Get(ctx, "bad1")
		assert.Error(t, err)
		assert.Nil(t, link)
	})

	t.Run("server errors surface to the caller", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)
		mr.SetError("LOADING")

		_, err := cache.Get(ctx, "down1")
		assert.Error(t, err)
		assert.Error(t, cache.Set(ctx, "down1", &CachedLink{TargetURL: "https://example.com"}, time.Hour))
		assert.Error(t, cache.Ping(ctx))
	})
}

func TestMemoryLinkCache(t *testing.T) {
	ctx := context.Background()

	t.Run("get respects the entry deadline", func(t *testing.T) {
		cache, err := NewMemoryLinkCache(10)
		require.NoError(t, err)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return now }

		require.NoError(t, cache.Set(ctx, "mem1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))

		link, err := cache.Get(ctx, "mem1")
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "https://example.com", link.TargetURL)

		now = now.Add(time.Hour)
		link, err = cache.Get(ctx, "mem1")
		require.NoError(t, err)
		assert.Nil(t, link)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("least recently used entries are evicted", func(t *testing.T) {
		cache, err := NewMemoryLinkCache(2)
		require.NoError(t, err)
		for _, code := range []string{"a01", "b02", "c03"} {
			require.NoError(t, cache.Set(ctx, code, &CachedLink{TargetURL: "https://example.com/" + code, Active: true}, time.Hour))
		}

		link, err := cache.Get(ctx, "a01")
		require.NoError(t, err)
		assert.Nil(t, link)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("delete takes logical keys", func(t *testing.T) {
		cache, err := NewMemoryLinkCache(10)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, "del1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))

		require.NoError(t, cache.Delete(ctx, utils.LinkCacheKey("del1"), utils.QRCacheKey("del1")))
		link, err := cache.Get(ctx, "del1")
		require.NoError(t, err)
		assert.Nil(t, link)
	})

	t.Run("purge drops only expired entries", func(t *testing.T) {
		cache, err := NewMemoryLinkCache(10)
		require.NoError(t, err)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return now }

		require.NoError(t, cache.Set(ctx, "short", &CachedLink{TargetURL: "https://a.example"}, time.Minute))
		require.NoError(t, cache.Set(ctx, "long", &CachedLink{TargetURL: "https://b.example"}, time.Hour))

		now = now.Add(2 * time.Minute)
		assert.Equal(t, 1, cache.Purge())
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("returned links are copies", func(t *testing.T) {
		cache, err := NewMemoryLinkCache(10)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, "copy1", &CachedLink{TargetURL: "https://example.com", Active: true}, time.Hour))

		link, err := cache.Get(ctx, "copy1")
		require.NoError(t, err)
		link.Active = false

		again, err := cache.Get(ctx, "copy1")
		require.NoError(t, err)
		assert.True(t, again.Active)
	})
}
