package businessflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/utils"
)

// cacheGuard absorbs every cache failure: errors are logged, counted and treated as a miss.
// A nil cache behaves as an always-missing cache.
type cacheGuard struct {
	cache   services.LinkCache
	metrics Metrics
	logger  *zap.Logger
}

func (g cacheGuard) get(ctx context.Context, code string) *services.CachedLink {
	if g.cache == nil {
		return nil
	}
	link, err := g.cache.Get(ctx, code)
	if err != nil {
		g.metrics.CacheResult("get", CacheError)
		g.logger.Warn("link cache get failed", zap.String("code", code), zap.Error(err))
		return nil
	}
	if link == nil {
		g.metrics.CacheResult("get", CacheMiss)
		return nil
	}
	g.metrics.CacheResult("get", CacheHit)
	return link
}

func (g cacheGuard) set(ctx context.Context, code string, link *services.CachedLink, ttl time.Duration) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, code, link, ttl); err != nil {
		g.metrics.CacheResult("set", CacheError)
		g.logger.Warn("link cache set failed", zap.String("code", code), zap.Error(err))
	}
}

func (g cacheGuard) del(ctx context.Context, keys ...string) {
	if g.cache == nil || len(keys) == 0 {
		return
	}
	if err := g.cache.Delete(ctx, keys...); err != nil {
		g.metrics.CacheResult("delete", CacheError)
		g.logger.Warn("link cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// purge drops every cached artefact of a code
func (g cacheGuard) purge(ctx context.Context, codes ...string) {
	keys := make([]string, 0, 2*len(codes))
	for _, code := range codes {
		keys = append(keys, utils.LinkCacheKey(code), utils.QRCacheKey(code))
	}
	g.del(ctx, keys...)
}
