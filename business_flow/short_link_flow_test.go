package businessflow

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
)

var generatedCodePattern = regexp.MustCompile(`^[0-9a-zA-Z]{7}$`)

func TestShortLinkFlow_CreateAndResolve(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	tracker := env.clickTracker()
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Regexp(t, generatedCodePattern, created.ShortCode)
	assert.Equal(t, testBaseURL+"/"+created.ShortCode, created.ShortURL)
	assert.Equal(t, "https://example.com/page", created.OriginalURL)
	assert.Nil(t, created.ExpiresAt)

	target, err := flow.Resolve(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", target)

	for _, ip := range []string{"1.1.1.1", "1.1.1.1", "2.2.2.2"} {
		require.NoError(t, tracker.Track(ctx, created.ShortCode, NewClickContext(ip, "", "")))
	}

	row, err := env.linkRepo.ByCode(ctx, created.ShortCode)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(3), row.ClickCount)

	clicks, err := env.clickRepo.ListByShortLinkID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, UniqueVisitors(clicks))
}

func TestShortLinkFlow_ResolveFromStoreWritesBackToCache(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	link, err := env.fixtures.CreateTestShortLink(testingutil.WithCode("warmup1"), testingutil.WithTarget("https://example.com/warm"))
	require.NoError(t, err)

	cached, err := env.cache.Get(ctx, link.Code)
	require.NoError(t, err)
	require.Nil(t, cached)

	target, err := flow.Resolve(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/warm", target)

	cached, err = env.cache.Get(ctx, link.Code)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "https://example.com/warm", cached.TargetURL)
	assert.True(t, cached.Active)

	_, err = flow.Resolve(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, env.metrics.cache["get:"+CacheHit])
	assert.Equal(t, 1, env.metrics.cache["get:"+CacheMiss])
}

func TestShortLinkFlow_Deduplication(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	first, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/same"})
	require.NoError(t, err)

	second, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
		OriginalURL:   "https://example.com/same",
		ExpiresInDays: utils.ToPtr(5),
		OwnerID:       utils.ToPtr("someone-else"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ShortCode, second.ShortCode)
	assert.Nil(t, second.ExpiresAt, "existing record wins, expiry is not updated")

	aliased, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
		OriginalURL: "https://example.com/same",
		CustomAlias: utils.ToPtr("same-page"),
	})
	require.NoError(t, err)
	assert.Equal(t, "same-page", aliased.ShortCode)

	count, err := env.linkRepo.Count(ctx, modelsFilterActive())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 1, env.metrics.created[CreatedExisting])
}

func TestShortLinkFlow_DeduplicationSkipsExpiredMatch(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	stale, err := env.fixtures.CreateTestShortLink(
		testingutil.WithTarget("https://example.com/stale"),
		testingutil.WithExpiresAt(time.Now().Add(-time.Hour)),
	)
	require.NoError(t, err)

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/stale"})
	require.NoError(t, err)
	assert.NotEqual(t, stale.Code, created.ShortCode)

	row, err := env.linkRepo.ByCode(ctx, stale.Code)
	require.NoError(t, err)
	assert.False(t, row.IsActive)
}

func TestShortLinkFlow_CustomAlias(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
		OriginalURL: "https://example.com/one",
		CustomAlias: utils.ToPtr("my-link"),
	})
	require.NoError(t, err)
	assert.Equal(t, "my-link", created.ShortCode)

	_, err = flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
		OriginalURL: "https://example.com/two",
		CustomAlias: utils.ToPtr("my-link"),
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.True(t, IsAliasAlreadyExists(err))
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Message, "already exists")
}

func TestShortLinkFlow_ConcurrentAliasRace(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
				OriginalURL: fmt.Sprintf("https://example.com/race/%d", i),
				CustomAlias: utils.ToPtr("race-alias"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsAliasAlreadyExists(err) && IsValidationError(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestShortLinkFlow_ValidationRejectsBeforePersisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		production bool
		req        *dto.CreateShortLinkRequest
		wantErr    error
	}{
		{"empty url", false, &dto.CreateShortLinkRequest{OriginalURL: "  "}, ErrURLRequired},
		{"missing scheme", false, &dto.CreateShortLinkRequest{OriginalURL: "example.com"}, ErrInvalidURL},
		{"malicious", false, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/?q=javascript:alert(1)"}, ErrMaliciousURL},
		{"local in production", true, &dto.CreateShortLinkRequest{OriginalURL: "http://localhost:3000/x"}, ErrLocalURLNotAllowed},
		{"short alias", false, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com", CustomAlias: utils.ToPtr("ab")}, ErrInvalidAlias},
		{"reserved alias", false, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com", CustomAlias: utils.ToPtr("Admin")}, ErrAliasReserved},
		{"negative expiry", false, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com", ExpiresInDays: utils.ToPtr(-1)}, ErrInvalidExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := env.shortLinkFlow(env.cache, tt.production)
			_, err := flow.CreateShortLink(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}

	count, err := env.linkRepo.Count(ctx, modelsFilterAll())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestShortLinkFlow_LocalURLAllowedOutsideProduction(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)

	created, err := flow.CreateShortLink(context.Background(), &dto.CreateShortLinkRequest{OriginalURL: "http://localhost:3000/dev"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ShortCode)
}

func TestShortLinkFlow_Expiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("zero days expires immediately", func(t *testing.T) {
		flow := env.shortLinkFlow(env.cache, false)
		created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
			OriginalURL:   "https://example.com/zero",
			ExpiresInDays: utils.ToPtr(0),
		})
		require.NoError(t, err)
		require.NotNil(t, created.ExpiresAt)

		_, err = flow.Resolve(ctx, created.ShortCode)
		assert.True(t, IsShortLinkExpired(err))

		row, err := env.linkRepo.ByCode(ctx, created.ShortCode)
		require.NoError(t, err)
		assert.False(t, row.IsActive)

		cached, err := env.cache.Get(ctx, created.ShortCode)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("past expiry injected in store", func(t *testing.T) {
		flow := env.shortLinkFlow(nil, false)
		link, err := env.fixtures.CreateTestShortLink(testingutil.WithExpiresAt(time.Now().Add(-time.Minute)))
		require.NoError(t, err)

		_, err = flow.Resolve(ctx, link.Code)
		assert.True(t, IsShortLinkExpired(err))

		row, err := env.linkRepo.ByCode(ctx, link.Code)
		require.NoError(t, err)
		assert.False(t, row.IsActive)

		_, err = flow.Resolve(ctx, link.Code)
		assert.True(t, IsShortLinkNotFound(err))
	})

	t.Run("future expiry resolves", func(t *testing.T) {
		flow := env.shortLinkFlow(env.cache, false)
		created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
			OriginalURL:   "https://example.com/week",
			ExpiresInDays: utils.ToPtr(7),
		})
		require.NoError(t, err)
		require.NotNil(t, created.ExpiresAt)

		target, err := flow.Resolve(ctx, created.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/week", target)
	})
}

func TestShortLinkFlow_InactiveCacheEntry(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	require.NoError(t, env.cache.Set(ctx, "ghost12", &services.CachedLink{TargetURL: "https://example.com/ghost", Active: false}, time.Hour))

	_, err := flow.Resolve(ctx, "ghost12")
	assert.True(t, IsShortLinkInactive(err))
	assert.True(t, IsLookupFailure(err))
}

func TestShortLinkFlow_Delete(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/delete-me"})
	require.NoError(t, err)
	_, err = flow.Resolve(ctx, created.ShortCode)
	require.NoError(t, err)

	require.NoError(t, flow.DeleteShortLink(ctx, created.ShortCode))

	_, err = flow.Resolve(ctx, created.ShortCode)
	assert.True(t, IsShortLinkNotFound(err))

	cached, err := env.cache.Get(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Nil(t, cached)

	row, err := env.linkRepo.ByCode(ctx, created.ShortCode)
	require.NoError(t, err)
	require.NotNil(t, row, "records are soft deleted")
	assert.False(t, row.IsActive)

	// deleting an inactive record still succeeds
	require.NoError(t, flow.DeleteShortLink(ctx, created.ShortCode))

	err = flow.DeleteShortLink(ctx, "nope123")
	assert.True(t, IsShortLinkNotFound(err))
}

func TestShortLinkFlow_DeleteClearsRedisKeys(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	flow := env.shortLinkFlow(services.NewRedisLinkCache(client, "", time.Second), false)
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/qr-owner"})
	require.NoError(t, err)
	_, err = flow.Resolve(ctx, created.ShortCode)
	require.NoError(t, err)
	require.True(t, mr.Exists("url:"+created.ShortCode))
	require.NoError(t, mr.Set("qr:"+created.ShortCode, "png"))

	require.NoError(t, flow.DeleteShortLink(ctx, created.ShortCode))

	assert.False(t, mr.Exists("url:"+created.ShortCode))
	assert.False(t, mr.Exists("qr:"+created.ShortCode))
}

func TestShortLinkFlow_CacheDown(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(failingCache{}, false)
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{OriginalURL: "https://example.com/cache-down"})
	require.NoError(t, err)

	target, err := flow.Resolve(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cache-down", target)

	require.NoError(t, flow.DeleteShortLink(ctx, created.ShortCode))

	assert.Positive(t, env.metrics.cache["get:"+CacheError])
	assert.Positive(t, env.metrics.cache["set:"+CacheError])
	assert.Positive(t, env.metrics.cache["delete:"+CacheError])
}

func TestShortLinkFlow_GetInfo(t *testing.T) {
	env := newTestEnv(t)
	flow := env.shortLinkFlow(env.cache, false)
	ctx := context.Background()

	created, err := flow.CreateShortLink(ctx, &dto.CreateShortLinkRequest{
		OriginalURL: "https://example.com/info",
		CustomAlias: utils.ToPtr("info-page"),
	})
	require.NoError(t, err)

	info, err := flow.GetInfo(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, &dto.ShortLinkInfoResponse{
		ShortCode:   "info-page",
		ShortURL:    testBaseURL + "/info-page",
		OriginalURL: "https://example.com/info",
	}, info)

	_, err = flow.GetInfo(ctx, "missing")
	assert.True(t, IsShortLinkNotFound(err))
}
