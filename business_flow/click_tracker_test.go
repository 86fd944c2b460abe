package businessflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	testingutil "github.com/amirphl/Kusanagi/testing"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// staticGeo answers every lookup with the same location and remembers the IPs it saw
type staticGeo struct {
	mu   sync.Mutex
	loc  services.GeoLocation
	seen []string
}

func (g *staticGeo) Lookup(ip string) (services.GeoLocation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = append(g.seen, ip)
	return g.loc, true
}

func (g *staticGeo) Close() error { return nil }

func TestClickTracker_Track(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	geo := &staticGeo{loc: services.GeoLocation{Country: "DE", Region: "Berlin"}}
	tracker := NewClickTracker(env.linkRepo, nil, geo, env.metrics, zap.NewNop(), 0, time.Second)

	link, err := env.fixtures.CreateTestShortLink()
	require.NoError(t, err)

	require.NoError(t, tracker.Track(ctx, link.Code, ClickContext{
		IPAddress: "8.8.8.8",
		UserAgent: chromeOnWindows,
		Referer:   "https://news.example.org/",
	}))

	clicks, err := env.clickRepo.ListByShortLinkID(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, clicks, 1)

	c := clicks[0]
	assert.Equal(t, link.Code, c.Code)
	assert.Equal(t, "8.8.8.8", c.IP)
	assert.Equal(t, "https://news.example.org/", c.Referer)
	assert.Equal(t, "Chrome", c.Browser)
	assert.Equal(t, "Windows", c.OS)
	assert.Equal(t, models.DeviceDesktop, c.Device)
	require.NotNil(t, c.Country)
	assert.Equal(t, "DE", *c.Country)
	require.NotNil(t, c.Region)
	assert.Equal(t, "Berlin", *c.Region)

	row, err := env.linkRepo.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.ClickCount)
	assert.NotNil(t, row.LastAccessedAt)
}

func TestClickTracker_DefaultsAndSkippedGeo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	geo := &staticGeo{loc: services.GeoLocation{Country: "US"}}
	tracker := NewClickTracker(env.linkRepo, nil, geo, env.metrics, zap.NewNop(), 0, time.Second)

	link, err := env.fixtures.CreateTestShortLink()
	require.NoError(t, err)

	for _, ip := range []string{"", "127.0.0.1", "::1", "0.0.0.0"} {
		require.NoError(t, tracker.Track(ctx, link.Code, ClickContext{IPAddress: ip}))
	}
	assert.Empty(t, geo.seen)

	clicks, err := env.clickRepo.ListByShortLinkID(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, clicks, 4)
	assert.Equal(t, models.UnknownClickValue, clicks[0].IP)
	assert.Equal(t, models.UnknownClickValue, clicks[0].UserAgent)
	assert.Equal(t, models.DirectReferer, clicks[0].Referer)
	assert.Equal(t, models.DeviceUnknown, clicks[0].Browser)
	assert.Nil(t, clicks[0].Country)
}

func TestClickTracker_UnknownCodeIsNoop(t *testing.T) {
	env := newTestEnv(t)
	tracker := env.clickTracker()

	assert.NoError(t, tracker.Track(context.Background(), "missing", NewClickContext("1.1.1.1", "", "")))
}

func TestClickTracker_TracksInactiveLinks(t *testing.T) {
	env := newTestEnv(t)
	tracker := env.clickTracker()
	ctx := context.Background()

	link, err := env.fixtures.CreateTestShortLink(testingutil.Inactive())
	require.NoError(t, err)

	require.NoError(t, tracker.Track(ctx, link.Code, NewClickContext("1.1.1.1", "", "")))

	row, err := env.linkRepo.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.ClickCount)
}

func TestClickTracker_HistoryIsBoundedCounterIsNot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := NewClickTracker(env.linkRepo, nil, nil, env.metrics, zap.NewNop(), 5, time.Second)

	link, err := env.fixtures.CreateTestShortLink()
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, tracker.Track(ctx, link.Code, NewClickContext(fmt.Sprintf("9.9.9.%d", i), "", "")))
	}

	row, err := env.linkRepo.ByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), row.ClickCount)

	clicks, err := env.clickRepo.ListByShortLinkID(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, clicks, 5)
	assert.Equal(t, "9.9.9.3", clicks[0].IP)
	assert.Equal(t, "9.9.9.7", clicks[4].IP)
}

func TestClickTracker_TrackAsync(t *testing.T) {
	env := newTestEnv(t)
	tracker := env.clickTracker()

	link, err := env.fixtures.CreateTestShortLink()
	require.NoError(t, err)

	const clicks = 10
	for i := 0; i < clicks; i++ {
		tracker.TrackAsync(link.Code, NewClickContext("3.3.3.3", "", ""))
	}
	tracker.TrackAsync("missing", NewClickContext("3.3.3.3", "", ""))
	tracker.Wait()

	row, err := env.linkRepo.ByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), row.ClickCount)
	assert.Equal(t, clicks+1, env.metrics.clicksOK)
	assert.Zero(t, env.metrics.clicksFail)
}

func TestClickTracker_TrackAsyncSwallowsStoreErrors(t *testing.T) {
	env := newTestEnv(t)
	tracker := env.clickTracker()

	link, err := env.fixtures.CreateTestShortLink()
	require.NoError(t, err)
	require.NoError(t, env.db.TeardownTestDB())

	assert.NotPanics(t, func() {
		tracker.TrackAsync(link.Code, NewClickContext("4.4.4.4", "", ""))
		tracker.Wait()
	})
	assert.Equal(t, 1, env.metrics.clicksFail)
}
