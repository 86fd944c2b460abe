package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
)

const iphoneSafari = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func sampleClicks() []*models.ShortLinkClick {
	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	return []*models.ShortLinkClick{
		{Timestamp: day1, IP: "1.1.1.1", Referer: "https://a.example", Browser: "Chrome", OS: "Windows", Device: models.DeviceDesktop, Country: utils.ToPtr("DE"), Region: utils.ToPtr("Berlin")},
		{Timestamp: day1, IP: "1.1.1.1", Referer: "", Browser: "Chrome", OS: "Windows", Device: models.DeviceDesktop, Country: utils.ToPtr("DE")},
		{Timestamp: day2, IP: "2.2.2.2", Referer: models.DirectReferer, UserAgent: iphoneSafari},
		{Timestamp: day2, IP: models.UnknownClickValue, Referer: "https://a.example", UserAgent: models.UnknownClickValue},
		{Timestamp: day2, IP: "", Referer: "https://b.example", Browser: "Firefox", OS: "Linux", Device: models.DeviceDesktop},
	}
}

func TestAggregations(t *testing.T) {
	clicks := sampleClicks()
	classifier := services.NewUserAgentClassifier()

	assert.Equal(t, map[string]int{"2026-03-01": 2, "2026-03-02": 3}, ClicksByDay(clicks))
	assert.Equal(t, map[string]int{"https://a.example": 2, "direct": 2, "https://b.example": 1}, ClicksByReferer(clicks))
	assert.Equal(t, map[string]int{"DE": 2, "Unknown": 3}, ClicksByCountry(clicks))
	assert.Equal(t, map[string]int{"Berlin": 1, "Unknown": 4}, ClicksByRegion(clicks))
	assert.Equal(t, 2, UniqueVisitors(clicks))

	browsers := ClicksByBrowser(clicks, classifier)
	assert.Equal(t, 2, browsers["Chrome"])
	assert.Equal(t, 1, browsers["Firefox"])
	assert.Equal(t, 1, browsers["Safari"], "missing browser is re-parsed from the raw user agent")
	assert.Equal(t, 1, browsers["Unknown"])

	devices := ClicksByDevice(clicks, classifier)
	assert.Equal(t, 3, devices[models.DeviceDesktop])
	assert.Equal(t, 1, devices[models.DeviceMobile])
	assert.Equal(t, 1, devices[models.DeviceUnknown])

	oses := ClicksByOS(clicks, nil)
	assert.Equal(t, 2, oses["Unknown"], "without a classifier missing fields stay Unknown")

	assert.Equal(t, []dto.DayVisits{
		{Date: "2026-03-01", Visits: 2, Visitors: 1},
		{Date: "2026-03-02", Visits: 3, Visitors: 1},
	}, VisitsAndVisitorsByDay(clicks))
}

func TestAggregationsAreDeterministic(t *testing.T) {
	classifier := services.NewUserAgentClassifier()
	clicks := sampleClicks()

	assert.Equal(t, ClicksByDay(clicks), ClicksByDay(sampleClicks()))
	assert.Equal(t, ClicksByReferer(clicks), ClicksByReferer(sampleClicks()))
	assert.Equal(t, ClicksByBrowser(clicks, classifier), ClicksByBrowser(sampleClicks(), classifier))
	assert.Equal(t, ClicksByCountry(clicks), ClicksByCountry(sampleClicks()))
	assert.Equal(t, UniqueVisitors(clicks), UniqueVisitors(sampleClicks()))
}

func TestAggregationsEmpty(t *testing.T) {
	assert.Empty(t, ClicksByDay(nil))
	assert.Zero(t, UniqueVisitors(nil))
	assert.Empty(t, VisitsAndVisitorsByDay(nil))
}

func TestAnalyticsFlow_LinkAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := env.clickTracker()
	flow := NewAnalyticsFlow(env.linkRepo, env.clickRepo, nil, zap.NewNop(), testBaseURL)

	link, err := env.fixtures.CreateTestShortLink(testingutil.WithCode("stats01"), testingutil.WithTarget("https://example.com/stats"))
	require.NoError(t, err)
	for _, cc := range []ClickContext{
		NewClickContext("1.1.1.1", chromeOnWindows, "https://ref.example"),
		NewClickContext("1.1.1.1", iphoneSafari, ""),
		NewClickContext("2.2.2.2", "", ""),
	} {
		require.NoError(t, tracker.Track(ctx, link.Code, cc))
	}
	require.NoError(t, env.linkRepo.Deactivate(ctx, link.ID))

	report, err := flow.LinkAnalytics(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "stats01", report.ShortCode)
	assert.Equal(t, testBaseURL+"/stats01", report.ShortURL)
	assert.Equal(t, "https://example.com/stats", report.OriginalURL)
	assert.False(t, report.IsActive, "inactive links still report")
	assert.Equal(t, int64(3), report.ClickCount)
	assert.Equal(t, 2, report.UniqueVisitors)
	assert.Len(t, report.Clicks, 3)
	assert.Equal(t, 2, report.ClicksByReferer["direct"])
	assert.Equal(t, 1, report.ClicksByDevice[models.DeviceMobile])
	assert.Equal(t, 3, report.ClicksByDay[utils.DayKey(utils.UTCNow())])
	require.Len(t, report.VisitsAndVisitorsByDay, 1)
	assert.Equal(t, 2, report.VisitsAndVisitorsByDay[0].Visitors)
	assert.NotNil(t, report.LastAccessed)

	_, err = flow.LinkAnalytics(ctx, "missing")
	assert.True(t, IsShortLinkNotFound(err))
}

func TestAnalyticsFlow_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := NewAnalyticsFlow(env.linkRepo, env.clickRepo, nil, zap.NewNop(), testBaseURL)
	now := utils.UTCNow()

	older, err := env.fixtures.CreateTestShortLink(testingutil.WithOwner("alice"), testingutil.WithClickCount(7), testingutil.WithCreatedAt(now.Add(-48*time.Hour)))
	require.NoError(t, err)
	newer, err := env.fixtures.CreateTestShortLink(testingutil.WithOwner("alice"), testingutil.WithClickCount(2), testingutil.WithCreatedAt(now.Add(-time.Hour)))
	require.NoError(t, err)
	bobs, err := env.fixtures.CreateTestShortLink(testingutil.WithOwner("bob"), testingutil.WithClickCount(20), testingutil.WithCreatedAt(now))
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestShortLink(testingutil.WithOwner("alice"), testingutil.WithClickCount(100), testingutil.Inactive())
	require.NoError(t, err)

	yesterday := now.Add(-24 * time.Hour)
	_, err = env.fixtures.CreateTestClick(older, "1.1.1.1", yesterday)
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestClick(newer, "1.1.1.2", now)
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestClick(bobs, "1.1.1.3", now)
	require.NoError(t, err)

	t.Run("all owners", func(t *testing.T) {
		report, err := flow.Dashboard(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), report.TotalUrls)
		assert.Equal(t, int64(29), report.TotalClicks)
		require.Len(t, report.RecentUrls, 3)
		assert.Equal(t, bobs.Code, report.RecentUrls[0].ShortCode)
		require.Len(t, report.TopUrls, 3)
		assert.Equal(t, bobs.Code, report.TopUrls[0].ShortCode)
		assert.Equal(t, older.Code, report.TopUrls[1].ShortCode)
		assert.Equal(t, 2, report.ClicksByDay[utils.DayKey(now)])
		assert.Equal(t, 1, report.ClicksByDay[utils.DayKey(yesterday)])
		assert.Equal(t, 3, report.ClicksByReferer["direct"])
	})

	t.Run("single owner", func(t *testing.T) {
		report, err := flow.Dashboard(ctx, utils.ToPtr("alice"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), report.TotalUrls)
		assert.Equal(t, int64(9), report.TotalClicks)
		require.Len(t, report.RecentUrls, 2)
		assert.Equal(t, newer.Code, report.RecentUrls[0].ShortCode)
		assert.Equal(t, older.Code, report.TopUrls[0].ShortCode)
	})

	t.Run("blank owner means everyone", func(t *testing.T) {
		report, err := flow.Dashboard(ctx, utils.ToPtr("  "))
		require.NoError(t, err)
		assert.Equal(t, int64(3), report.TotalUrls)
	})

	t.Run("unknown owner", func(t *testing.T) {
		report, err := flow.Dashboard(ctx, utils.ToPtr("nobody"))
		require.NoError(t, err)
		assert.Zero(t, report.TotalUrls)
		assert.Zero(t, report.TotalClicks)
		assert.Empty(t, report.RecentUrls)
		assert.Empty(t, report.ClicksByDay)
	})
}
