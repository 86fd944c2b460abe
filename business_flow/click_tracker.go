package businessflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// ClickTracker records a click event for every successful redirect.
// Tracking is best effort: failures are logged and never reach the redirect caller.
type ClickTracker interface {
	Track(ctx context.Context, code string, cc ClickContext) error
	TrackAsync(code string, cc ClickContext)
	// Wait blocks until every in-flight TrackAsync call returned
	Wait()
}

type ClickTrackerImpl struct {
	repo         repository.ShortLinkRepository
	classifier   services.UserAgentClassifier
	geo          services.GeoLocator
	metrics      Metrics
	logger       *zap.Logger
	historyLimit int
	timeout      time.Duration
	now          func() time.Time
	wg           sync.WaitGroup
}

func NewClickTracker(
	repo repository.ShortLinkRepository,
	classifier services.UserAgentClassifier,
	geo services.GeoLocator,
	metrics Metrics,
	logger *zap.Logger,
	historyLimit int,
	timeout time.Duration,
) *ClickTrackerImpl {
	if classifier == nil {
		classifier = services.NewUserAgentClassifier()
	}
	if geo == nil {
		geo = services.NoopGeoLocator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = utils.DefaultHistoryLimit
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ClickTrackerImpl{
		repo:         repo,
		classifier:   classifier,
		geo:          geo,
		metrics:      metricsOrNoop(metrics),
		logger:       logger,
		historyLimit: historyLimit,
		timeout:      timeout,
		now:          utils.UTCNow,
	}
}

// Track appends one click to the link in any state. Unknown codes are ignored.
func (t *ClickTrackerImpl) Track(ctx context.Context, code string, cc ClickContext) error {
	row, err := t.repo.ByCode(ctx, code)
	if err != nil {
		return NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if row == nil {
		return nil
	}

	cc = NewClickContext(cc.IPAddress, cc.UserAgent, cc.Referer)
	ua := t.classifier.Classify(cc.UserAgent)

	click := &models.ShortLinkClick{
		Code:           row.Code,
		Timestamp:      t.now(),
		IP:             cc.IPAddress,
		UserAgent:      cc.UserAgent,
		Referer:        cc.Referer,
		Browser:        ua.Browser,
		BrowserVersion: ua.BrowserVersion,
		OS:             ua.OS,
		OSVersion:      ua.OSVersion,
		Device:         ua.Device,
		DeviceModel:    ua.DeviceModel,
	}

	if services.ShouldLocate(cc.IPAddress) {
		if loc, ok := t.geo.Lookup(cc.IPAddress); ok {
			if loc.Country != "" {
				click.Country = utils.ToPtr(loc.Country)
			}
			if loc.Region != "" {
				click.Region = utils.ToPtr(loc.Region)
			}
		}
	}

	if err := t.repo.RecordClick(ctx, row.ID, click, t.historyLimit); err != nil {
		return NewBusinessError("TRACK_CLICK_FAILED", "Failed to record click", err)
	}
	return nil
}

// TrackAsync runs Track detached from the request with its own deadline
func (t *ClickTrackerImpl) TrackAsync(code string, cc ClickContext) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.metrics.ClickRecorded(false)
				t.logger.Error("panic while tracking click", zap.String("code", code), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := t.Track(ctx, code, cc); err != nil {
			t.metrics.ClickRecorded(false)
			t.logger.Warn("failed to track click",
				zap.String("code", code),
				zap.String("request_id", cc.RequestID),
				zap.Error(err),
			)
			return
		}
		t.metrics.ClickRecorded(true)
	}()
}

func (t *ClickTrackerImpl) Wait() {
	t.wg.Wait()
}
