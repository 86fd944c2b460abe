package businessflow

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// AnalyticsFlow builds per link and dashboard reports from stored click history
type AnalyticsFlow interface {
	LinkAnalytics(ctx context.Context, code string) (*dto.LinkAnalyticsResponse, error)
	Dashboard(ctx context.Context, ownerID *string) (*dto.DashboardResponse, error)
}

type AnalyticsFlowImpl struct {
	linkRepo   repository.ShortLinkRepository
	clickRepo  repository.ShortLinkClickRepository
	classifier services.UserAgentClassifier
	logger     *zap.Logger
	baseURL    string
}

func NewAnalyticsFlow(
	linkRepo repository.ShortLinkRepository,
	clickRepo repository.ShortLinkClickRepository,
	classifier services.UserAgentClassifier,
	logger *zap.Logger,
	baseURL string,
) AnalyticsFlow {
	if classifier == nil {
		classifier = services.NewUserAgentClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsFlowImpl{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		classifier: classifier,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// LinkAnalytics reports on a link in any state, inactive and expired included
func (f *AnalyticsFlowImpl) LinkAnalytics(ctx context.Context, code string) (*dto.LinkAnalyticsResponse, error) {
	row, err := f.linkRepo.ByCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if row == nil {
		return nil, ErrShortLinkNotFound
	}

	clicks, err := f.clickRepo.ListByShortLinkID(ctx, row.ID)
	if err != nil {
		return nil, NewBusinessError("LIST_CLICKS_FAILED", "Failed to list clicks", err)
	}

	clickDTOs := make([]dto.ClickDTO, 0, len(clicks))
	for _, c := range clicks {
		clickDTOs = append(clickDTOs, ToClickDTO(c))
	}

	return &dto.LinkAnalyticsResponse{
		ShortCode:              row.Code,
		ShortURL:               BuildShortURL(f.baseURL, row.Code),
		OriginalURL:            row.TargetURL,
		IsActive:               row.IsActive,
		ClickCount:             row.ClickCount,
		UniqueVisitors:         UniqueVisitors(clicks),
		CreatedAt:              row.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:              formatTimePtr(row.ExpiresAt),
		LastAccessed:           formatTimePtr(row.LastAccessedAt),
		Clicks:                 clickDTOs,
		ClicksByDay:            ClicksByDay(clicks),
		ClicksByReferer:        ClicksByReferer(clicks),
		ClicksByBrowser:        ClicksByBrowser(clicks, f.classifier),
		ClicksByOS:             ClicksByOS(clicks, f.classifier),
		ClicksByDevice:         ClicksByDevice(clicks, f.classifier),
		ClicksByCountry:        ClicksByCountry(clicks),
		ClicksByRegion:         ClicksByRegion(clicks),
		VisitsAndVisitorsByDay: VisitsAndVisitorsByDay(clicks),
	}, nil
}

// Dashboard summarises active links, optionally scoped to one owner.
// Day and referer groupings cover the clicks of the recent window only.
func (f *AnalyticsFlowImpl) Dashboard(ctx context.Context, ownerID *string) (*dto.DashboardResponse, error) {
	filter := models.ShortLinkFilter{IsActive: utils.ToPtr(true)}
	if ownerID != nil && strings.TrimSpace(*ownerID) != "" {
		filter.OwnerID = utils.ToPtr(strings.TrimSpace(*ownerID))
	}

	total, err := f.linkRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to count short links", err)
	}
	totalClicks, err := f.linkRepo.SumClicks(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to sum clicks", err)
	}

	recent, err := f.linkRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", utils.DashboardRecentLimit, 0)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to list recent short links", err)
	}
	top, err := f.linkRepo.ByFilter(ctx, filter, "click_count DESC, id DESC", utils.DashboardTopLimit, 0)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to list top short links", err)
	}

	ids := make([]uint, 0, len(recent))
	for _, row := range recent {
		ids = append(ids, row.ID)
	}
	clicks, err := f.clickRepo.ListByShortLinkIDs(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to list clicks", err)
	}

	f.logger.Debug("dashboard built",
		zap.Int64("total_urls", total),
		zap.Int("recent", len(recent)),
		zap.Int("clicks", len(clicks)),
	)

	return &dto.DashboardResponse{
		TotalUrls:       total,
		TotalClicks:     totalClicks,
		RecentUrls:      f.toDTOs(recent),
		ClicksByDay:     ClicksByDay(clicks),
		ClicksByReferer: ClicksByReferer(clicks),
		TopUrls:         f.toDTOs(top),
	}, nil
}

func (f *AnalyticsFlowImpl) toDTOs(rows []*models.ShortLink) []dto.ShortLinkDTO {
	out := make([]dto.ShortLinkDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToShortLinkDTO(row, f.baseURL))
	}
	return out
}
