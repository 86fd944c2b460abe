package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// insertAttempts bounds generate+insert rounds lost to a concurrent writer
const insertAttempts = 3

// ShortLinkFlow creates, resolves and soft-deletes short links.
// Resolution goes cache first, then the store, writing the result back to the cache.
// Public flow, no authentication required
type ShortLinkFlow interface {
	CreateShortLink(ctx context.Context, req *dto.CreateShortLinkRequest) (*dto.CreateShortLinkResponse, error)
	Resolve(ctx context.Context, code string) (string, error)
	GetInfo(ctx context.Context, code string) (*dto.ShortLinkInfoResponse, error)
	DeleteShortLink(ctx context.Context, code string) error
}

type ShortLinkFlowImpl struct {
	repo      repository.ShortLinkRepository
	cache     cacheGuard
	generator CodeGenerator
	validator *LinkValidator
	metrics   Metrics
	logger    *zap.Logger
	baseURL   string
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewShortLinkFlow wires the resolver. cache may be nil to run without a cache.
func NewShortLinkFlow(
	repo repository.ShortLinkRepository,
	cache services.LinkCache,
	generator CodeGenerator,
	validator *LinkValidator,
	metrics Metrics,
	logger *zap.Logger,
	baseURL string,
	cacheTTL time.Duration,
) ShortLinkFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics = metricsOrNoop(metrics)
	if cacheTTL <= 0 {
		cacheTTL = utils.LinkCacheTTL
	}
	if generator == nil {
		generator = NewCodeGenerator(repo)
	}
	if validator == nil {
		validator = NewLinkValidator(nil, false)
	}
	return &ShortLinkFlowImpl{
		repo:      repo,
		cache:     cacheGuard{cache: cache, metrics: metrics, logger: logger},
		generator: generator,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		baseURL:   baseURL,
		cacheTTL:  cacheTTL,
		now:       utils.UTCNow,
	}
}

func (f *ShortLinkFlowImpl) CreateShortLink(ctx context.Context, req *dto.CreateShortLinkRequest) (*dto.CreateShortLinkResponse, error) {
	if req == nil {
		return nil, newValidationError("Request body is required", ErrURLRequired)
	}
	targetURL := strings.TrimSpace(req.OriginalURL)
	if err := f.validator.ValidateURL(targetURL); err != nil {
		return nil, err
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays < 0 {
		return nil, newValidationError("expiresInDays must not be negative", ErrInvalidExpiry)
	}

	var alias string
	if req.CustomAlias != nil {
		alias = strings.TrimSpace(*req.CustomAlias)
	}

	if alias != "" {
		if err := f.validator.ValidateAlias(alias); err != nil {
			return nil, err
		}
		existing, err := f.repo.ActiveByAlias(ctx, alias)
		if err != nil {
			return nil, NewBusinessError("ALIAS_LOOKUP_FAILED", "Failed to check custom alias", err)
		}
		if existing != nil {
			return nil, newValidationError("Custom alias already exists", ErrAliasAlreadyExists)
		}
	} else {
		existing, err := f.existingForTarget(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			f.metrics.LinkCreated(CreatedExisting)
			return f.toCreateResponse(existing), nil
		}
	}

	now := f.now()
	row := &models.ShortLink{
		TargetURL: targetURL,
		IsActive:  true,
		OwnerID:   normalizeOwner(req.OwnerID),
	}
	if req.ExpiresInDays != nil {
		row.ExpiresAt = utils.ToPtr(now.AddDate(0, 0, *req.ExpiresInDays))
	}

	if alias != "" {
		row.Code = alias
		row.CustomAlias = utils.ToPtr(alias)
		row.IsCustom = true
		if err := f.repo.Save(ctx, row); err != nil {
			if repository.IsDuplicateKey(err) {
				return nil, newValidationError("Custom alias already exists", ErrAliasAlreadyExists)
			}
			return nil, NewBusinessError("CREATE_SHORT_LINK_FAILED", "Failed to create short link", err)
		}
		f.metrics.LinkCreated(CreatedAlias)
	} else {
		if err := f.insertGenerated(ctx, row); err != nil {
			return nil, NewBusinessError("CREATE_SHORT_LINK_FAILED", "Failed to create short link", err)
		}
		f.metrics.LinkCreated(CreatedGenerated)
	}

	f.cache.set(ctx, row.Code, cachedFromRow(row), f.cacheTTL)

	f.logger.Info("short link created",
		zap.String("code", row.Code),
		zap.Bool("custom", row.IsCustom),
	)

	return f.toCreateResponse(row), nil
}

// existingForTarget returns a live link already pointing at targetURL.
// An expired match is deactivated so that a fresh link gets created.
func (f *ShortLinkFlowImpl) existingForTarget(ctx context.Context, targetURL string) (*models.ShortLink, error) {
	existing, err := f.repo.ActiveByTargetURL(ctx, targetURL)
	if err != nil {
		return nil, NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup existing short link", err)
	}
	if existing == nil {
		return nil, nil
	}
	if utils.IsExpiredAt(existing.ExpiresAt, f.now()) {
		if err := f.repo.Deactivate(ctx, existing.ID); err != nil {
			f.logger.Warn("failed to deactivate expired short link", zap.String("code", existing.Code), zap.Error(err))
		}
		return nil, nil
	}
	return existing, nil
}

// insertGenerated generates a code and inserts the row, retrying when a concurrent
// writer takes the same code between the existence check and the insert
func (f *ShortLinkFlowImpl) insertGenerated(ctx context.Context, row *models.ShortLink) error {
	var lastErr error
	err := retry.Do(
		func() error {
			lockShortLinkGen()
			defer unlockShortLinkGen()

			code, err := f.generator.Generate(ctx)
			if err != nil {
				lastErr = err
				return retry.Unrecoverable(err)
			}
			row.ID = 0
			row.Code = code
			if err := f.repo.Save(ctx, row); err != nil {
				lastErr = err
				if repository.IsDuplicateKey(err) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Attempts(insertAttempts),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn("retrying short code insert", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func (f *ShortLinkFlowImpl) Resolve(ctx context.Context, code string) (string, error) {
	now := f.now()

	if cached := f.cache.get(ctx, code); cached != nil {
		if utils.IsExpiredAt(cached.ExpiresAt, now) {
			f.cache.del(ctx, utils.LinkCacheKey(code))
			f.expireStored(ctx, code)
			f.metrics.Resolution(ResolutionExpired)
			return "", ErrShortLinkExpired
		}
		if !cached.Active {
			f.metrics.Resolution(ResolutionInactive)
			return "", ErrShortLinkInactive
		}
		f.metrics.Resolution(ResolutionOK)
		return cached.TargetURL, nil
	}

	row, err := f.repo.ActiveByCode(ctx, code)
	if err != nil {
		f.metrics.Resolution(ResolutionError)
		return "", NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if row == nil {
		f.metrics.Resolution(ResolutionNotFound)
		return "", ErrShortLinkNotFound
	}

	if utils.IsExpiredAt(row.ExpiresAt, now) {
		if err := f.repo.Deactivate(ctx, row.ID); err != nil {
			f.logger.Warn("failed to deactivate expired short link", zap.String("code", code), zap.Error(err))
		}
		f.metrics.Resolution(ResolutionExpired)
		return "", ErrShortLinkExpired
	}

	f.cache.set(ctx, code, cachedFromRow(row), f.cacheTTL)
	f.metrics.Resolution(ResolutionOK)
	return row.TargetURL, nil
}

// expireStored flips the stored record of a code seen expired in the cache
func (f *ShortLinkFlowImpl) expireStored(ctx context.Context, code string) {
	row, err := f.repo.ActiveByCode(ctx, code)
	if err != nil || row == nil {
		if err != nil {
			f.logger.Warn("failed to lookup expired short link", zap.String("code", code), zap.Error(err))
		}
		return
	}
	if err := f.repo.Deactivate(ctx, row.ID); err != nil {
		f.logger.Warn("failed to deactivate expired short link", zap.String("code", code), zap.Error(err))
	}
}

func (f *ShortLinkFlowImpl) GetInfo(ctx context.Context, code string) (*dto.ShortLinkInfoResponse, error) {
	target, err := f.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	return &dto.ShortLinkInfoResponse{
		ShortCode:   code,
		ShortURL:    BuildShortURL(f.baseURL, code),
		OriginalURL: target,
	}, nil
}

// DeleteShortLink soft-deletes the link in any state and purges its cache entries
func (f *ShortLinkFlowImpl) DeleteShortLink(ctx context.Context, code string) error {
	row, err := f.repo.ByCode(ctx, code)
	if err != nil {
		return NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if row == nil {
		return ErrShortLinkNotFound
	}
	if err := f.repo.Deactivate(ctx, row.ID); err != nil {
		return NewBusinessError("DELETE_SHORT_LINK_FAILED", "Failed to delete short link", err)
	}
	f.cache.purge(ctx, code)

	f.logger.Info("short link deleted", zap.String("code", code))
	return nil
}

func (f *ShortLinkFlowImpl) toCreateResponse(row *models.ShortLink) *dto.CreateShortLinkResponse {
	return &dto.CreateShortLinkResponse{
		ShortCode:   row.Code,
		ShortURL:    BuildShortURL(f.baseURL, row.Code),
		OriginalURL: row.TargetURL,
		ExpiresAt:   formatTimePtr(row.ExpiresAt),
		CreatedAt:   row.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func cachedFromRow(row *models.ShortLink) *services.CachedLink {
	return &services.CachedLink{
		TargetURL: row.TargetURL,
		Active:    row.IsActive,
		ExpiresAt: row.ExpiresAt,
	}
}

func normalizeOwner(owner *string) *string {
	if owner == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*owner)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
