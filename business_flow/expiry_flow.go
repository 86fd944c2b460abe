package businessflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// ExpiryFlow deactivates links whose expiry passed.
// Resolution checks expiry on its own, so a missed sweep only delays the flag flip.
type ExpiryFlow interface {
	SweepExpired(ctx context.Context) (int, error)
}

type ExpiryFlowImpl struct {
	repo      repository.ShortLinkRepository
	cache     cacheGuard
	metrics   Metrics
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

func NewExpiryFlow(repo repository.ShortLinkRepository, cache services.LinkCache, metrics Metrics, logger *zap.Logger, batchSize int) ExpiryFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	metrics = metricsOrNoop(metrics)
	return &ExpiryFlowImpl{
		repo:      repo,
		cache:     cacheGuard{cache: cache, metrics: metrics, logger: logger},
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
		now:       utils.UTCNow,
	}
}

// SweepExpired works in batches until no expired active link is left and returns how many were flipped
func (f *ExpiryFlowImpl) SweepExpired(ctx context.Context) (int, error) {
	now := f.now()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rows, err := f.repo.DeactivateExpired(ctx, now, f.batchSize)
		if err != nil {
			return total, NewBusinessError("SWEEP_EXPIRED_FAILED", "Failed to deactivate expired short links", err)
		}
		if len(rows) == 0 {
			break
		}

		codes := make([]string, 0, len(rows))
		for _, row := range rows {
			codes = append(codes, row.Code)
		}
		f.cache.purge(ctx, codes...)
		f.metrics.ExpiredSwept(len(rows))
		total += len(rows)

		if len(rows) < f.batchSize {
			break
		}
	}

	if total > 0 {
		f.logger.Info("expired short links deactivated", zap.Int("count", total))
	}
	return total, nil
}
