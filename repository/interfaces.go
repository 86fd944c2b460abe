// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Kusanagi/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ShortLinkRepository defines operations for short links
type ShortLinkRepository interface {
	Repository[models.ShortLink, models.ShortLinkFilter]
	// ByCode returns the link with the given code regardless of its state
	ByCode(ctx context.Context, code string) (*models.ShortLink, error)
	ActiveByCode(ctx context.Context, code string) (*models.ShortLink, error)
	ActiveByAlias(ctx context.Context, alias string) (*models.ShortLink, error)
	ActiveByTargetURL(ctx context.Context, targetURL string) (*models.ShortLink, error)
	// CodeExists checks the code against every record, active or not
	CodeExists(ctx context.Context, code string) (bool, error)
	Deactivate(ctx context.Context, id uint) error
	// DeactivateExpired flips active links whose expiry passed before now and returns them
	DeactivateExpired(ctx context.Context, now time.Time, limit int) ([]*models.ShortLink, error)
	SumClicks(ctx context.Context, filter models.ShortLinkFilter) (int64, error)
	// RecordClick increments the counter, appends the click and trims history to historyLimit rows in one transaction
	RecordClick(ctx context.Context, shortLinkID uint, click *models.ShortLinkClick, historyLimit int) error
}

// ShortLinkClickRepository defines operations for short link clicks
type ShortLinkClickRepository interface {
	Repository[models.ShortLinkClick, models.ShortLinkClickFilter]
	ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]*models.ShortLinkClick, error)
	ListByShortLinkIDs(ctx context.Context, shortLinkIDs []uint) ([]*models.ShortLinkClick, error)
}
