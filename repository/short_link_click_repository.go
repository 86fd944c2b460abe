package repository

import (
	"context"

	"github.com/amirphl/Kusanagi/models"
	"gorm.io/gorm"
)

// ShortLinkClickRepositoryImpl implements ShortLinkClickRepository
type ShortLinkClickRepositoryImpl struct {
	*BaseRepository[models.ShortLinkClick, models.ShortLinkClickFilter]
}

func NewShortLinkClickRepository(db *gorm.DB) ShortLinkClickRepository {
	return &ShortLinkClickRepositoryImpl{BaseRepository: NewBaseRepository[models.ShortLinkClick, models.ShortLinkClickFilter](db)}
}

func (r *ShortLinkClickRepositoryImpl) applyFilter(db *gorm.DB, f models.ShortLinkClickFilter) *gorm.DB {
	if f.ShortLinkID != nil {
		db = db.Where("short_link_id = ?", *f.ShortLinkID)
	}
	if len(f.ShortLinkIDs) > 0 {
		db = db.Where("short_link_id IN ?", f.ShortLinkIDs)
	}
	if f.Code != nil {
		db = db.Where("code = ?", *f.Code)
	}
	if f.IP != nil {
		db = db.Where("ip = ?", *f.IP)
	}
	if f.Since != nil {
		db = db.Where("timestamp >= ?", *f.Since)
	}
	if f.Until != nil {
		db = db.Where("timestamp < ?", *f.Until)
	}
	return db
}

func (r *ShortLinkClickRepositoryImpl) ByFilter(ctx context.Context, filter models.ShortLinkClickFilter, orderBy string, limit, offset int) ([]*models.ShortLinkClick, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLinkClick{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ShortLinkClick
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ShortLinkClickRepositoryImpl) ListByShortLinkID(ctx context.Context, shortLinkID uint) ([]*models.ShortLinkClick, error) {
	return r.ByFilter(ctx, models.ShortLinkClickFilter{ShortLinkID: &shortLinkID}, "id ASC", 0, 0)
}

func (r *ShortLinkClickRepositoryImpl) ListByShortLinkIDs(ctx context.Context, shortLinkIDs []uint) ([]*models.ShortLinkClick, error) {
	if len(shortLinkIDs) == 0 {
		return nil, nil
	}
	return r.ByFilter(ctx, models.ShortLinkClickFilter{ShortLinkIDs: shortLinkIDs}, "id ASC", 0, 0)
}

func (r *ShortLinkClickRepositoryImpl) Count(ctx context.Context, filter models.ShortLinkClickFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.ShortLinkClick{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ShortLinkClickRepositoryImpl) Exists(ctx context.Context, filter models.ShortLinkClickFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
