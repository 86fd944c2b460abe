package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"gorm.io/gorm"
)

// ShortLinkRepositoryImpl implements ShortLinkRepository
type ShortLinkRepositoryImpl struct {
	*BaseRepository[models.ShortLink, models.ShortLinkFilter]
}

func NewShortLinkRepository(db *gorm.DB) ShortLinkRepository {
	return &ShortLinkRepositoryImpl{BaseRepository: NewBaseRepository[models.ShortLink, models.ShortLinkFilter](db)}
}

func (r *ShortLinkRepositoryImpl) first(ctx context.Context, filter models.ShortLinkFilter) (*models.ShortLink, error) {
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ShortLinkRepositoryImpl) ByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	return r.first(ctx, models.ShortLinkFilter{Code: &code})
}

func (r *ShortLinkRepositoryImpl) ActiveByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	active := true
	return r.first(ctx, models.ShortLinkFilter{Code: &code, IsActive: &active})
}

func (r *ShortLinkRepositoryImpl) ActiveByAlias(ctx context.Context, alias string) (*models.ShortLink, error) {
	active := true
	return r.first(ctx, models.ShortLinkFilter{CustomAlias: &alias, IsActive: &active})
}

func (r *ShortLinkRepositoryImpl) ActiveByTargetURL(ctx context.Context, targetURL string) (*models.ShortLink, error) {
	active := true
	return r.first(ctx, models.ShortLinkFilter{TargetURL: &targetURL, IsActive: &active})
}

func (r *ShortLinkRepositoryImpl) CodeExists(ctx context.Context, code string) (bool, error) {
	return r.Exists(ctx, models.ShortLinkFilter{Code: &code})
}

func (r *ShortLinkRepositoryImpl) Deactivate(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	err := db.Model(&models.ShortLink{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate short link %d: %w", id, err)
	}
	return nil
}

func (r *ShortLinkRepositoryImpl) DeactivateExpired(ctx context.Context, now time.Time, limit int) ([]*models.ShortLink, error) {
	var rows []*models.ShortLink
	err := r.inTransaction(ctx, func(txCtx context.Context) error {
		active := true
		found, err := r.ByFilter(txCtx, models.ShortLinkFilter{IsActive: &active, ExpiresBefore: &now}, "id ASC", limit, 0)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(found))
		for _, f := range found {
			ids = append(ids, f.ID)
			f.IsActive = false
		}
		if err := r.getDB(txCtx).Model(&models.ShortLink{}).
			Where("id IN ?", ids).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate expired short links: %w", err)
		}
		rows = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ShortLinkRepositoryImpl) SumClicks(ctx context.Context, filter models.ShortLinkFilter) (int64, error) {
	db := r.getDB(ctx)
	var total sql.NullInt64
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	if err := query.Select("SUM(click_count)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Int64, nil
}

func (r *ShortLinkRepositoryImpl) RecordClick(ctx context.Context, shortLinkID uint, click *models.ShortLinkClick, historyLimit int) error {
	return r.inTransaction(ctx, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		res := db.Model(&models.ShortLink{}).
			Where("id = ?", shortLinkID).
			Updates(map[string]any{
				"click_count":      gorm.Expr("click_count + ?", 1),
				"last_accessed_at": click.Timestamp,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to increment clicks for short link %d: %w", shortLinkID, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		click.ShortLinkID = shortLinkID
		if err := db.Create(click).Error; err != nil {
			return fmt.Errorf("failed to insert click for short link %d: %w", shortLinkID, err)
		}

		if historyLimit <= 0 {
			return nil
		}
		err := db.Exec(
			`DELETE FROM short_link_clicks
			 WHERE short_link_id = ?
			   AND id NOT IN (
			     SELECT id FROM short_link_clicks WHERE short_link_id = ? ORDER BY id DESC LIMIT ?
			   )`,
			shortLinkID, shortLinkID, historyLimit,
		).Error
		if err != nil {
			return fmt.Errorf("failed to trim click history for short link %d: %w", shortLinkID, err)
		}
		return nil
	})
}

func (r *ShortLinkRepositoryImpl) applyFilter(db *gorm.DB, f models.ShortLinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Code != nil {
		db = db.Where("code = ?", *f.Code)
	}
	if f.TargetURL != nil {
		db = db.Where("target_url = ?", *f.TargetURL)
	}
	if f.CustomAlias != nil {
		db = db.Where("custom_alias = ?", *f.CustomAlias)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	if f.ExpiresBefore != nil {
		db = db.Where("expires_at IS NOT NULL AND expires_at < ?", *f.ExpiresBefore)
	}
	return db
}

func (r *ShortLinkRepositoryImpl) ByFilter(ctx context.Context, filter models.ShortLinkFilter, orderBy string, limit, offset int) ([]*models.ShortLink, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ShortLink
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ShortLinkRepositoryImpl) Count(ctx context.Context, filter models.ShortLinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ShortLink{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ShortLinkRepositoryImpl) Exists(ctx context.Context, filter models.ShortLinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
