package repository

import (
	"context"

	"github.com/rwc-labs/coupon-export-service/models"

	"gorm.io/gorm"
)

// DefaultBatchSize caps how many coupon IDs are pulled per page while
// collecting the full export set.
const DefaultBatchSize = 100

// CouponRepository defines the read-only coupon access the exporter needs.
type CouponRepository interface {
	ListPublishedIDs(ctx context.Context) ([]uint, error)
	FindByID(ctx context.Context, id uint) (*models.Coupon, error)
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewGormCouponRepository creates a new GormCouponRepository. A batchSize
// of zero or less falls back to DefaultBatchSize.
func NewGormCouponRepository(db *gorm.DB, batchSize int) CouponRepository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &GormCouponRepository{db: db, batchSize: batchSize}
}

// ListPublishedIDs returns the IDs of every published coupon in ascending
// order. Paging happens internally so callers always see the full set.
func (r *GormCouponRepository) ListPublishedIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	for offset := 0; ; offset += r.batchSize {
		var page []uint
		err := r.db.WithContext(ctx).
			Model(&models.Coupon{}).
			Where("status = ?", models.CouponStatusPublished).
			Order("id ASC").
			Limit(r.batchSize).
			Offset(offset).
			Pluck("id", &page).Error
		if err != nil {
			return nil, err
		}
		ids = append(ids, page...)
		if len(page) < r.batchSize {
			break
		}
	}
	return ids, nil
}

// FindByID loads a single coupon by its primary key.
func (r *GormCouponRepository) FindByID(ctx context.Context, id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).First(&coupon, id).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
