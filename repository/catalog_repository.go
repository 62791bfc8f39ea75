package repository

import (
	"context"

	"github.com/rwc-labs/coupon-export-service/models"

	"gorm.io/gorm"
)

// CatalogRepository resolves product and category IDs referenced by
// coupons into display names.
type CatalogRepository interface {
	ProductName(ctx context.Context, id int64) (string, error)
	CategoryName(ctx context.Context, id int64) (string, error)
}

// GormCatalogRepository implements CatalogRepository using GORM.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

// ProductName returns the display name for a product ID, or
// gorm.ErrRecordNotFound if the product no longer exists.
func (r *GormCatalogRepository) ProductName(ctx context.Context, id int64) (string, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Select("name").First(&product, id).Error
	if err != nil {
		return "", err
	}
	return product.Name, nil
}

// CategoryName returns the display name for a category ID, or
// gorm.ErrRecordNotFound if the category no longer exists.
func (r *GormCatalogRepository) CategoryName(ctx context.Context, id int64) (string, error) {
	var category models.ProductCategory
	err := r.db.WithContext(ctx).Select("name").First(&category, id).Error
	if err != nil {
		return "", err
	}
	return category.Name, nil
}
