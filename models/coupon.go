package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType represents the kind of discount a coupon applies.
type DiscountType string

const (
	DiscountTypePercent      DiscountType = "percent"
	DiscountTypeFixedCart    DiscountType = "fixed_cart"
	DiscountTypeFixedProduct DiscountType = "fixed_product"
)

// Coupon statuses. Only published coupons are exported.
const (
	CouponStatusPublished = "publish"
	CouponStatusDraft     = "draft"
)

// Coupon represents a store coupon stored in Postgres. The column set
// mirrors the coupon fields that appear in the CSV export.
type Coupon struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	Code                string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Description         string              `gorm:"type:text" json:"description"`
	DiscountType        DiscountType        `gorm:"type:varchar(20);not null;default:'fixed_cart'" json:"discount_type"`
	Amount              decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	ExpiryDate          *time.Time          `json:"expiry_date,omitempty"`
	MinimumSpend        decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"minimum_spend,omitempty"`
	MaximumSpend        decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"maximum_spend,omitempty"`
	IndividualUse       bool                `gorm:"not null;default:false" json:"individual_use"`
	ExcludeSaleItems    bool                `gorm:"not null;default:false" json:"exclude_sale_items"`
	UsageLimit          *int                `json:"usage_limit,omitempty"` // nil = unlimited
	UsageCount          int                 `gorm:"not null;default:0" json:"usage_count"`
	ProductIDs          pq.Int64Array       `gorm:"type:bigint[]" json:"product_ids"`
	ExcludedProductIDs  pq.Int64Array       `gorm:"type:bigint[]" json:"excluded_product_ids"`
	CategoryIDs         pq.Int64Array       `gorm:"type:bigint[]" json:"category_ids"`
	ExcludedCategoryIDs pq.Int64Array       `gorm:"type:bigint[]" json:"excluded_category_ids"`
	EmailRestrictions   pq.StringArray      `gorm:"type:text[]" json:"email_restrictions"`
	Status              string              `gorm:"type:varchar(20);not null;default:'publish';index" json:"status"`
	CreatedAt           time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt      `gorm:"index" json:"-"`
}
