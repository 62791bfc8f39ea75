package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rwc-labs/coupon-export-service/models"
	"github.com/rwc-labs/coupon-export-service/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportColumnCount is the fixed width of the export: header and every
// data row carry exactly this many cells.
const ExportColumnCount = 16

// CSVHeaders returns the default header labels in column order.
func CSVHeaders() []string {
	return []string{
		"Code",
		"Description",
		"Discount Type",
		"Amount",
		"Expiry Date",
		"Minimum Spend",
		"Maximum Spend",
		"Individual Use",
		"Exclude Sale Items",
		"Usage Limit",
		"Usage Count",
		"Products",
		"Exclude Products",
		"Product Categories",
		"Exclude Categories",
		"Email Restrictions",
	}
}

// fieldMapper converts one coupon into one CSV row, resolving referenced
// product and category IDs to display names.
type fieldMapper struct {
	catalog repository.CatalogRepository
	logger  *zap.Logger
}

func newFieldMapper(catalog repository.CatalogRepository, logger *zap.Logger) *fieldMapper {
	return &fieldMapper{catalog: catalog, logger: logger}
}

// Row builds the 16-cell row for a coupon. Unresolvable product or
// category IDs are logged and omitted from the joined lists.
func (m *fieldMapper) Row(ctx context.Context, coupon *models.Coupon) []string {
	return []string{
		coupon.Code,
		coupon.Description,
		string(coupon.DiscountType),
		coupon.Amount.String(),
		formatDate(coupon.ExpiryDate),
		formatNullDecimal(coupon.MinimumSpend),
		formatNullDecimal(coupon.MaximumSpend),
		formatBool(coupon.IndividualUse),
		formatBool(coupon.ExcludeSaleItems),
		formatUsageLimit(coupon.UsageLimit),
		strconv.Itoa(coupon.UsageCount),
		m.joinNames(ctx, coupon.ProductIDs, m.catalog.ProductName, "product_id"),
		m.joinNames(ctx, coupon.ExcludedProductIDs, m.catalog.ProductName, "product_id"),
		m.joinNames(ctx, coupon.CategoryIDs, m.catalog.CategoryName, "category_id"),
		m.joinNames(ctx, coupon.ExcludedCategoryIDs, m.catalog.CategoryName, "category_id"),
		strings.Join(coupon.EmailRestrictions, ", "),
	}
}

// joinNames resolves each ID through resolve and joins the names with
// ", ". IDs that fail to resolve are skipped, not rendered as blanks.
func (m *fieldMapper) joinNames(
	ctx context.Context,
	ids []int64,
	resolve func(context.Context, int64) (string, error),
	idField string,
) string {
	if len(ids) == 0 {
		return ""
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := resolve(ctx, id)
		if err != nil {
			m.logger.Error("Failed to resolve name for coupon export",
				zap.Int64(idField, id),
				zap.Error(err),
			)
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func formatUsageLimit(limit *int) string {
	if limit == nil {
		return ""
	}
	return strconv.Itoa(*limit)
}
