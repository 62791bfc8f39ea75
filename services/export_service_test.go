package services_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rwc-labs/coupon-export-service/models"
	"github.com/rwc-labs/coupon-export-service/repository"
	"github.com/rwc-labs/coupon-export-service/services"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Mock Repositories ---

type mockCouponRepo struct {
	ids     []uint
	coupons map[uint]*models.Coupon
	listErr error
}

func (m *mockCouponRepo) ListPublishedIDs(_ context.Context) ([]uint, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.ids, nil
}

func (m *mockCouponRepo) FindByID(_ context.Context, id uint) (*models.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return c, nil
}

type mockCatalogRepo struct {
	products   map[int64]string
	categories map[int64]string
}

func (m *mockCatalogRepo) ProductName(_ context.Context, id int64) (string, error) {
	name, ok := m.products[id]
	if !ok {
		return "", errors.New("record not found")
	}
	return name, nil
}

func (m *mockCatalogRepo) CategoryName(_ context.Context, id int64) (string, error) {
	name, ok := m.categories[id]
	if !ok {
		return "", errors.New("record not found")
	}
	return name, nil
}

// --- Helpers ---

func newRepoFromCoupons(coupons ...*models.Coupon) *mockCouponRepo {
	repo := &mockCouponRepo{coupons: make(map[uint]*models.Coupon)}
	for _, c := range coupons {
		repo.ids = append(repo.ids, c.ID)
		repo.coupons[c.ID] = c
	}
	return repo
}

func newTestExportService(coupons repository.CouponRepository, catalog repository.CatalogRepository, opts services.ExportOptions) services.ExportService {
	logger, _ := zap.NewDevelopment()
	return services.NewExportService(coupons, catalog, opts, logger)
}

func publishedCoupon(id uint, code string) *models.Coupon {
	return &models.Coupon{
		ID:           id,
		Code:         code,
		DiscountType: models.DiscountTypePercent,
		Amount:       decimal.NewFromInt(10),
		Status:       models.CouponStatusPublished,
	}
}

func runExport(t *testing.T, svc services.ExportService) []byte {
	t.Helper()
	ids, expErr := svc.CollectCouponIDs(context.Background())
	assert.Nil(t, expErr)

	var buf bytes.Buffer
	expErr = svc.StreamCSV(context.Background(), &buf, ids)
	assert.Nil(t, expErr)
	return buf.Bytes()
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	assert.NoError(t, err)
	return rows
}

// --- Tests ---

func TestExport_HeaderAndRowWidth(t *testing.T) {
	svc := newTestExportService(newRepoFromCoupons(publishedCoupon(1, "SAVE10")), &mockCatalogRepo{}, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	assert.Len(t, rows, 2)
	assert.Equal(t, services.CSVHeaders(), rows[0])
	for _, row := range rows {
		assert.Len(t, row, services.ExportColumnCount)
	}
}

func TestExport_BOMAndCRLF(t *testing.T) {
	svc := newTestExportService(newRepoFromCoupons(publishedCoupon(1, "SAVE10")), &mockCatalogRepo{}, services.ExportOptions{})

	raw := runExport(t, svc)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3])
	assert.Contains(t, string(raw), "\r\n")
}

func TestExport_FieldFormatting(t *testing.T) {
	expiry := time.Date(2026, 12, 31, 10, 30, 0, 0, time.UTC)
	limit := 50
	coupon := &models.Coupon{
		ID:               1,
		Code:             "WINTER",
		Description:      "Winter promo",
		DiscountType:     models.DiscountTypeFixedCart,
		Amount:           decimal.NewFromFloat(12.5),
		ExpiryDate:       &expiry,
		MinimumSpend:     decimal.NewNullDecimal(decimal.NewFromInt(100)),
		IndividualUse:    true,
		ExcludeSaleItems: false,
		UsageLimit:       &limit,
		UsageCount:       7,
		Status:           models.CouponStatusPublished,
	}
	svc := newTestExportService(newRepoFromCoupons(coupon), &mockCatalogRepo{}, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	row := rows[1]
	assert.Equal(t, "WINTER", row[0])
	assert.Equal(t, "fixed_cart", row[2])
	assert.Equal(t, "12.5", row[3])
	assert.Equal(t, "2026-12-31", row[4])
	assert.Equal(t, "100", row[5])
	assert.Equal(t, "", row[6], "absent maximum spend renders empty")
	assert.Equal(t, "yes", row[7])
	assert.Equal(t, "no", row[8])
	assert.Equal(t, "50", row[9])
	assert.Equal(t, "7", row[10])
}

func TestExport_OptionalFieldsEmpty(t *testing.T) {
	svc := newTestExportService(newRepoFromCoupons(publishedCoupon(1, "BARE")), &mockCatalogRepo{}, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	row := rows[1]
	assert.Equal(t, "", row[4], "no expiry date")
	assert.Equal(t, "", row[5], "no minimum spend")
	assert.Equal(t, "", row[6], "no maximum spend")
	assert.Equal(t, "", row[9], "no usage limit")
	assert.Equal(t, "", row[11], "no products")
	assert.Equal(t, "", row[15], "no email restrictions")
}

func TestExport_SkipsFailingCoupon(t *testing.T) {
	// Three published IDs, the middle record no longer loads.
	repo := newRepoFromCoupons(publishedCoupon(1, "A"), publishedCoupon(3, "C"))
	repo.ids = []uint{1, 2, 3}

	core, logs := observer.New(zapcore.ErrorLevel)
	svc := services.NewExportService(repo, &mockCatalogRepo{}, services.ExportOptions{}, zap.New(core))

	ids, expErr := svc.CollectCouponIDs(context.Background())
	assert.Nil(t, expErr)

	var buf bytes.Buffer
	assert.Nil(t, svc.StreamCSV(context.Background(), &buf, ids))

	rows := parseCSV(t, buf.Bytes())
	assert.Len(t, rows, 3, "header plus two surviving rows")
	assert.Equal(t, "A", rows[1][0])
	assert.Equal(t, "C", rows[2][0])

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["coupon_id"])
}

func TestExport_UnresolvedProductSkipped(t *testing.T) {
	coupon := publishedCoupon(1, "PROD")
	coupon.ProductIDs = pq.Int64Array{5, 7}
	catalog := &mockCatalogRepo{products: map[int64]string{5: "Widget"}}
	svc := newTestExportService(newRepoFromCoupons(coupon), catalog, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	assert.Equal(t, "Widget", rows[1][11], "unresolved ID 7 silently omitted")
}

func TestExport_CategoryNamesJoined(t *testing.T) {
	coupon := publishedCoupon(1, "CATS")
	coupon.CategoryIDs = pq.Int64Array{2, 4}
	catalog := &mockCatalogRepo{categories: map[int64]string{2: "Hoodies", 4: "Socks"}}
	svc := newTestExportService(newRepoFromCoupons(coupon), catalog, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	assert.Equal(t, "Hoodies, Socks", rows[1][13])
}

func TestExport_EmailRestrictionsJoined(t *testing.T) {
	coupon := publishedCoupon(1, "MAIL")
	coupon.EmailRestrictions = pq.StringArray{"a@x.com", "b@y.com"}
	svc := newTestExportService(newRepoFromCoupons(coupon), &mockCatalogRepo{}, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	assert.Equal(t, "a@x.com, b@y.com", rows[1][15])
}

func TestExport_DescriptionWithCommaQuoted(t *testing.T) {
	coupon := publishedCoupon(1, "COMMA")
	coupon.Description = "10% off, today only"
	svc := newTestExportService(newRepoFromCoupons(coupon), &mockCatalogRepo{}, services.ExportOptions{})

	raw := runExport(t, svc)
	assert.Contains(t, string(raw), `"10% off, today only"`, "field with comma is quoted in raw bytes")
}

func TestExport_OrderPreserved(t *testing.T) {
	svc := newTestExportService(
		newRepoFromCoupons(publishedCoupon(1, "FIRST"), publishedCoupon(5, "SECOND"), publishedCoupon(9, "THIRD")),
		&mockCatalogRepo{},
		services.ExportOptions{},
	)

	rows := parseCSV(t, runExport(t, svc))
	assert.Equal(t, []string{"FIRST", "SECOND", "THIRD"}, []string{rows[1][0], rows[2][0], rows[3][0]})
}

func TestExport_Idempotent(t *testing.T) {
	repo := newRepoFromCoupons(publishedCoupon(1, "A"), publishedCoupon(2, "B"))
	svc := newTestExportService(repo, &mockCatalogRepo{}, services.ExportOptions{})

	first := runExport(t, svc)
	second := runExport(t, svc)
	assert.Equal(t, first, second, "unchanged source produces byte-identical CSV")
}

func TestExport_RoundTripRowCount(t *testing.T) {
	const total = 25
	repo := &mockCouponRepo{coupons: make(map[uint]*models.Coupon)}
	for i := uint(1); i <= total; i++ {
		c := publishedCoupon(i, fmt.Sprintf("CODE-%d", i))
		repo.ids = append(repo.ids, c.ID)
		repo.coupons[c.ID] = c
	}
	svc := newTestExportService(repo, &mockCatalogRepo{}, services.ExportOptions{})

	rows := parseCSV(t, runExport(t, svc))
	assert.Len(t, rows, total+1)
}

func TestCollect_EmptySourceFails(t *testing.T) {
	svc := newTestExportService(&mockCouponRepo{}, &mockCatalogRepo{}, services.ExportOptions{})

	ids, expErr := svc.CollectCouponIDs(context.Background())
	assert.Nil(t, ids)
	assert.NotNil(t, expErr)
	assert.Equal(t, services.ExportErrorNoCoupons, expErr.Kind)
}

func TestCollect_ListErrorIsInternal(t *testing.T) {
	svc := newTestExportService(&mockCouponRepo{listErr: errors.New("connection refused")}, &mockCatalogRepo{}, services.ExportOptions{})

	_, expErr := svc.CollectCouponIDs(context.Background())
	assert.NotNil(t, expErr)
	assert.Equal(t, services.ExportErrorInternal, expErr.Kind)
}

func TestCollect_MaxRowsCap(t *testing.T) {
	repo := newRepoFromCoupons(publishedCoupon(1, "A"), publishedCoupon(2, "B"), publishedCoupon(3, "C"))
	svc := newTestExportService(repo, &mockCatalogRepo{}, services.ExportOptions{MaxRows: 2})

	ids, expErr := svc.CollectCouponIDs(context.Background())
	assert.Nil(t, expErr)
	assert.Equal(t, []uint{1, 2}, ids)
}

func TestExport_HeaderFilter(t *testing.T) {
	opts := services.ExportOptions{
		HeaderFilter: func(headers []string) []string {
			return append(headers, "Notes")
		},
		RowFilter: func(row []string, _ *models.Coupon) []string {
			return append(row, "n/a")
		},
	}
	svc := newTestExportService(newRepoFromCoupons(publishedCoupon(1, "HOOKED")), &mockCatalogRepo{}, opts)

	rows := parseCSV(t, runExport(t, svc))
	assert.Len(t, rows[0], services.ExportColumnCount+1)
	assert.Equal(t, "Notes", rows[0][services.ExportColumnCount])
	assert.Equal(t, "n/a", rows[1][services.ExportColumnCount])
}

func TestExport_RowFilterDropsRow(t *testing.T) {
	opts := services.ExportOptions{
		RowFilter: func(row []string, coupon *models.Coupon) []string {
			if coupon.Code == "SKIPME" {
				return nil
			}
			return row
		},
	}
	svc := newTestExportService(
		newRepoFromCoupons(publishedCoupon(1, "KEEP"), publishedCoupon(2, "SKIPME")),
		&mockCatalogRepo{},
		opts,
	)

	rows := parseCSV(t, runExport(t, svc))
	assert.Len(t, rows, 2)
	assert.Equal(t, "KEEP", rows[1][0])
}

func TestFilename(t *testing.T) {
	svc := newTestExportService(&mockCouponRepo{}, &mockCatalogRepo{}, services.ExportOptions{StoreName: "My Store"})

	now := time.Date(2026, 1, 31, 14, 59, 59, 0, time.UTC)
	assert.Equal(t, "My-Store-coupons-2026-01-31-145959.csv", svc.Filename(now))
}

func TestFilename_DefaultStoreName(t *testing.T) {
	svc := newTestExportService(&mockCouponRepo{}, &mockCatalogRepo{}, services.ExportOptions{})

	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "woocommerce-coupons-2026-01-31-000000.csv", svc.Filename(now))
}
