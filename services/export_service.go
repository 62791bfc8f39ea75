package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rwc-labs/coupon-export-service/models"
	"github.com/rwc-labs/coupon-export-service/repository"

	"go.uber.org/zap"
)

// ExportErrorKind tags fatal export failures so callers can branch on
// the failure class instead of parsing messages.
type ExportErrorKind string

const (
	ExportErrorUnauthorized ExportErrorKind = "unauthorized"
	ExportErrorSecurity     ExportErrorKind = "security"
	ExportErrorNoCoupons    ExportErrorKind = "no_coupons"
	ExportErrorInternal     ExportErrorKind = "internal"
)

// ExportError is a fatal, user-visible export failure. Per-coupon and
// per-ID problems are logged and skipped, never surfaced as ExportErrors.
type ExportError struct {
	Kind    ExportErrorKind
	Message string
}

func (e *ExportError) Error() string {
	return e.Message
}

// HeaderFilter may rewrite the header row before it is emitted.
type HeaderFilter func(headers []string) []string

// RowFilter may rewrite a data row before it is emitted. Returning nil
// drops the row.
type RowFilter func(row []string, coupon *models.Coupon) []string

// ExportOptions carries the tunable parts of an export.
type ExportOptions struct {
	// StoreName prefixes the download filename.
	StoreName string
	// MaxRows bounds the export size; 0 means unbounded.
	MaxRows int
	// HeaderFilter and RowFilter let the embedding host reshape the CSV.
	HeaderFilter HeaderFilter
	RowFilter    RowFilter
}

// ExportService runs the coupon export pipeline. CollectCouponIDs
// performs every fatal check; once StreamCSV starts writing, the only
// remaining failure mode is the output stream itself.
type ExportService interface {
	CollectCouponIDs(ctx context.Context) ([]uint, *ExportError)
	StreamCSV(ctx context.Context, out io.Writer, ids []uint) *ExportError
	Filename(now time.Time) string
}

type exportServiceImpl struct {
	coupons repository.CouponRepository
	mapper  *fieldMapper
	opts    ExportOptions
	logger  *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	coupons repository.CouponRepository,
	catalog repository.CatalogRepository,
	opts ExportOptions,
	logger *zap.Logger,
) ExportService {
	if opts.StoreName == "" {
		opts.StoreName = "woocommerce"
	}
	return &exportServiceImpl{
		coupons: coupons,
		mapper:  newFieldMapper(catalog, logger),
		opts:    opts,
		logger:  logger,
	}
}

// CollectCouponIDs fetches the full published coupon ID set in ascending
// order. An empty store is a fatal no-coupons failure so no header-only
// file is ever produced.
func (s *exportServiceImpl) CollectCouponIDs(ctx context.Context) ([]uint, *ExportError) {
	ids, err := s.coupons.ListPublishedIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list coupons for export", zap.Error(err))
		return nil, &ExportError{Kind: ExportErrorInternal, Message: "Failed to load coupons for export."}
	}
	if len(ids) == 0 {
		return nil, &ExportError{Kind: ExportErrorNoCoupons, Message: "No coupons found to export."}
	}
	if s.opts.MaxRows > 0 && len(ids) > s.opts.MaxRows {
		s.logger.Warn("Coupon export truncated to configured row cap",
			zap.Int("total", len(ids)),
			zap.Int("max_rows", s.opts.MaxRows),
		)
		ids = ids[:s.opts.MaxRows]
	}
	return ids, nil
}

// StreamCSV writes the BOM, the header row and one row per coupon ID, in
// the given order. Coupons that fail to load are logged and skipped; the
// export keeps going.
func (s *exportServiceImpl) StreamCSV(ctx context.Context, out io.Writer, ids []uint) *ExportError {
	streamer, err := newCSVStreamer(out)
	if err != nil {
		return s.streamError(err)
	}

	headers := CSVHeaders()
	if s.opts.HeaderFilter != nil {
		headers = s.opts.HeaderFilter(headers)
	}
	if err := streamer.WriteRow(headers); err != nil {
		return s.streamError(err)
	}

	for _, id := range ids {
		coupon, err := s.coupons.FindByID(ctx, id)
		if err != nil {
			s.logger.Error("Error processing coupon for export",
				zap.Uint("coupon_id", id),
				zap.Error(err),
			)
			continue
		}

		row := s.mapper.Row(ctx, coupon)
		if s.opts.RowFilter != nil {
			row = s.opts.RowFilter(row, coupon)
			if row == nil {
				continue
			}
		}
		if err := streamer.WriteRow(row); err != nil {
			return s.streamError(err)
		}
	}
	return nil
}

// Filename builds the timestamped attachment name, e.g.
// "woocommerce-coupons-2026-01-31-145959.csv".
func (s *exportServiceImpl) Filename(now time.Time) string {
	return fmt.Sprintf("%s-coupons-%s.csv",
		sanitizeFilename(s.opts.StoreName),
		now.UTC().Format("2006-01-02-150405"),
	)
}

func (s *exportServiceImpl) streamError(err error) *ExportError {
	s.logger.Error("Coupon export stream write failed", zap.Error(err))
	return &ExportError{Kind: ExportErrorInternal, Message: "Export stream write failed."}
}

// sanitizeFilename keeps the store prefix safe for a Content-Disposition
// filename: letters, digits, dot, dash and underscore pass through,
// everything else becomes a dash.
func sanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if mapped == "" {
		return "store"
	}
	return mapped
}
