package controllers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rwc-labs/coupon-export-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Token actions used by the export flow.
const (
	ExportTokenAction = "coupon-export"
	ErrorTokenAction  = "coupon-export-error"
)

// ExportPagePath is where failed exports redirect back to.
const ExportPagePath = "/admin/coupons/export"

// ExportController handles the coupon export page and download.
type ExportController struct {
	exportService services.ExportService
	tokens        *services.TokenService
	logger        *zap.Logger
}

// NewExportController creates a new ExportController.
func NewExportController(exportService services.ExportService, tokens *services.TokenService, logger *zap.Logger) *ExportController {
	return &ExportController{exportService: exportService, tokens: tokens, logger: logger}
}

// ExportPage handles GET /admin/coupons/export. It hands out a fresh
// one-time export token and, after a failed export redirect, echoes the
// error message only when the accompanying error token verifies.
func (ec *ExportController) ExportPage(ctx *gin.Context) {
	token, err := ec.tokens.Issue(ExportTokenAction)
	if err != nil {
		ec.logger.Error("Failed to issue export token", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare export"})
		return
	}

	resp := gin.H{"export_token": token}
	if ctx.Query("error") == "1" {
		if ec.tokens.Verify(ctx.Query("token"), ErrorTokenAction) {
			resp["error"] = ctx.Query("message")
		}
	}
	ctx.JSON(http.StatusOK, resp)
}

// DownloadExport handles POST /admin/coupons/export/download. All fatal
// checks run before the first byte; once streaming starts the response
// is committed.
func (ec *ExportController) DownloadExport(ctx *gin.Context) {
	token := ctx.PostForm("export_token")
	if token == "" {
		token = ctx.Query("export_token")
	}
	if !ec.tokens.Verify(token, ExportTokenAction) {
		ec.redirectWithError(ctx, "Security check failed.")
		return
	}

	ids, expErr := ec.exportService.CollectCouponIDs(ctx.Request.Context())
	if expErr != nil {
		ec.redirectWithError(ctx, expErr.Message)
		return
	}

	filename := ec.exportService.Filename(time.Now())
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Header("Pragma", "no-cache")
	ctx.Header("Expires", "0")
	ctx.Status(http.StatusOK)

	if expErr := ec.exportService.StreamCSV(ctx.Request.Context(), ctx.Writer, ids); expErr != nil {
		// Headers and part of the body are already on the wire; the
		// failure is logged inside the service, nothing to send here.
		ctx.Abort()
	}
}

// redirectWithError sends the admin back to the export page with the
// failure message. The message is guarded by a fresh one-time error
// token so it cannot be injected or replayed via the query string.
func (ec *ExportController) redirectWithError(ctx *gin.Context, message string) {
	ec.logger.Error("Coupon export rejected", zap.String("reason", message))

	q := url.Values{}
	q.Set("error", "1")
	q.Set("message", message)
	if errToken, err := ec.tokens.Issue(ErrorTokenAction); err == nil {
		q.Set("token", errToken)
	} else {
		ec.logger.Error("Failed to issue error token", zap.Error(err))
	}
	ctx.Redirect(http.StatusSeeOther, ExportPagePath+"?"+q.Encode())
}
