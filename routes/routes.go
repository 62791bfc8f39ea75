package routes

import (
	"time"

	"github.com/rwc-labs/coupon-export-service/controllers"
	"github.com/rwc-labs/coupon-export-service/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RegisterExportRoutes sets up the admin coupon export routes.
func RegisterExportRoutes(r *gin.Engine, ec *controllers.ExportController) {
	admin := r.Group("/admin/coupons")

	admin.Use(middleware.RateLimitMiddleware(rate.Every(time.Minute/30), 10))
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.RequireStoreManager())

	admin.GET("/export", ec.ExportPage)
	admin.POST("/export/download", ec.DownloadExport)
}
