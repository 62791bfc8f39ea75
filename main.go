package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rwc-labs/coupon-export-service/controllers"
	"github.com/rwc-labs/coupon-export-service/database"
	"github.com/rwc-labs/coupon-export-service/models"
	"github.com/rwc-labs/coupon-export-service/repository"
	"github.com/rwc-labs/coupon-export-service/routes"
	"github.com/rwc-labs/coupon-export-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	if err := database.Connect(database.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Name:     cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
		TimeZone: cfg.PostgresTimeZone,
	}); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	if err := database.DB.AutoMigrate(&models.Coupon{}, &models.Product{}, &models.ProductCategory{}); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	couponRepo := repository.NewGormCouponRepository(database.DB, cfg.ExportBatchSize)
	catalogRepo := repository.NewGormCatalogRepository(database.DB)
	tokenService := services.NewTokenService(cfg.ExportTokenSecret, cfg.ExportTokenTTL)
	exportService := services.NewExportService(couponRepo, catalogRepo, services.ExportOptions{
		StoreName: cfg.StoreName,
		MaxRows:   cfg.ExportMaxRows,
	}, logger)
	exportController := controllers.NewExportController(exportService, tokenService, logger)

	routes.RegisterExportRoutes(r, exportController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "coupon-export-service"})
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Coupon Export Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	log.Println("Coupon Export Service stopped gracefully")
}
