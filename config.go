package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the coupon export service.
type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	// StoreName prefixes the CSV download filename.
	StoreName string
	// ExportTokenSecret signs the one-time export tokens.
	ExportTokenSecret string
	// ExportTokenTTL bounds how long an issued token stays valid.
	ExportTokenTTL time.Duration
	// ExportMaxRows caps a single export; 0 = unbounded.
	ExportMaxRows int
	// ExportBatchSize is the page size used while collecting coupon IDs.
	ExportBatchSize int
}

// LoadConfig reads configuration from the environment, with a .env file
// as optional local fallback.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8095"),
		Env:               getEnv("APP_ENV", "development"),
		PostgresUser:      os.Getenv("POSTGRES_USER"),
		PostgresPassword:  os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:        os.Getenv("POSTGRES_DB"),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:  getEnv("POSTGRES_TIMEZONE", "UTC"),
		StoreName:         getEnv("STORE_NAME", "woocommerce"),
		ExportTokenSecret: os.Getenv("EXPORT_TOKEN_SECRET"),
		ExportTokenTTL:    time.Duration(getEnvInt("EXPORT_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		ExportMaxRows:     getEnvInt("EXPORT_MAX_ROWS", 100000),
		ExportBatchSize:   getEnvInt("EXPORT_BATCH_SIZE", 100),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.ExportTokenSecret == "" {
		return nil, fmt.Errorf("EXPORT_TOKEN_SECRET not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
