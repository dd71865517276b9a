package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Feed ingestion
	FeedFile string

	// Similarity batch job
	SimilarityBatchLimit int

	// Pricing pass
	PriceScaleFactor float64
	PriceFloor       float64
	PriceCeiling     float64
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	simLimit, _ := strconv.Atoi(getEnv("SIM_LIMIT_PER_PRODUCT", "20"))
	scaleFactor, _ := strconv.ParseFloat(getEnv("PRICE_SCALE_FACTOR", "0.4"), 64)
	priceFloor, _ := strconv.ParseFloat(getEnv("PRICE_FLOOR", "300"), 64)
	priceCeiling, _ := strconv.ParseFloat(getEnv("PRICE_CEILING", "10000"), 64)

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		FeedFile: getEnv("FEED_FILE", "data/products.json"),

		SimilarityBatchLimit: simLimit,

		PriceScaleFactor: scaleFactor,
		PriceFloor:       priceFloor,
		PriceCeiling:     priceCeiling,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductSearch{},
		&models.SimilarityEdge{},
		&models.ImportRun{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}

	// Expression GIN index for the full-text queries over the search shadow
	// table; AutoMigrate cannot express it.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_product_search_text
		ON product_search USING GIN (
			to_tsvector('english', COALESCE(name, '') || ' ' || COALESCE(description, '') || ' ' || COALESCE(category, ''))
		)`).Error; err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
