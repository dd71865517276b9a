package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/config"
	"catalog-service/internal/feed"
	"catalog-service/internal/importer"
	"catalog-service/internal/pricing"
	"catalog-service/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	feedPath := flag.String("feed", cfg.FeedFile, "path to the product feed JSON file")
	skipPricing := flag.Bool("skip-pricing", false, "load the feed without running price normalization")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Warn("Interrupt received, aborting import")
		cancel()
	}()

	stream, err := feed.Open(*feedPath, logger)
	if err != nil {
		logger.WithError(err).WithField("feed", *feedPath).Fatal("Failed to open feed file")
	}
	defer stream.Close()

	loader := importer.NewLoader(repository.NewImportRepository(db), logger)
	stats, err := loader.Run(ctx, stream, *feedPath)
	if err != nil {
		logger.WithError(err).Fatal("Import failed, no products were written")
	}

	logger.WithFields(logrus.Fields{
		"committed":    stats.Committed,
		"skipped":      stats.Skipped,
		"max_buffered": stream.MaxBuffered(),
	}).Info("Feed import committed")

	if *skipPricing {
		return
	}

	normalizer := pricing.NewNormalizer(
		repository.NewCatalogRepository(db, nil),
		logger,
		cfg.PriceScaleFactor,
		cfg.PriceFloor,
		cfg.PriceCeiling,
	)
	priceStats, err := normalizer.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Price normalization failed")
	}

	logger.WithFields(logrus.Fields{
		"updated": priceStats.Updated,
		"deleted": priceStats.Deleted,
		"failed":  priceStats.Failed,
	}).Info("Price normalization finished")
}
