package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/config"
	"catalog-service/internal/repository"
	"catalog-service/internal/similarity"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

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
		logger.Warn("Interrupt received, aborting rebuild")
		cancel()
	}()

	rebuilder := similarity.NewRebuilder(
		repository.NewCatalogRepository(db, nil),
		repository.NewSimilarityRepository(db),
		cfg.SimilarityBatchLimit,
		logger,
	)

	stats, err := rebuilder.Rebuild(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Similarity rebuild failed")
	}

	logger.WithFields(logrus.Fields{
		"sources": stats.Sources,
		"edges":   stats.Edges,
	}).Info("Similarity rebuild finished")
}
