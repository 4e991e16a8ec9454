package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/ingest"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	source := flag.String("file", "data/ingredients.csv", "CSV path or s3://bucket/key")
	batchSize := flag.Int("batch", 500, "Rows per insert")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx := context.Background()

	var s3cfg *config.S3Config
	if strings.HasPrefix(*source, "s3://") {
		if s3cfg, err = config.NewS3Config(ctx, cfg); err != nil {
			logger.WithError(err).Fatal("failed to initialize s3 client")
		}
	}

	rc, err := ingest.Open(ctx, *source, s3cfg)
	if err != nil {
		logger.WithError(err).WithField("source", *source).Fatal("failed to open ingredients file")
	}
	defer rc.Close()

	rows, err := ingest.ParseCSV(rc)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse ingredients file")
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	catalog := service.NewCatalogService(db, nil, logger)
	inserted, err := catalog.ImportIngredients(ctx, rows, *batchSize)
	if err != nil {
		logger.WithError(err).Fatal("failed to import ingredients")
	}
	logger.WithFields(logrus.Fields{"source": *source, "read": len(rows), "inserted": inserted}).
		Info("ingredients loaded")
}
