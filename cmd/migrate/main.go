package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if *rollback {
		name, err := database.Rollback(ctx, db, migrationsDir, logger)
		if errors.Is(err, database.ErrNoMigrations) {
			logger.Info("no migrations to rollback")
			return
		}
		if err != nil {
			logger.WithError(err).Fatal("rollback failed")
		}
		logger.WithField("migration", name).Info("successfully rolled back migration")
		return
	}

	applied, err := database.ApplyMigrations(ctx, db, migrationsDir, logger)
	if err != nil {
		logger.WithError(err).Fatal("migration failed")
	}
	logger.WithField("applied", len(applied)).Info("all migrations applied successfully")
}
