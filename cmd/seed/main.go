package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/seed"
)

func main() {
	opts := seed.Options{}
	flag.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.IntVar(&opts.Users, "users", 10, "Number of users")
	flag.IntVar(&opts.Ingredients, "ingredients", 50, "Number of generated ingredients")
	flag.IntVar(&opts.RecipesPerUser, "recipes", 3, "Recipes per user")
	flag.IntVar(&opts.FavoritesPerUser, "favorites", 4, "Favorites per user")
	flag.IntVar(&opts.CartPerUser, "cart", 2, "Shopping cart entries per user")
	flag.StringVar(&opts.Password, "password", seed.DefaultPassword, "Password of every seeded user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	if _, err := seed.New(db, logger).Run(context.Background(), opts); err != nil {
		logger.WithError(err).Fatal("seeding failed")
	}
}
