package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/cache"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	if config.GetEnvironment() == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var denylist service.TokenDenylist
	if redisClient != nil {
		denylist = cache.NewDenylist(redisClient)
	}

	var limiter *middleware.RateLimiter
	if redisClient != nil && cfg.RecipeCreationLimit > 0 {
		limiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreationLimit)
	}

	services := api.Services{
		Auth:          service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, denylist, logger),
		Users:         service.NewUserService(db, logger),
		Catalog:       service.NewCatalogService(db, cache.New(redisClient, logger), logger),
		Recipes:       service.NewRecipeService(db, logger),
		Favorites:     service.NewFavoriteToggle(db, logger),
		Cart:          service.NewShoppingCartToggle(db, logger),
		Follows:       service.NewFollowToggle(db, logger),
		ShoppingList:  service.NewShoppingListService(db, logger),
		CreateLimiter: limiter,
		PageSize:      cfg.PageSize,
	}

	handler := router.SetupRouter(router.Options{
		DB:          db,
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins,
		Services:    services,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("env", config.GetEnvironment()).Info("starting server")
	return server.New(cfg.Addr(), handler, logger).Run(ctx)
}
