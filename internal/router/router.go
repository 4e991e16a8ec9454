package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Options configures SetupRouter
type Options struct {
	DB          *gorm.DB
	Log         logrus.FieldLogger
	CORSOrigins []string
	Services    api.Services
}

// SetupRouter configures the application routes
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(opts.Log),
		middleware.Metrics(),
		middleware.CORS(opts.CORSOrigins),
	)

	router.GET("/health", health(opts.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.RegisterRoutes(router.Group("/api"), opts.Services)

	return router
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, db); err != nil {
			middleware.Logger(c).WithError(err).Error("database health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
