// Package api is the HTTP surface over the pricing engine.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lsmc/internal/api/handlers"
	"lsmc/internal/api/middleware"
	"lsmc/internal/metrics"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	MaxWorkers     int
}

// NewRouter wires middleware and routes.
func NewRouter(logger *zap.Logger, rec *metrics.Recorder, opts Options) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	router.GET("/health", handlers.Health)

	price := handlers.NewPriceHandler(logger, rec, opts.Timeout, opts.MaxWorkers)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/price", price.Price)
	}
	return router
}
