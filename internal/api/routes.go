package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/trendpulse/trendservice/internal/api/handlers"
	"github.com/trendpulse/trendservice/internal/api/middleware"
	"github.com/trendpulse/trendservice/internal/config"
	"github.com/trendpulse/trendservice/internal/ratelimit"

	_ "github.com/trendpulse/trendservice/internal/api/docs" // swagger docs
)

// RegisterRoutes wires the route table documented in SPEC_FULL.md §6.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config, limiter *ratelimit.Limiter) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	api.POST("/trends", h.SubmitTrendQuery)
	api.GET("/trends/countries", h.ListSupportedCountries)

	internal := r.Group("/internal")
	if cfg != nil && cfg.API.Enabled && cfg.API.APIKey != "" {
		internal.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}
	internal.GET("/health", h.Health)
	internal.GET("/stats", h.Stats)
}
