// Package handlers implements the REST API endpoint handlers for TrendPulse.
//
// @title TrendPulse API
// @version 1.0
// @description REST API for submitting and scoring trend queries against a public trends data provider.
//
// @contact.name TrendPulse
// @contact.url https://github.com/trendpulse/trendservice
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/trendpulse/trendservice/internal/config"
	"github.com/trendpulse/trendservice/internal/gate"
	"github.com/trendpulse/trendservice/internal/trend"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	engine *trend.Engine
	gate   *gate.Gate
}

// New creates a new Handler with the given configuration and trend engine.
func New(cfg *config.Config, logger *slog.Logger, engine *trend.Engine, g *gate.Gate) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		engine:    engine,
		gate:      g,
	}
}
