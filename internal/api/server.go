// Package api provides the HTTP surface for TrendPulse: the public
// trend-query endpoints plus an operator-facing health/stats surface,
// served by a Gin-based HTTP server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendpulse/trendservice/internal/api/handlers"
	"github.com/trendpulse/trendservice/internal/api/middleware"
	"github.com/trendpulse/trendservice/internal/config"
	"github.com/trendpulse/trendservice/internal/gate"
	"github.com/trendpulse/trendservice/internal/ratelimit"
	"github.com/trendpulse/trendservice/internal/trend"
)

// Server is the TrendPulse HTTP API server.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// New assembles the Gin engine and HTTP server from the engine's
// collaborators. The concurrency gate is passed separately from the engine
// so the /internal/stats handler can report queue depth without the
// trend package needing to know about HTTP concerns.
func New(cfg *config.Config, logger *slog.Logger, trendEngine *trend.Engine, g *gate.Gate) *Server {
	if cfg == nil {
		panic("api.New: cfg is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.SlogRequestLogger(logger))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.New(cfg, logger, trendEngine, g)
	limiter := ratelimit.NewFromConfig(cfg.RateLimit)
	RegisterRoutes(engine, h, cfg, limiter)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, engine: engine, httpServer: httpServer}
}

// corsMiddleware allows browser-based dashboards on other origins to call
// the public /api/v1 trend-query endpoints, while still letting callers
// send the X-API-Key and X-Request-Id headers this API reads and sets.
func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Api-Key", "X-Request-Id")
	cfg.ExposeHeaders = append(cfg.ExposeHeaders, "X-Request-Id")
	return cors.New(cfg)
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
