package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/trendpulse/trendservice/internal/api"
	"github.com/trendpulse/trendservice/internal/cache"
	"github.com/trendpulse/trendservice/internal/config"
	"github.com/trendpulse/trendservice/internal/gate"
	"github.com/trendpulse/trendservice/internal/logging"
	"github.com/trendpulse/trendservice/internal/metrics"
	"github.com/trendpulse/trendservice/internal/querystore"
	"github.com/trendpulse/trendservice/internal/retry"
	"github.com/trendpulse/trendservice/internal/trend"
	"github.com/trendpulse/trendservice/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	dbPath     string
	host       string
	port       int
	jsonLogs   bool
	debug      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.dbPath, "db", "", "Override SQLite query store path")
	flag.StringVar(&f.host, "host", "", "Override HTTP server bind host")
	flag.IntVar(&f.port, "port", 0, "Override HTTP server bind port")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	configPath := config.ResolveConfigPath(flags.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("trendpulse starting",
		"database", cfg.Database.Path,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"redis", cfg.Cache.RedisAddr,
	)

	store, err := querystore.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open query store: %w", err)
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr, DB: cfg.Cache.RedisDB})
	defer rdb.Close()

	trendCache := cache.New(rdb, logging.Component(logger, "cache"))
	concurrencyGate := gate.New()
	connector := upstream.New(upstream.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   time.Duration(cfg.Upstream.TimeoutMS) * time.Millisecond,
		UserAgent: cfg.Upstream.UserAgent,
	})
	m := metrics.New(nil)

	engineCfg := trend.Config{
		FreshTTL:     time.Duration(cfg.Cache.FreshTTLSeconds) * time.Second,
		StaleTTL:     time.Duration(cfg.Cache.StaleTTLSeconds) * time.Second,
		RequestDelay: time.Duration(cfg.Retry.RequestDelayMS) * time.Millisecond,
		Retry: retry.Config{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseDelay:      time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
			BlockedPenalty: time.Duration(cfg.Retry.BlockedPenaltyMS) * time.Millisecond,
		},
	}
	engine := trend.New(engineCfg, trendCache, concurrencyGate, connector, store, m, logging.Component(logger, "trend"))

	apiSrv := api.New(cfg, logger, engine, concurrencyGate)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", apiSrv.Addr())
		if serveErr := apiSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", serveErr)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return apiSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info("trendpulse stopped")
	return nil
}
