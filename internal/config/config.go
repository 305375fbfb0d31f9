// Package config provides configuration loading and validation for TrendPulse.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/trendservice/main.go)
//  2. Environment variables (TRENDPULSE_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from TRENDPULSE_CATEGORY_SETTING format,
// e.g., TRENDPULSE_CACHE_FRESH_TTL_SECONDS maps to cache.fresh_ttl_seconds in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("TRENDPULSE_CONFIG")); v != "" {
		return v
	}
	return ""
}

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses TRENDPULSE_ prefix: TRENDPULSE_SERVER_HOST -> server.host
	v.SetEnvPrefix("TRENDPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values. Defaults mirror spec.md §6's
// documented defaults for the cache, retry, and gate components.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("upstream.base_url", "https://trends.google.com/trends/api")
	v.SetDefault("upstream.timeout_ms", 10000)
	v.SetDefault("upstream.user_agent", "trendpulse/1.0")

	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.fresh_ttl_seconds", 86400)
	v.SetDefault("cache.stale_ttl_seconds", 172800)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 5000)
	v.SetDefault("retry.blocked_penalty_ms", 3000)
	v.SetDefault("retry.request_delay_ms", 4000)

	v.SetDefault("gate.concurrency", 1)

	v.SetDefault("database.path", "trendpulse.db")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("rate_limit.cleanup_seconds", 60.0)
	v.SetDefault("rate_limit.max_ip_entries", 65536)
	v.SetDefault("rate_limit.max_prefix_entries", 16384)
	v.SetDefault("rate_limit.global_qps", 1000.0)
	v.SetDefault("rate_limit.global_burst", 2000)
	v.SetDefault("rate_limit.prefix_qps", 200.0)
	v.SetDefault("rate_limit.prefix_burst", 400)
	v.SetDefault("rate_limit.ip_qps", 5.0)
	v.SetDefault("rate_limit.ip_burst", 20)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.api_key", "")
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadServerConfig(v, cfg)
	loadUpstreamConfig(v, cfg)
	loadCacheConfig(v, cfg)
	loadRetryConfig(v, cfg)
	loadGateConfig(v, cfg)
	loadDatabaseConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadRateLimitConfig(v, cfg)
	loadAPIConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadServerConfig(v *viper.Viper, cfg *Config) {
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
}

func loadUpstreamConfig(v *viper.Viper, cfg *Config) {
	cfg.Upstream.BaseURL = v.GetString("upstream.base_url")
	cfg.Upstream.TimeoutMS = v.GetInt("upstream.timeout_ms")
	cfg.Upstream.UserAgent = v.GetString("upstream.user_agent")
}

func loadCacheConfig(v *viper.Viper, cfg *Config) {
	cfg.Cache.RedisAddr = v.GetString("cache.redis_addr")
	cfg.Cache.RedisDB = v.GetInt("cache.redis_db")
	cfg.Cache.FreshTTLSeconds = v.GetInt("cache.fresh_ttl_seconds")
	cfg.Cache.StaleTTLSeconds = v.GetInt("cache.stale_ttl_seconds")
}

func loadRetryConfig(v *viper.Viper, cfg *Config) {
	cfg.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	cfg.Retry.BaseDelayMS = v.GetInt("retry.base_delay_ms")
	cfg.Retry.BlockedPenaltyMS = v.GetInt("retry.blocked_penalty_ms")
	cfg.Retry.RequestDelayMS = v.GetInt("retry.request_delay_ms")
}

func loadGateConfig(v *viper.Viper, cfg *Config) {
	cfg.Gate.Concurrency = v.GetInt("gate.concurrency")
}

func loadDatabaseConfig(v *viper.Viper, cfg *Config) {
	cfg.Database.Path = v.GetString("database.path")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadRateLimitConfig(v *viper.Viper, cfg *Config) {
	cfg.RateLimit.CleanupSeconds = v.GetFloat64("rate_limit.cleanup_seconds")
	cfg.RateLimit.MaxIPEntries = v.GetInt("rate_limit.max_ip_entries")
	cfg.RateLimit.MaxPrefixEntries = v.GetInt("rate_limit.max_prefix_entries")
	cfg.RateLimit.GlobalQPS = v.GetFloat64("rate_limit.global_qps")
	cfg.RateLimit.GlobalBurst = v.GetInt("rate_limit.global_burst")
	cfg.RateLimit.PrefixQPS = v.GetFloat64("rate_limit.prefix_qps")
	cfg.RateLimit.PrefixBurst = v.GetInt("rate_limit.prefix_burst")
	cfg.RateLimit.IPQPS = v.GetFloat64("rate_limit.ip_qps")
	cfg.RateLimit.IPBurst = v.GetInt("rate_limit.ip_burst")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.APIKey = v.GetString("api.api_key")
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	if cfg.Gate.Concurrency != 1 {
		return errors.New("gate.concurrency must be 1 by design")
	}

	if cfg.Cache.FreshTTLSeconds <= 0 {
		return errors.New("cache.fresh_ttl_seconds must be positive")
	}
	if cfg.Cache.StaleTTLSeconds <= cfg.Cache.FreshTTLSeconds {
		return errors.New("cache.stale_ttl_seconds must exceed cache.fresh_ttl_seconds")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "trendpulse.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	return nil
}
