// Package config provides configuration loading for TrendPulse using Viper.
// Configuration is loaded from YAML files with automatic environment variable binding.
//
// Environment variables use the TRENDPULSE_ prefix and underscore-separated keys:
//   - TRENDPULSE_SERVER_HOST -> server.host
//   - TRENDPULSE_SERVER_PORT -> server.port
//   - TRENDPULSE_CACHE_FRESH_TTL_SECONDS -> cache.fresh_ttl_seconds
//   - TRENDPULSE_DATABASE_PATH -> database.path
package config

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// UpstreamConfig contains the trend data provider's connector settings.
type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url"    mapstructure:"base_url"`
	TimeoutMS  int    `yaml:"timeout_ms"  mapstructure:"timeout_ms"`
	UserAgent  string `yaml:"user_agent"  mapstructure:"user_agent"`
}

// CacheConfig contains the fresh/stale Redis cache settings.
type CacheConfig struct {
	RedisAddr       string `yaml:"redis_addr"        mapstructure:"redis_addr"`
	RedisDB         int    `yaml:"redis_db"          mapstructure:"redis_db"`
	FreshTTLSeconds int    `yaml:"fresh_ttl_seconds" mapstructure:"fresh_ttl_seconds"`
	StaleTTLSeconds int    `yaml:"stale_ttl_seconds" mapstructure:"stale_ttl_seconds"`
}

// RetryConfig contains the upstream retry envelope's policy.
type RetryConfig struct {
	MaxAttempts         int `yaml:"max_attempts"          mapstructure:"max_attempts"`
	BaseDelayMS         int `yaml:"base_delay_ms"         mapstructure:"base_delay_ms"`
	BlockedPenaltyMS    int `yaml:"blocked_penalty_ms"    mapstructure:"blocked_penalty_ms"`
	RequestDelayMS      int `yaml:"request_delay_ms"      mapstructure:"request_delay_ms"`
}

// GateConfig contains the internal concurrency gate's settings. Concurrency
// is fixed at 1 by design; the field exists so the value is validated
// rather than silently assumed.
type GateConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// DatabaseConfig contains the query store's SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"             json:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"        json:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format" json:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"       json:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"      json:"extra_fields,omitempty"`
}

// RateLimitConfig controls the outer HTTP layer's token-bucket rate limiter.
// This is distinct from the internal concurrency gate: it bounds inbound
// request rate per caller, not outbound upstream concurrency.
type RateLimitConfig struct {
	CleanupSeconds   float64 `yaml:"cleanup_seconds"     mapstructure:"cleanup_seconds"     json:"cleanup_seconds"`
	MaxIPEntries     int     `yaml:"max_ip_entries"      mapstructure:"max_ip_entries"      json:"max_ip_entries"`
	MaxPrefixEntries int     `yaml:"max_prefix_entries"  mapstructure:"max_prefix_entries"  json:"max_prefix_entries"`
	GlobalQPS        float64 `yaml:"global_qps"          mapstructure:"global_qps"          json:"global_qps"`
	GlobalBurst      int     `yaml:"global_burst"        mapstructure:"global_burst"        json:"global_burst"`
	PrefixQPS        float64 `yaml:"prefix_qps"          mapstructure:"prefix_qps"          json:"prefix_qps"`
	PrefixBurst      int     `yaml:"prefix_burst"        mapstructure:"prefix_burst"        json:"prefix_burst"`
	IPQPS            float64 `yaml:"ip_qps"              mapstructure:"ip_qps"              json:"ip_qps"`
	IPBurst          int     `yaml:"ip_burst"            mapstructure:"ip_burst"            json:"ip_burst"`
}

// APIConfig contains operator-surface settings (/internal/*).
//
// Note: APIKey is intentionally treated as a secret and should not be returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"     mapstructure:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"   mapstructure:"upstream"`
	Cache     CacheConfig     `yaml:"cache"      mapstructure:"cache"`
	Retry     RetryConfig     `yaml:"retry"      mapstructure:"retry"`
	Gate      GateConfig      `yaml:"gate"       mapstructure:"gate"`
	Database  DatabaseConfig  `yaml:"database"   mapstructure:"database"`
	Logging   LoggingConfig   `yaml:"logging"    mapstructure:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	API       APIConfig       `yaml:"api"        mapstructure:"api"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (TRENDPULSE_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
