package trend

import "time"

// Params is the validated input to Execute. Validation itself (keyword
// length, supported country, window/baseline enums) is the outer framing
// layer's responsibility; by the time the engine sees Params it is trusted.
type Params struct {
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
}

// SeriesPoint is one datum of the response's value-over-time series.
type SeriesPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// CountryPoint is one datum of the response's cross-country comparison.
type CountryPoint struct {
	Country string `json:"country"`
	Value   int    `json:"value"`
}

// CacheInfo annotates whether the response was served from cache.
type CacheInfo struct {
	Hit        bool `json:"hit"`
	TTLSeconds int  `json:"ttl_seconds"`
}

// Signals mirrors scoring.Signals for the response's JSON shape.
type Signals struct {
	Growth7vs30   float64 `json:"growth_7_vs_30"`
	Slope14d      float64 `json:"slope_14d"`
	RecentPeak30d float64 `json:"recent_peak_30d"`
}

// Response is the full JSON body returned for a query, and the payload
// shape written to and read back from the cache.
type Response struct {
	Keyword      string        `json:"keyword"`
	Country      string        `json:"country"`
	WindowDays   int           `json:"window_days"`
	BaselineDays int           `json:"baseline_days"`
	GeneratedAt  time.Time     `json:"generated_at"`
	SourcesUsed  []string      `json:"sources_used"`
	TrendScore   float64       `json:"trend_score"`
	Signals      Signals       `json:"signals"`
	Series       []SeriesPoint `json:"series"`
	ByCountry    []CountryPoint `json:"by_country"`
	Explain      []string      `json:"explain"`
	Cache        CacheInfo     `json:"cache"`
	RequestID    string        `json:"request_id"`
	AgeSeconds   int           `json:"age_seconds,omitempty"`
	CachedAt     *time.Time    `json:"cached_at,omitempty"`
}
