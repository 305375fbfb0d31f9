// Package trend implements the Trend Engine: the orchestrator that composes
// the cache, concurrency gate, retry envelope, upstream connector, scoring
// engine, and query store into the single execute(params, request_id)
// protocol described by the service's external contract.
package trend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trendpulse/trendservice/internal/apperr"
	"github.com/trendpulse/trendservice/internal/cache"
	"github.com/trendpulse/trendservice/internal/gate"
	"github.com/trendpulse/trendservice/internal/metrics"
	"github.com/trendpulse/trendservice/internal/querystore"
	"github.com/trendpulse/trendservice/internal/retry"
	"github.com/trendpulse/trendservice/internal/scoring"
	"github.com/trendpulse/trendservice/internal/upstream"
)

// Config parameterizes the engine's cache TTLs, retry policy, and the
// unconditional inter-request delay between the two upstream calls.
type Config struct {
	FreshTTL     time.Duration
	StaleTTL     time.Duration
	RequestDelay time.Duration
	Retry        retry.Config
}

// DefaultConfig returns the documented defaults: 86400s fresh, 172800s
// stale, 3 attempts at 5000ms base delay, a 4000ms inter-request delay.
func DefaultConfig() Config {
	return Config{
		FreshTTL:     24 * time.Hour,
		StaleTTL:     48 * time.Hour,
		RequestDelay: 4 * time.Second,
		Retry:        retry.DefaultConfig(),
	}
}

// Engine is the orchestrator. It holds no mutable state of its own beyond
// what its collaborators hold; the concurrency gate is the only process-wide
// shared resource.
type Engine struct {
	cfg       Config
	cache     *cache.Cache
	gate      *gate.Gate
	connector *upstream.Connector
	store     *querystore.DB
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New constructs an Engine from its collaborators.
func New(cfg Config, c *cache.Cache, g *gate.Gate, connector *upstream.Connector, store *querystore.DB, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, cache: c, gate: g, connector: connector, store: store, metrics: m, logger: logger}
}

type upstreamFetch struct {
	series    []upstream.Point
	byCountry []upstream.CountryPoint
}

// Execute runs the full query protocol described in the package doc: cache
// lookup, gated and retried upstream fetch, scoring, persistence, and the
// stale-fallback failure path.
func (e *Engine) Execute(ctx context.Context, params Params, requestID string) (*Response, error) {
	fp := cache.Fingerprint{
		Keyword:      params.Keyword,
		Country:      params.Country,
		WindowDays:   params.WindowDays,
		BaselineDays: params.BaselineDays,
	}

	if payload, ok := e.cache.GetFresh(ctx, fp); ok {
		var resp Response
		if err := json.Unmarshal(payload, &resp); err == nil {
			resp.Cache = CacheInfo{Hit: true, TTLSeconds: e.cache.TTL(ctx, fp)}
			resp.RequestID = requestID
			e.metrics.CacheHits.Inc()
			e.metrics.RecordOutcome("fresh_hit")
			return &resp, nil
		}
		e.logger.Warn("cached payload unreadable, falling through to upstream", "fingerprint", fp.String())
	}
	e.metrics.CacheMisses.Inc()

	queryID, err := e.store.CreateRunning(ctx, querystore.Params{
		Keyword:      params.Keyword,
		Country:      params.Country,
		WindowDays:   params.WindowDays,
		BaselineDays: params.BaselineDays,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to record query", err)
	}

	waitStart := time.Now()
	if err := e.gate.Acquire(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "interrupted while waiting for upstream access", err)
	}
	e.metrics.ObserveGateWait(time.Since(waitStart))
	defer e.gate.Release()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -params.BaselineDays)

	fetch, attempts, fetchErr := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context, attempt int) (upstreamFetch, error) {
		series, err := e.connector.FetchSeries(ctx, params.Keyword, params.Country, start, end)
		if err != nil {
			return upstreamFetch{}, err
		}
		if err := retry.Sleep(ctx, e.cfg.RequestDelay); err != nil {
			return upstreamFetch{}, err
		}
		byCountry, err := e.connector.FetchByCountry(ctx, params.Keyword, SupportedCountries)
		if err != nil {
			return upstreamFetch{}, err
		}
		return upstreamFetch{series: series, byCountry: byCountry}, nil
	})
	e.metrics.ObserveRetryAttempts(attempts)

	if fetchErr != nil {
		return e.handleUpstreamFailure(ctx, fp, queryID, requestID, attempts, fetchErr)
	}

	values := make([]int, len(fetch.series))
	series := make([]SeriesPoint, len(fetch.series))
	for i, p := range fetch.series {
		values[i] = p.Value
		series[i] = SeriesPoint{Date: p.Date, Value: p.Value}
	}

	scoreStart := time.Now()
	scored := scoring.Score(values, params.Keyword, params.Country)
	e.metrics.ObserveScoring(time.Since(scoreStart))

	byCountry := make([]CountryPoint, len(fetch.byCountry))
	for i, p := range fetch.byCountry {
		byCountry[i] = CountryPoint{Country: p.Country, Value: p.Value}
	}

	resp := &Response{
		Keyword:      params.Keyword,
		Country:      params.Country,
		WindowDays:   params.WindowDays,
		BaselineDays: params.BaselineDays,
		GeneratedAt:  time.Now().UTC(),
		SourcesUsed:  []string{"google_trends"},
		TrendScore:   scored.TrendScore,
		Signals: Signals{
			Growth7vs30:   scored.Signals.Growth7vs30,
			Slope14d:      scored.Signals.Slope14d,
			RecentPeak30d: scored.Signals.RecentPeak30d,
		},
		Series:    series,
		ByCountry: byCountry,
		Explain:   scored.Explanations,
		Cache:     CacheInfo{Hit: false, TTLSeconds: int(e.cfg.FreshTTL.Seconds())},
		RequestID: requestID,
	}

	e.persist(ctx, queryID, scored, series, byCountry)

	if payload, err := json.Marshal(resp); err != nil {
		e.logger.Warn("failed to encode response for cache", "error", err)
	} else {
		e.cache.Set(ctx, fp, payload, e.cfg.FreshTTL, e.cfg.StaleTTL)
	}

	e.metrics.RecordOutcome("done")
	return resp, nil
}

// persist writes the result and marks the query done, logging (not
// surfacing) any failure — the caller already has a successful response.
func (e *Engine) persist(ctx context.Context, queryID string, scored scoring.Result, series []SeriesPoint, byCountry []CountryPoint) {
	storeSeries := make([]querystore.SeriesPoint, len(series))
	for i, p := range series {
		storeSeries[i] = querystore.SeriesPoint{Date: p.Date, Value: p.Value}
	}
	storeCountry := make([]querystore.CountryPoint, len(byCountry))
	for i, p := range byCountry {
		storeCountry[i] = querystore.CountryPoint{Country: p.Country, Value: p.Value}
	}

	err := e.store.PersistResult(ctx, queryID, querystore.ResultInput{
		TrendScore:   scored.TrendScore,
		GrowthSignal: scored.Signals.Growth7vs30,
		SlopeSignal:  scored.Signals.Slope14d,
		PeakSignal:   scored.Signals.RecentPeak30d,
		Explanations: scored.Explanations,
		SourcesUsed:  []string{"google_trends"},
		Series:       storeSeries,
		ByCountry:    storeCountry,
	})
	if err != nil {
		e.logger.Error("failed to persist trend result", "query_id", queryID, "error", err)
		return
	}
	if err := e.store.MarkDone(ctx, queryID); err != nil {
		e.logger.Error("failed to mark query done", "query_id", queryID, "error", err)
	}
}

// handleUpstreamFailure implements step 4's failure path: mark the query as
// errored, prefer a stale cache hit, and otherwise surface a structured
// error distinguishing "no data" from a generic provider failure.
func (e *Engine) handleUpstreamFailure(ctx context.Context, fp cache.Fingerprint, queryID, requestID string, attempts int, fetchErr error) (*Response, error) {
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		// Caller went away mid-flight: skip cache write and persistence entirely.
		return nil, fetchErr
	}

	if err := e.store.MarkError(ctx, queryID, fetchErr.Error()); err != nil {
		e.logger.Error("failed to mark query error", "query_id", queryID, "error", err)
	}

	if stale, ok := e.cache.GetStale(ctx, fp); ok {
		var resp Response
		if err := json.Unmarshal(stale.Data, &resp); err == nil {
			resp.SourcesUsed = []string{"stale_cache"}
			resp.Cache = CacheInfo{Hit: true, TTLSeconds: 0}
			resp.RequestID = requestID
			resp.AgeSeconds = int(time.Since(stale.CachedAt).Seconds())
			cachedAt := stale.CachedAt
			resp.CachedAt = &cachedAt
			e.metrics.StaleServed.Inc()
			e.metrics.RecordOutcome("stale_fallback")
			return &resp, nil
		}
		e.logger.Warn("stale cache entry unreadable", "fingerprint", fp.String())
	}

	e.metrics.UpstreamFailures.Inc()
	e.metrics.RecordOutcome("error")

	if errors.Is(fetchErr, upstream.ErrNoData) {
		return nil, apperr.Wrap(apperr.KindDataNotFound, "no data for this keyword", fetchErr).WithAttempts(attempts)
	}

	var retryErr *retry.Error
	kind := apperr.KindProviderUnavailable
	if errors.As(fetchErr, &retryErr) && retry.IsBlocked(retryErr.Last) {
		kind = apperr.KindProviderBlocked
	}
	return nil, apperr.Wrap(kind, fmt.Sprintf("upstream provider unavailable after %d attempts", attempts), fetchErr).
		WithAttempts(attempts).
		WithDetails(map[string]any{"attempts": attempts})
}
