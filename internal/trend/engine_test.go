package trend_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendpulse/trendservice/internal/apperr"
	"github.com/trendpulse/trendservice/internal/cache"
	"github.com/trendpulse/trendservice/internal/gate"
	"github.com/trendpulse/trendservice/internal/metrics"
	"github.com/trendpulse/trendservice/internal/querystore"
	"github.com/trendpulse/trendservice/internal/retry"
	"github.com/trendpulse/trendservice/internal/trend"
	"github.com/trendpulse/trendservice/internal/upstream"
)

// testEnv bundles everything needed to construct an *trend.Engine against
// fakes: a miniredis-backed cache, a temp-dir sqlite store, and an
// httptest server standing in for the upstream provider.
type testEnv struct {
	engine *trend.Engine
	server *httptest.Server
	store  *querystore.DB
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, cfg trend.Config) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(rdb, nil)

	dir := t.TempDir()
	store, err := querystore.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	connector := upstream.New(upstream.Config{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		UserAgent: "trendpulse-test/1.0",
	})

	m := metrics.New(prometheus.NewRegistry())
	g := gate.New()

	engine := trend.New(cfg, c, g, connector, store, m, nil)
	return &testEnv{engine: engine, server: server, store: store, mr: mr}
}

func fastConfig() trend.Config {
	cfg := trend.DefaultConfig()
	cfg.RequestDelay = time.Millisecond
	cfg.Retry = retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, BlockedPenalty: time.Millisecond}
	return cfg
}

func goodParams() trend.Params {
	return trend.Params{Keyword: "bitcoin", Country: "MX", WindowDays: 30, BaselineDays: 90}
}

// successHandler serves a 30-day ramp for the timeline endpoint and a fixed
// three-country spread for the geomap endpoint.
func successHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/widgetdata/multiline":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `)]}'`+"\n"+timelineJSON(30))
		case "/explore/geomap":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `)]}'`+"\n"+geomapJSON())
		default:
			http.NotFound(w, r)
		}
	}
}

func timelineJSON(days int) string {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := ""
	for i := 0; i < days; i++ {
		if i > 0 {
			rows += ","
		}
		t := base.AddDate(0, 0, i)
		rows += fmt.Sprintf(`{"time":"%d","value":[%d]}`, t.Unix(), 10+i)
	}
	return fmt.Sprintf(`{"default":{"timelineData":[%s]}}`, rows)
}

func geomapJSON() string {
	return `{"default":{"geoMapData":[
		{"geoCode":"MX","value":[80]},
		{"geoCode":"ES","value":[90]},
		{"geoCode":"CR","value":[10]}
	]}}`
}

func blockedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<!DOCTYPE html><html><body>are you a robot?</body></html>")
	}
}

func unavailableHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad gateway")
	}
}

func noDataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/widgetdata/multiline":
			fmt.Fprint(w, `{"default":{"timelineData":[]}}`)
		default:
			fmt.Fprint(w, geomapJSON())
		}
	}
}

func TestExecute_SuccessPersistsAndCaches(t *testing.T) {
	env := newTestEnv(t, successHandler(t), fastConfig())

	resp, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.NoError(t, err)
	assert.False(t, resp.Cache.Hit)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Len(t, resp.Series, 30)
	assert.Len(t, resp.ByCountry, 3)
	assert.Equal(t, "ES", resp.ByCountry[0].Country) // highest value sorts first
	assert.NotEmpty(t, resp.Explain)

	// Second call should now be a fresh cache hit and never touch upstream
	// again (the server would 404 any unexpected path, but we simply assert
	// the hit flag and unchanged score instead of tearing down the server).
	resp2, err := env.engine.Execute(context.Background(), goodParams(), "req-2")
	require.NoError(t, err)
	assert.True(t, resp2.Cache.Hit)
	assert.Equal(t, "req-2", resp2.RequestID)
	assert.Equal(t, resp.TrendScore, resp2.TrendScore)
}

func TestExecute_CacheHitSkipsUpstream(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		successHandler(t)(w, r)
	}
	env := newTestEnv(t, handler, fastConfig())

	_, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.NoError(t, err)
	firstCalls := atomic.LoadInt32(&calls)
	assert.Positive(t, firstCalls)

	_, err = env.engine.Execute(context.Background(), goodParams(), "req-2")
	require.NoError(t, err)
	assert.Equal(t, firstCalls, atomic.LoadInt32(&calls), "cache hit must not re-invoke upstream")
}

func TestExecute_NoDataSurfacesDataNotFound(t *testing.T) {
	env := newTestEnv(t, noDataHandler(), fastConfig())

	_, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindDataNotFound))
}

func TestExecute_BlockedResponseClassifiedAsProviderBlocked(t *testing.T) {
	env := newTestEnv(t, blockedHandler(), fastConfig())

	_, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindProviderBlocked))
}

func TestExecute_GenericFailureClassifiedAsProviderUnavailable(t *testing.T) {
	env := newTestEnv(t, unavailableHandler(), fastConfig())

	_, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindProviderUnavailable))
}

func TestExecute_StaleFallbackAfterUpstreamFailure(t *testing.T) {
	var fail int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&fail) == 1 {
			unavailableHandler()(w, r)
			return
		}
		successHandler(t)(w, r)
	}
	env := newTestEnv(t, handler, fastConfig())

	resp, err := env.engine.Execute(context.Background(), goodParams(), "req-1")
	require.NoError(t, err)
	require.False(t, resp.Cache.Hit)

	env.mr.FastForward(25 * time.Hour) // past fresh TTL, within stale TTL
	atomic.StoreInt32(&fail, 1)

	resp2, err := env.engine.Execute(context.Background(), goodParams(), "req-2")
	require.NoError(t, err)
	assert.True(t, resp2.Cache.Hit)
	assert.Equal(t, []string{"stale_cache"}, resp2.SourcesUsed)
	assert.Equal(t, "req-2", resp2.RequestID)
	assert.GreaterOrEqual(t, resp2.AgeSeconds, 0)
}

func TestExecute_ContextCanceledBeforeExecuteReturnsError(t *testing.T) {
	env := newTestEnv(t, successHandler(t), fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.engine.Execute(ctx, goodParams(), "req-1")
	require.Error(t, err)
}

// TestExecute_GateSerializesConcurrentCalls asserts the concurrency gate
// admits overlapping Execute calls for distinct fingerprints one at a time,
// never running two upstream round-trips concurrently.
func TestExecute_GateSerializesConcurrentCalls(t *testing.T) {
	var inFlight int32
	var maxInFlight int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		successHandler(t)(w, r)
	}
	env := newTestEnv(t, handler, fastConfig())

	var wg sync.WaitGroup
	countries := []string{"MX", "CR", "ES"}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(country string) {
			defer wg.Done()
			params := trend.Params{Keyword: "bitcoin", Country: country, WindowDays: 30, BaselineDays: 90}
			_, err := env.engine.Execute(context.Background(), params, "req-concurrent")
			assert.NoError(t, err)
		}(countries[i])
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(1))
}
