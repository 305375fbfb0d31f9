package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendpulse/trendservice/internal/upstream"
)

func newConnector(t *testing.T, handler http.HandlerFunc) *upstream.Connector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return upstream.New(upstream.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, UserAgent: "test"})
}

func TestFetchSeries_ParsesAndSortsAscending(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`)]}'
{"default":{"timelineData":[
  {"time":"1700000000","value":[10]},
  {"time":"1699913600","value":[5]}
]}}`))
	})

	start := time.Unix(1699900000, 0)
	end := time.Unix(1700000000, 0)
	points, err := c.FetchSeries(context.Background(), "bitcoin", "MX", start, end)

	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Date < points[1].Date)
}

func TestFetchSeries_EmptyTimelineIsNoData(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"default":{"timelineData":[]}}`))
	})

	_, err := c.FetchSeries(context.Background(), "nothing", "CR", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, upstream.ErrNoData)
}

func TestFetchSeries_HTMLBodyIsBlockedSignature(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>blocked</body></html>"))
	})

	_, err := c.FetchSeries(context.Background(), "bitcoin", "MX", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCTYPE")
}

func TestFetchSeries_UpstreamErrorStatus(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchSeries(context.Background(), "bitcoin", "MX", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchByCountry_FiltersAndSortsDescending(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"default":{"geoMapData":[
  {"geoCode":"MX","value":[80]},
  {"geoCode":"ES","value":[95]},
  {"geoCode":"FR","value":[100]}
]}}`))
	})

	points, err := c.FetchByCountry(context.Background(), "bitcoin", []string{"MX", "CR", "ES"})

	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "ES", points[0].Country)
	assert.Equal(t, 95, points[0].Value)
	assert.Equal(t, "MX", points[1].Country)
	assert.Equal(t, "CR", points[2].Country)
	assert.Equal(t, 0, points[2].Value)
}

func TestFetchByCountry_TiesBrokenByCountryCode(t *testing.T) {
	c := newConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"default":{"geoMapData":[]}}`))
	})

	points, err := c.FetchByCountry(context.Background(), "nothing", []string{"MX", "CR", "ES"})

	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "CR", points[0].Country)
	assert.Equal(t, "ES", points[1].Country)
	assert.Equal(t, "MX", points[2].Country)
}
