// Package upstream adapts the trend query engine to the public trends data
// provider: a thin HTTP client exposing the two operations the engine needs
// and owning the provider's wire quirks (epoch timestamps, XSSI-guarded
// bodies, anti-bot HTML pages). It never retries; that policy lives in
// internal/retry.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/trendpulse/trendservice/internal/helpers"
	"github.com/trendpulse/trendservice/internal/pool"
)

// bodyBufPool reuses the byte buffers getJSON reads response bodies into.
// Every query does two upstream round trips, each reading and discarding a
// buffer; pooling avoids a fresh allocation per request under load.
var bodyBufPool = pool.NewBufferPool()

// ErrNoData is returned by FetchSeries when the provider's response parses
// successfully but describes no data points for the keyword. It is distinct
// from a transport or parse failure: the retry envelope retries it like any
// other failure, and once attempts are exhausted the Trend Engine reports it
// as "no data for this keyword" (404) rather than a provider failure.
var ErrNoData = errors.New("provider returned no data for this keyword")

// xssiPrefix guards Google-style JSON APIs against cross-site script
// inclusion; it must be stripped before unmarshaling.
const xssiPrefix = ")]}'"

// Point is one datum of a fetched value series.
type Point struct {
	Date  string // YYYY-MM-DD, UTC
	Value int    // 0-100
}

// CountryPoint is one datum of the cross-country comparison.
type CountryPoint struct {
	Country string
	Value   int
}

// Config configures the upstream HTTP connector.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
}

// DefaultConfig returns reasonable connector defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://trends.google.com/trends/api",
		Timeout:   10 * time.Second,
		UserAgent: "trendpulse/1.0",
	}
}

// Connector is the HTTP adapter to the provider.
type Connector struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New constructs a Connector from Config.
func New(cfg Config) *Connector {
	return &Connector{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
	}
}

type timelineEnvelope struct {
	Default struct {
		TimelineData []struct {
			Time  string `json:"time"`
			Value []int  `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

// FetchSeries returns the ordered, de-duplicated value series for keyword in
// country between start and end (inclusive). Provider timestamps are epoch
// seconds and are normalized to UTC calendar dates.
func (c *Connector) FetchSeries(ctx context.Context, keyword, country string, start, end time.Time) ([]Point, error) {
	q := map[string]string{
		"req":    fmt.Sprintf("keyword=%s&geo=%s&time=%d %d", keyword, country, start.Unix(), end.Unix()),
		"cat":    "0",
		"tz":     "0",
	}

	var envelope timelineEnvelope
	if err := c.getJSON(ctx, "/widgetdata/multiline", q, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Default.TimelineData) == 0 {
		return nil, ErrNoData
	}

	points := make([]Point, 0, len(envelope.Default.TimelineData))
	seen := make(map[string]bool, len(envelope.Default.TimelineData))
	for _, row := range envelope.Default.TimelineData {
		epoch, err := strconv.ParseInt(row.Time, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("provider returned malformed timestamp %q: is not valid JSON: %w", row.Time, err)
		}
		if len(row.Value) == 0 {
			continue
		}
		date := time.Unix(epoch, 0).UTC().Format("2006-01-02")
		if seen[date] {
			continue
		}
		seen[date] = true
		points = append(points, Point{Date: date, Value: clampPercent(row.Value[0])})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	if len(points) == 0 {
		return nil, ErrNoData
	}
	return points, nil
}

type geoMapEnvelope struct {
	Default struct {
		GeoMapData []struct {
			GeoCode string `json:"geoCode"`
			Value   []int  `json:"value"`
		} `json:"geoMapData"`
	} `json:"default"`
}

// FetchByCountry queries the provider once, globally, and filters the result
// to the supplied set of supported country codes. Missing countries get
// value 0. The result is sorted descending by value, ties broken by country
// code.
func (c *Connector) FetchByCountry(ctx context.Context, keyword string, supportedCountries []string) ([]CountryPoint, error) {
	q := map[string]string{
		"req": fmt.Sprintf("keyword=%s&resolution=COUNTRY", keyword),
		"cat": "0",
		"tz":  "0",
	}

	var envelope geoMapEnvelope
	if err := c.getJSON(ctx, "/explore/geomap", q, &envelope); err != nil {
		return nil, err
	}

	values := make(map[string]int, len(supportedCountries))
	for _, row := range envelope.Default.GeoMapData {
		if len(row.Value) == 0 {
			continue
		}
		values[row.GeoCode] = clampPercent(row.Value[0])
	}

	points := make([]CountryPoint, 0, len(supportedCountries))
	for _, code := range supportedCountries {
		points = append(points, CountryPoint{Country: code, Value: values[code]})
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Country < points[j].Country
	})

	return points, nil
}

// getJSON performs the GET, strips the XSSI guard, and decodes into out. An
// HTML-shaped body or a body that fails to decode is reported with wording
// the retry envelope's blocked-response classifier recognizes; the response
// content type is not inspected.
func (c *Connector) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building upstream request: %w", err)
	}
	qs := req.URL.Query()
	for k, v := range query {
		qs.Set(k, v)
	}
	req.URL.RawQuery = qs.Encode()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	buf := bodyBufPool.Get()
	defer bodyBufPool.Put(buf)

	if _, err := io.Copy(buf, resp.Body); err != nil {
		return fmt.Errorf("reading upstream response: %w", err)
	}
	body := buf.Bytes()

	if resp.StatusCode != http.StatusOK {
		if looksLikeHTML(body) {
			return fmt.Errorf("upstream returned status %d with an html anti-bot page (DOCTYPE)", resp.StatusCode)
		}
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	if looksLikeHTML(body) {
		return errors.New("upstream response body is html, not JSON (DOCTYPE detected)")
	}

	body = bytes.TrimPrefix(body, []byte(xssiPrefix))
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("upstream response is not valid JSON: unexpected token while decoding: %w", err)
	}
	return nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return bytes.HasPrefix(bytes.ToUpper(trimmed), []byte("<!DOCTYPE")) || bytes.HasPrefix(trimmed, []byte("<html"))
}

// clampPercent restricts a provider-reported interest value to the
// documented 0-100 scale.
func clampPercent(v int) int {
	return helpers.ClampInt(v, 0, 100)
}
