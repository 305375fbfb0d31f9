// Package scoring implements the pure function that turns a value series
// into a trend score, its three normalized signals, and a set of
// human-readable explanation lines.
package scoring

import (
	"fmt"
	"math"
)

// Signals holds the three normalized scalars combined into TrendScore.
type Signals struct {
	Growth7vs30   float64 `json:"growth_7_vs_30"`
	Slope14d      float64 `json:"slope_14d"`
	RecentPeak30d float64 `json:"recent_peak_30d"`
}

// Result is the full output of Score.
type Result struct {
	TrendScore   float64  `json:"trend_score"`
	Signals      Signals  `json:"signals"`
	Explanations []string `json:"explain"`
}

// Score computes the trend score for an ordered series of integer values in
// [0,100]. keyword and country are used only to compose the explanation
// lines; they do not affect the numeric fields. The function is pure: equal
// inputs always produce equal outputs.
func Score(series []int, keyword, country string) Result {
	growth := growth7vs30(series)
	slope := slope14d(series)
	peak := recentPeak30d(series)

	g := clamp((growth-growthAnchorLow)/(growthAnchorHigh-growthAnchorLow), 0, 1)
	s := clamp((slope+slopeAnchor)/1.0, 0, 1)
	p := clamp(peak, 0, 1)

	combined := weightGrowth*g + weightSlope*s + weightPeak*p
	trendScore := 100 * clamp(combined, 0, 1)

	return Result{
		TrendScore: round(trendScore, 2),
		Signals: Signals{
			Growth7vs30:   round(growth, 2),
			Slope14d:      round(slope, 4),
			RecentPeak30d: round(peak, 2),
		},
		Explanations: explain(growth, slope, peak, country),
	}
}

// growth7vs30 is avg(last 7)/avg(last 30). A zero 30-window average means the
// window carries no signal at all (every value in it, and therefore in the
// last-7 subset, is zero) and growth degenerates to 0 rather than a neutral
// ratio. An empty window (degenerate zero-length series) is neutral.
func growth7vs30(series []int) float64 {
	last30 := lastN(series, growthLongWindow)
	last7 := lastN(series, growthShortWindow)
	if len(last30) == 0 || len(last7) == 0 {
		return 1.0
	}
	avg30 := mean(last30)
	if avg30 == 0 {
		return 0.0
	}
	return mean(last7) / avg30
}

// slope14d is the OLS regression slope of the last 14 values against integer
// time indices, divided by the 14-window mean so the result is scale-free.
// A series shorter than the 14-point window has slope 0.
func slope14d(series []int) float64 {
	window := lastN(series, slopeWindow)
	n := len(window)
	if n < slopeWindow {
		return 0.0
	}
	m := mean(window)
	if m == 0 {
		return 0.0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range window {
		x := float64(i)
		y := float64(v)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0.0
	}
	slope := (nf*sumXY - sumX*sumY) / denom
	return slope / m
}

// recentPeak30d is max(last 30)/100, already normalized to [0,1].
func recentPeak30d(series []int) float64 {
	window := lastN(series, peakWindow)
	if len(window) == 0 {
		return 0.0
	}
	maxV := window[0]
	for _, v := range window[1:] {
		if v > maxV {
			maxV = v
		}
	}
	return float64(maxV) / 100.0
}

func explain(growth, slope, peak float64, country string) []string {
	return []string{
		growthExplanation(growth),
		slopeExplanation(slope),
		peakExplanation(peak),
		fmt.Sprintf("country: %s", country),
	}
}

func growthExplanation(growth float64) string {
	pct := math.Abs(growth-1.0) * 100
	switch {
	case growth > growthStableHigh:
		return fmt.Sprintf("grew %.0f%%", pct)
	case growth < growthStableLow:
		return fmt.Sprintf("fell %.0f%%", pct)
	default:
		return "stable"
	}
}

func slopeExplanation(slope float64) string {
	switch {
	case slope > slopeFlatThreshold:
		return "positive"
	case slope < -slopeFlatThreshold:
		return "negative"
	default:
		return "flat"
	}
}

func peakExplanation(peak float64) string {
	pct := peak * 100
	switch {
	case peak > peakHighThreshold:
		return fmt.Sprintf("high (%.0f%%)", pct)
	case peak >= peakModerateThreshold:
		return fmt.Sprintf("moderate (%.0f%%)", pct)
	default:
		return fmt.Sprintf("low (%.0f%%)", pct)
	}
}

func lastN(series []int, n int) []int {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
