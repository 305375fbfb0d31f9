package models

import (
	"fmt"
	"strings"

	"github.com/trendpulse/trendservice/internal/trend"
)

// allowedWindowDays is the enum from spec.md §3: 7, 30, 90, or 365.
var allowedWindowDays = map[int]bool{7: true, 30: true, 90: true, 365: true}

const (
	keywordMinLen    = 2
	keywordMaxLen    = 60
	baselineDaysMin  = 30
	baselineDaysMax  = 1825
	totalDaysMax     = 1825
)

// TrendQueryRequest is the submit-query request body from spec.md §6.
type TrendQueryRequest struct {
	Keyword      string `json:"keyword"`
	Country      string `json:"country"`
	WindowDays   int    `json:"window_days"`
	BaselineDays int    `json:"baseline_days"`
}

// Validate normalizes the request in place (trimmed keyword, upper-cased
// country) and checks it, returning nil if it is valid or an error
// describing the first violation found. This is outer
// framing, not engine logic: a validation failure never reaches the engine.
func (r *TrendQueryRequest) Validate() error {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if len(r.Keyword) < keywordMinLen || len(r.Keyword) > keywordMaxLen {
		return fmt.Errorf("keyword must be %d-%d characters", keywordMinLen, keywordMaxLen)
	}

	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	if !trend.IsSupportedCountry(r.Country) {
		return fmt.Errorf("country must be one of %v", trend.SupportedCountries)
	}

	if !allowedWindowDays[r.WindowDays] {
		return fmt.Errorf("window_days must be one of 7, 30, 90, 365")
	}

	if r.BaselineDays < baselineDaysMin || r.BaselineDays > baselineDaysMax {
		return fmt.Errorf("baseline_days must be %d-%d", baselineDaysMin, baselineDaysMax)
	}
	if r.BaselineDays < r.WindowDays {
		return fmt.Errorf("baseline_days must be >= window_days")
	}
	if r.WindowDays+r.BaselineDays > totalDaysMax {
		return fmt.Errorf("window_days + baseline_days must be <= %d", totalDaysMax)
	}

	return nil
}

// ToParams converts a validated request to the engine's input type.
func (r TrendQueryRequest) ToParams() trend.Params {
	return trend.Params{
		Keyword:      r.Keyword,
		Country:      r.Country,
		WindowDays:   r.WindowDays,
		BaselineDays: r.BaselineDays,
	}
}

// CountriesResponse lists the fixed country-comparison set, served by the
// auxiliary countries endpoint (out of the engine's own scope).
type CountriesResponse struct {
	Countries []string `json:"countries"`
}
