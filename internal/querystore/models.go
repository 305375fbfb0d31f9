package querystore

import "time"

// Status is a query's position in its lifecycle. Running transitions to
// exactly one of Done or Error; both are terminal.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Params is the validated input to create_running.
type Params struct {
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
}

// Query is the audit record of one logical query.
type Query struct {
	ID           string
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// SeriesPoint is one datum of the scored series, as persisted.
type SeriesPoint struct {
	Date  string
	Value int
}

// CountryPoint is one datum of the cross-country comparison, as persisted.
type CountryPoint struct {
	Country string
	Value   int
}

// ResultInput is the scored outcome to persist alongside a Done query.
type ResultInput struct {
	TrendScore   float64
	GrowthSignal float64
	SlopeSignal  float64
	PeakSignal   float64
	Explanations []string
	SourcesUsed  []string
	Series       []SeriesPoint
	ByCountry    []CountryPoint
}
