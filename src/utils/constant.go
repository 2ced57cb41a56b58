package utils

import "time"

// -----------------------------------------------------------------------------

// Chart defaults shared by the config layer and the dashboard surfaces.
const (
	DefaultBinMinutes     = 30
	DefaultMinBinMinutes  = 5
	DefaultMaxBinMinutes  = 24 * 60
	DefaultMargin         = 0.1
	DefaultInterval       = "1m"
	DefaultVolumeScale    = 1000.0
	DefaultRefreshSeconds = 5
	DefaultRefreshLimit   = 100
	DefaultChartHeight    = 800
	DefaultChartTemplate  = "plotly_dark"
)

// -----------------------------------------------------------------------------

// BinWidth converts a minute count to a duration.
func BinWidth(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

// -----------------------------------------------------------------------------

// Acquisition intervals understood by the chart provider.
var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"2m":  2 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"60m": time.Hour,
	"90m": 90 * time.Minute,
	"1h":  time.Hour,
}

// IntervalDuration returns the bar spacing of interval.
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervals[interval]
	return d, ok
}
