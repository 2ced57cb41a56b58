package analysis

import (
	"time"
)

// TimeSeriesResampler assigns timestamps to fixed-width bins and half-bins
// counted from a common origin.
type TimeSeriesResampler struct {
	Origin time.Time
	Width  time.Duration
}

// -----------------------------------------------------------------------------

// NewTimeSeriesResampler anchors the bucket grid at midnight of the first
// timestamp's day, in that timestamp's location.
func NewTimeSeriesResampler(first time.Time, width time.Duration) *TimeSeriesResampler {
	return &TimeSeriesResampler{
		Origin: StartOfDay(first),
		Width:  width,
	}
}

// -----------------------------------------------------------------------------

// BinIndex is the global index of the bin containing t.
func (r *TimeSeriesResampler) BinIndex(t time.Time) int64 {
	return FloorIndex(t.Sub(r.Origin), r.Width)
}

// -----------------------------------------------------------------------------

// HalfIndex is the global index of the half-bin containing t. It counts empty
// half-bins too, so it increases monotonically along the timeline. Doubling
// the elapsed time keeps half boundaries on bin boundaries for odd widths.
func (r *TimeSeriesResampler) HalfIndex(t time.Time) int64 {
	return FloorIndex(2*t.Sub(r.Origin), r.Width)
}

// -----------------------------------------------------------------------------

// Parity is 0 for the first half of a bin and 1 for the second.
func (r *TimeSeriesResampler) Parity(t time.Time) int {
	p := r.HalfIndex(t) % 2
	if p < 0 {
		p += 2
	}
	return int(p)
}

// -----------------------------------------------------------------------------

// BinStart is the opening timestamp of bin idx.
func (r *TimeSeriesResampler) BinStart(idx int64) time.Time {
	return r.Origin.Add(time.Duration(idx) * r.Width)
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the [start, end) of the bin containing t.
func (r *TimeSeriesResampler) CalculateWindowBoundaries(t time.Time) (time.Time, time.Time) {
	start := r.BinStart(r.BinIndex(t))
	return start, start.Add(r.Width)
}

// -----------------------------------------------------------------------------

// FloorIndex is floor(elapsed/step), also for negative elapsed values.
func FloorIndex(elapsed, step time.Duration) int64 {
	idx := int64(elapsed / step)
	if elapsed%step < 0 {
		idx--
	}
	return idx
}

// -----------------------------------------------------------------------------

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
