package core

import (
	"math"

	"raindrop-charts/src/models"
)

// -----------------------------------------------------------------------------

// TypicalPrice is the arithmetic mean of open, high, low and close.
func TypicalPrice(open, high, low, close float64) float64 {
	return (open + high + low + close) / 4
}

// -----------------------------------------------------------------------------

// Notional is the volume-weighting numerator of a bar.
func Notional(volume, typical float64) float64 {
	return volume * typical
}

// -----------------------------------------------------------------------------

// VWAP returns sum(notional)/sum(volume). ok is false when volume is not positive.
func VWAP(notional, volume float64) (vwap float64, ok bool) {
	if volume <= 0 {
		return 0, false
	}
	return notional / volume, true
}

// -----------------------------------------------------------------------------

// ClassifyDrift compares the second-half VWAP against the first-half VWAP.
// Both comparisons are strict so a drift of exactly +/-margin is neutral.
func ClassifyDrift(vwapOpen, vwapClose, margin float64) models.BinColor {
	if vwapClose-vwapOpen > margin {
		return models.ColorUp
	}
	if vwapOpen-vwapClose > margin {
		return models.ColorDown
	}
	return models.ColorNeutral
}

// -----------------------------------------------------------------------------

// CandleDirection colors a volume bar: green when the bin closed above its open.
func CandleDirection(open, close float64) models.BinColor {
	if open < close {
		return models.ColorUp
	}
	return models.ColorDown
}

// -----------------------------------------------------------------------------

// VolumeDivider scales the largest volume to `scale` repetitions.
// Returns 0 when there is no positive volume.
func VolumeDivider(maxVolume, scale float64) float64 {
	if maxVolume <= 0 || scale <= 0 {
		return 0
	}
	return maxVolume / scale
}

// -----------------------------------------------------------------------------

// RepetitionWeight is how many times a bar's typical price is replicated in
// the distribution. Halves round to even.
func RepetitionWeight(volume, divider float64) int {
	if divider <= 0 || volume <= 0 {
		return 0
	}
	return int(math.RoundToEven(volume / divider))
}
