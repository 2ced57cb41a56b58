package core

import "math"

// -----------------------------------------------------------------------------

// WeightedMeanStd computes the mean and population standard deviation of
// values where each value counts weights[i] times.
func WeightedMeanStd(values []float64, weights []int) (float64, float64) {
	total := 0
	sum := 0.0
	for i, v := range values {
		if weights[i] <= 0 {
			continue
		}
		total += weights[i]
		sum += v * float64(weights[i])
	}
	if total == 0 {
		return 0, 0
	}
	mean := sum / float64(total)

	varianceSum := 0.0
	for i, v := range values {
		if weights[i] <= 0 {
			continue
		}
		varianceSum += float64(weights[i]) * (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(total))
}

// -----------------------------------------------------------------------------

// MinMax returns the extremes of data, or (0, 0) for an empty slice.
func MinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
