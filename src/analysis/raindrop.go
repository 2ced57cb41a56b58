package analysis

import (
	"math"
	"sort"
	"time"

	"raindrop-charts/src/analysis/core"
	"raindrop-charts/src/helpers"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"
)

// RaindropEngine resamples bars into bins, splits every bin into two halves
// and derives candles, volume bars and the weighted tick distribution.
type RaindropEngine struct {
	VolumeScale float64
}

// -----------------------------------------------------------------------------

func NewRaindropEngine(volumeScale float64) *RaindropEngine {
	if volumeScale <= 0 {
		volumeScale = utils.DefaultVolumeScale
	}
	return &RaindropEngine{VolumeScale: volumeScale}
}

// -----------------------------------------------------------------------------

type halfAccumulator struct {
	volume   float64
	notional float64
}

type binAccumulator struct {
	index  int64
	start  time.Time
	open   float64
	high   float64
	low    float64
	close  float64
	volume float64
	bars   int
	halves [2]halfAccumulator
}

// barRecord keeps what the distribution needs once the global volume
// divider is known.
type barRecord struct {
	bin     int // position in the accumulator slice
	split   int
	typical float64
	volume  float64
}

// -----------------------------------------------------------------------------

// CleanBars returns a chronologically sorted copy of bars without entries
// that carry no timestamp or non-finite values.
func CleanBars(bars []models.MBar) []models.MBar {
	cleaned := make([]models.MBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.IsZero() {
			continue
		}
		if !finite(b.Open, b.High, b.Low, b.Close, b.Volume) {
			continue
		}
		cleaned = append(cleaned, b)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Timestamp.Before(cleaned[j].Timestamp)
	})
	return cleaned
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// Build runs the binning pipeline for one symbol.
func (e *RaindropEngine) Build(symbol string, bars []models.MBar, binWidth time.Duration, margin float64) (*models.MRaindrop, error) {
	if binWidth < time.Minute {
		return nil, helpers.NewValidationError("bin width must be at least 1m, got %s", binWidth)
	}
	if margin < 0 || math.IsNaN(margin) {
		return nil, helpers.NewValidationError("margin must be a non-negative number, got %v", margin)
	}

	cleaned := CleanBars(bars)
	if len(cleaned) == 0 {
		return nil, &helpers.NoDataError{RaindropError: helpers.RaindropError{
			Message: "no usable bars for " + symbol,
		}}
	}

	resampler := NewTimeSeriesResampler(cleaned[0].Timestamp, binWidth)

	// 1. Single accumulation pass
	var bins []*binAccumulator
	records := make([]barRecord, 0, len(cleaned))
	maxVolume := 0.0

	for _, b := range cleaned {
		idx := resampler.BinIndex(b.Timestamp)
		if len(bins) == 0 || bins[len(bins)-1].index != idx {
			bins = append(bins, &binAccumulator{
				index: idx,
				start: resampler.BinStart(idx),
				open:  b.Open,
				high:  b.High,
				low:   b.Low,
			})
		}
		acc := bins[len(bins)-1]

		typical := core.TypicalPrice(b.Open, b.High, b.Low, b.Close)
		split := resampler.Parity(b.Timestamp)

		acc.high = math.Max(acc.high, b.High)
		acc.low = math.Min(acc.low, b.Low)
		acc.close = b.Close
		acc.volume += b.Volume
		acc.bars++
		acc.halves[split].volume += b.Volume
		acc.halves[split].notional += core.Notional(b.Volume, typical)

		if b.Volume > maxVolume {
			maxVolume = b.Volume
		}
		records = append(records, barRecord{bin: len(bins) - 1, split: split, typical: typical, volume: b.Volume})
	}

	// 2. Finalize bins
	result := &models.MRaindrop{
		Symbol:   symbol,
		BinWidth: binWidth,
		Margin:   margin,
	}
	colors := make([]models.BinColor, len(bins))
	candlePos := make([]int, len(bins))

	for i, acc := range bins {
		candlePos[i] = -1
		if acc.volume <= 0 {
			continue
		}

		candle := models.MCandle{
			Start:  acc.start,
			End:    acc.start.Add(binWidth),
			Open:   acc.open,
			High:   acc.high,
			Low:    acc.low,
			Close:  acc.close,
			Volume: acc.volume,
			Bars:   acc.bars,
			Color:  models.ColorNeutral,
		}
		if v, ok := core.VWAP(acc.halves[models.SplitOpen].notional, acc.halves[models.SplitOpen].volume); ok {
			candle.VWAPOpen = &v
		}
		if v, ok := core.VWAP(acc.halves[models.SplitClose].notional, acc.halves[models.SplitClose].volume); ok {
			candle.VWAPClose = &v
		}
		if candle.VWAPOpen != nil && candle.VWAPClose != nil {
			candle.Color = core.ClassifyDrift(*candle.VWAPOpen, *candle.VWAPClose, margin)
		}

		colors[i] = candle.Color
		candlePos[i] = len(result.Candles)
		result.Candles = append(result.Candles, candle)
		result.Volumes = append(result.Volumes, models.MVolumeBar{
			Start:  candle.Start,
			Volume: candle.Volume,
			Color:  core.CandleDirection(candle.Open, candle.Close),
		})
	}

	if len(result.Candles) == 0 {
		return nil, helpers.NewAggregationEmptyError(symbol, binWidth)
	}

	// 3. Weighted distribution
	divider := core.VolumeDivider(maxVolume, e.VolumeScale)
	halfPrices := make([][2][]float64, len(result.Candles))
	halfWeights := make([][2][]int, len(result.Candles))

	for _, rec := range records {
		weight := core.RepetitionWeight(rec.volume, divider)
		pos := candlePos[rec.bin]
		if weight == 0 || pos < 0 {
			continue
		}
		result.Ticks = append(result.Ticks, models.MTick{
			BinStart: bins[rec.bin].start,
			Split:    rec.split,
			Typical:  rec.typical,
			Weight:   weight,
			Color:    colors[rec.bin],
		})
		halfPrices[pos][rec.split] = append(halfPrices[pos][rec.split], rec.typical)
		halfWeights[pos][rec.split] = append(halfWeights[pos][rec.split], weight)
	}

	for pos := range result.Candles {
		for split := 0; split < 2; split++ {
			prices := halfPrices[pos][split]
			if len(prices) == 0 {
				continue
			}
			weights := halfWeights[pos][split]
			mean, std := core.WeightedMeanStd(prices, weights)
			lo, hi := core.MinMax(prices)
			count := 0
			for _, w := range weights {
				count += w
			}
			result.Candles[pos].Halves[split] = models.MHalfStats{
				Count: count,
				Mean:  mean,
				Std:   std,
				Min:   lo,
				Max:   hi,
			}
		}
	}

	return result, nil
}

// -----------------------------------------------------------------------------

// Headline returns the half VWAPs of the most recent bin. It fails with an
// IncompleteBinError when that bin has not traded in both halves.
func Headline(r *models.MRaindrop) (models.MHeadline, error) {
	if r == nil || len(r.Candles) == 0 {
		return models.MHeadline{}, helpers.NewAggregationEmptyError("", 0)
	}
	last := r.Candles[len(r.Candles)-1]
	if last.VWAPOpen == nil || last.VWAPClose == nil {
		return models.MHeadline{}, helpers.NewIncompleteBinError(last.Start)
	}
	return models.MHeadline{VWAPOpen: *last.VWAPOpen, VWAPClose: *last.VWAPClose}, nil
}

// -----------------------------------------------------------------------------

// LastCandle returns the most recent bin's OHLC record.
func LastCandle(r *models.MRaindrop) (models.MCandle, bool) {
	if r == nil || len(r.Candles) == 0 {
		return models.MCandle{}, false
	}
	return r.Candles[len(r.Candles)-1], true
}
