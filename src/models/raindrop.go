package models

import "time"

// BinColor is the drift classification of a bin, expressed as the color the
// chart uses for it.
type BinColor string

const (
	ColorUp      BinColor = "green"
	ColorDown    BinColor = "red"
	ColorNeutral BinColor = "blue"
)

// Half-bin parities
const (
	SplitOpen  = 0
	SplitClose = 1
)

// MTick is one bar projected into the raindrop distribution.
type MTick struct {
	BinStart time.Time `json:"bin_start"`
	Split    int       `json:"split"`
	Typical  float64   `json:"typical"`
	Weight   int       `json:"weight"`
	Color    BinColor  `json:"color"`
}

// MHalfStats summarises the weighted price distribution of one half-bin.
type MHalfStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// MCandle is the aggregated OHLCV record of a bin with positive volume.
type MCandle struct {
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Open      float64       `json:"open"`
	High      float64       `json:"high"`
	Low       float64       `json:"low"`
	Close     float64       `json:"close"`
	Volume    float64       `json:"volume"`
	Bars      int           `json:"bars"`
	VWAPOpen  *float64      `json:"vwap_open"`  // nil when the first half has no volume
	VWAPClose *float64      `json:"vwap_close"` // nil when the second half has no volume
	Color     BinColor      `json:"color"`
	Halves    [2]MHalfStats `json:"halves"`
}

// MVolumeBar is the volume panel entry of a candle.
type MVolumeBar struct {
	Start  time.Time `json:"start"`
	Volume float64   `json:"volume"`
	Color  BinColor  `json:"color"`
}

// MRaindrop is the full output of the binning engine.
type MRaindrop struct {
	Symbol   string        `json:"symbol"`
	BinWidth time.Duration `json:"bin_width"`
	Margin   float64       `json:"margin"`
	Ticks    []MTick       `json:"ticks"`
	Candles  []MCandle     `json:"candles"`
	Volumes  []MVolumeBar  `json:"volumes"`
}

// MHeadline holds the half VWAPs of the most recent bin.
type MHeadline struct {
	VWAPOpen  float64 `json:"vwap_open"`
	VWAPClose float64 `json:"vwap_close"`
}
