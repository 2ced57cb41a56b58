package models

import "time"

// MChartRequest carries every explicit input of one raindrop build. Defaults
// are resolved by the caller before the request reaches the facade.
type MChartRequest struct {
	Symbol   string        `json:"symbol"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Interval string        `json:"interval"`
	BinWidth time.Duration `json:"bin_width"`
	Margin   float64       `json:"margin"`
}

// MMetric is one dashboard headline value with its delta.
type MMetric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta"`
}

// MChartResponse is what the dashboard surfaces receive.
type MChartResponse struct {
	RequestID string     `json:"request_id"`
	Symbol    string     `json:"symbol"`
	Figure    *MFigure   `json:"figure"`
	Raindrop  *MRaindrop `json:"raindrop"`
	VWAPOpen  *float64   `json:"vwap_open"`
	VWAPClose *float64   `json:"vwap_close"`
	OHLC      MCandle    `json:"ohlc"`
	Metrics   []MMetric  `json:"metrics"`
	Warning   string     `json:"warning,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// -----------------------------------------------------------------------------
// WebSocket messages
// -----------------------------------------------------------------------------

// MSubscribeCommand is sent by dashboard clients over the websocket.
type MSubscribeCommand struct {
	Command  string   `json:"command"` // "subscribe" or "unsubscribe"
	Ticker   string   `json:"ticker"`
	Company  string   `json:"company"`
	Date     string   `json:"date"`   // YYYY-MM-DD
	Bin      int      `json:"bin"`    // minutes
	Margin   *float64 `json:"margin"` // nil selects the configured default
	Interval string   `json:"interval"`
}

// MChartMessage is pushed to websocket clients.
type MChartMessage struct {
	Type    string          `json:"type"` // "INITIAL", "UPDATE" or "ERROR"
	Refresh int             `json:"refresh"`
	Chart   *MChartResponse `json:"chart,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}
