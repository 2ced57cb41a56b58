package models

import "encoding/json"

// MFigure is a plotly-compatible chart description.
type MFigure struct {
	Data   []MTrace               `json:"data"`
	Layout map[string]interface{} `json:"layout"`
}

// MTrace holds the attributes shared by every raindrop trace. Type specific
// attributes (violin side, candlestick line colors...) live in Extra and are
// flattened into the trace object when marshalled.
type MTrace struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	X           []interface{}          `json:"x"`
	Y           []float64              `json:"y,omitempty"`
	Open        []float64              `json:"open,omitempty"`
	High        []float64              `json:"high,omitempty"`
	Low         []float64              `json:"low,omitempty"`
	Close       []float64              `json:"close,omitempty"`
	XAxis       string                 `json:"xaxis,omitempty"`
	YAxis       string                 `json:"yaxis,omitempty"`
	LegendGroup string                 `json:"legendgroup,omitempty"`
	ShowLegend  bool                   `json:"showlegend"`
	Extra       map[string]interface{} `json:"-"`
}

// -----------------------------------------------------------------------------

func (t MTrace) MarshalJSON() ([]byte, error) {
	type plain MTrace
	base, err := json.Marshal(plain(t))
	if err != nil || len(t.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]interface{})
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range t.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
