package analysis

import (
	"time"

	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"
)

// plotly date format; values are rendered in the bars' own timezone
const plotlyTimeLayout = "2006-01-02 15:04:05"

var (
	rowHeights      = []float64{0.45, 0.45, 0.1}
	verticalSpacing = 0.01
)

// DefaultSession is the NYSE regular session in fractional hours.
var DefaultSession = [2]float64{9.5, 16}

// FigureBuilder renders an MRaindrop into a three-row plotly figure:
// violins, candlesticks and volume bars sharing the time axis.
type FigureBuilder struct {
	Height   int
	Template string
}

// -----------------------------------------------------------------------------

func NewFigureBuilder(height int, template string) *FigureBuilder {
	if height <= 0 {
		height = utils.DefaultChartHeight
	}
	if template == "" {
		template = utils.DefaultChartTemplate
	}
	return &FigureBuilder{Height: height, Template: template}
}

// -----------------------------------------------------------------------------

// Build lays out r. session holds the regular trading hours [open, close)
// that stay visible on the time axis.
func (fb *FigureBuilder) Build(r *models.MRaindrop, session [2]float64) *models.MFigure {
	fig := &models.MFigure{}
	fig.Data = append(fig.Data, fb.violinTraces(r)...)
	fig.Data = append(fig.Data, fb.candlestickTrace(r))
	fig.Data = append(fig.Data, fb.volumeTraces(r)...)
	fig.Layout = fb.layout(r, session)
	return fig
}

// -----------------------------------------------------------------------------

type violinKey struct {
	bin   time.Time
	split int
}

func (fb *FigureBuilder) violinTraces(r *models.MRaindrop) []models.MTrace {
	var order []violinKey
	groups := make(map[violinKey]*models.MTrace)
	colors := make(map[violinKey]models.BinColor)

	for _, tick := range r.Ticks {
		key := violinKey{bin: tick.BinStart, split: tick.Split}
		trace, ok := groups[key]
		if !ok {
			trace = &models.MTrace{}
			groups[key] = trace
			colors[key] = tick.Color
			order = append(order, key)
		}
		x := tick.BinStart.Format(plotlyTimeLayout)
		for i := 0; i < tick.Weight; i++ {
			trace.X = append(trace.X, x)
			trace.Y = append(trace.Y, tick.Typical)
		}
	}

	traces := make([]models.MTrace, 0, len(order))
	for i, key := range order {
		side := "negative"
		if key.split == models.SplitClose {
			side = "positive"
		}
		t := groups[key]
		t.Type = "violin"
		t.Name = "Raindrop"
		t.LegendGroup = "Raindrop"
		t.ShowLegend = i == 0
		t.XAxis = "x"
		t.YAxis = "y"
		t.Extra = map[string]interface{}{
			"side":       side,
			"line":       map[string]interface{}{"color": string(colors[key])},
			"spanmode":   "hard",
			"scalegroup": key.bin.Format(plotlyTimeLayout),
			"scalemode":  "count",
			"points":     false,
			"hoverinfo":  "y",
			"hoveron":    "violins",
			"meanline":   map[string]interface{}{"visible": true, "color": "white"},
		}
		traces = append(traces, *t)
	}
	return traces
}

// -----------------------------------------------------------------------------

func (fb *FigureBuilder) candlestickTrace(r *models.MRaindrop) models.MTrace {
	t := models.MTrace{
		Type:       "candlestick",
		Name:       "OHLC",
		ShowLegend: true,
		XAxis:      "x2",
		YAxis:      "y2",
		Extra: map[string]interface{}{
			"increasing": map[string]interface{}{"line": map[string]interface{}{"color": string(models.ColorUp)}},
			"decreasing": map[string]interface{}{"line": map[string]interface{}{"color": string(models.ColorDown)}},
		},
	}
	for _, c := range r.Candles {
		t.X = append(t.X, c.Start.Format(plotlyTimeLayout))
		t.Open = append(t.Open, c.Open)
		t.High = append(t.High, c.High)
		t.Low = append(t.Low, c.Low)
		t.Close = append(t.Close, c.Close)
	}
	return t
}

// -----------------------------------------------------------------------------

// volumeTraces emits one bar trace per color, green first.
func (fb *FigureBuilder) volumeTraces(r *models.MRaindrop) []models.MTrace {
	var traces []models.MTrace
	for _, color := range []models.BinColor{models.ColorUp, models.ColorDown} {
		t := models.MTrace{
			Type:        "bar",
			Name:        "Volume",
			LegendGroup: "Volume",
			ShowLegend:  len(traces) == 0,
			XAxis:       "x3",
			YAxis:       "y3",
			Extra: map[string]interface{}{
				"marker":       map[string]interface{}{"color": string(color)},
				"texttemplate": "%{y:.2s}",
			},
		}
		for _, v := range r.Volumes {
			if v.Color != color {
				continue
			}
			t.X = append(t.X, v.Start.Format(plotlyTimeLayout))
			t.Y = append(t.Y, v.Volume)
		}
		if len(t.X) > 0 {
			traces = append(traces, t)
		}
	}
	return traces
}

// -----------------------------------------------------------------------------

func (fb *FigureBuilder) layout(r *models.MRaindrop, session [2]float64) map[string]interface{} {
	domains := rowDomains(rowHeights, verticalSpacing)
	rangebreaks := []interface{}{
		map[string]interface{}{"bounds": []float64{session[1], session[0]}, "pattern": "hour"},
	}
	if spansWeekend(r) {
		rangebreaks = append(rangebreaks, map[string]interface{}{"bounds": []string{"sat", "mon"}})
	}

	return map[string]interface{}{
		"title":          map[string]interface{}{"text": r.Symbol},
		"template":       fb.Template,
		"height":         fb.Height,
		"violingap":      0,
		"violingroupgap": 0,
		"uirevision":     "uirevision",
		"xaxis": map[string]interface{}{
			"anchor":         "y",
			"domain":         []float64{0, 1},
			"matches":        "x3",
			"showticklabels": false,
			"rangebreaks":    rangebreaks,
		},
		"xaxis2": map[string]interface{}{
			"anchor":         "y2",
			"domain":         []float64{0, 1},
			"matches":        "x3",
			"showticklabels": false,
			"rangeslider":    map[string]interface{}{"visible": false},
			"rangebreaks":    rangebreaks,
		},
		"xaxis3": map[string]interface{}{
			"anchor":      "y3",
			"domain":      []float64{0, 1},
			"dtick":       r.BinWidth.Milliseconds(),
			"showgrid":    true,
			"title":       map[string]interface{}{"text": "Datetime"},
			"rangebreaks": rangebreaks,
		},
		"yaxis":  map[string]interface{}{"anchor": "x", "domain": domains[0], "title": map[string]interface{}{"text": "Price"}},
		"yaxis2": map[string]interface{}{"anchor": "x2", "domain": domains[1], "title": map[string]interface{}{"text": "Price"}},
		"yaxis3": map[string]interface{}{"anchor": "x3", "domain": domains[2], "title": map[string]interface{}{"text": "Volume"}},
	}
}

// -----------------------------------------------------------------------------

// rowDomains splits [0, 1] vertically, first row on top.
func rowDomains(heights []float64, spacing float64) [][]float64 {
	total := 0.0
	for _, h := range heights {
		total += h
	}
	usable := 1 - spacing*float64(len(heights)-1)

	domains := make([][]float64, len(heights))
	top := 1.0
	for i, h := range heights {
		bottom := top - usable*h/total
		if i == len(heights)-1 {
			bottom = 0
		}
		domains[i] = []float64{bottom, top}
		top = bottom - spacing
	}
	return domains
}

// -----------------------------------------------------------------------------

func spansWeekend(r *models.MRaindrop) bool {
	if len(r.Candles) == 0 {
		return false
	}
	first := StartOfDay(r.Candles[0].Start)
	last := StartOfDay(r.Candles[len(r.Candles)-1].Start)
	return !first.Equal(last)
}
