package analysis

import (
	"context"
	"errors"
	"math"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RaindropFacade wires acquisition, the binning engine and the figure
// builder into one chart build.
type RaindropFacade struct {
	Chart     models.MChartConfig
	Source    interfaces.IDataSource
	Engine    *RaindropEngine
	Figures   *FigureBuilder
	Scheduler *utils.MarketScheduler
	Logger    *logger.Logger

	// Now stamps UpdatedAt on responses.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

func NewRaindropFacade(chart models.MChartConfig, source interfaces.IDataSource, scheduler *utils.MarketScheduler, log *logger.Logger) *RaindropFacade {
	return &RaindropFacade{
		Chart:     chart,
		Source:    source,
		Engine:    NewRaindropEngine(chart.VolumeScale),
		Figures:   NewFigureBuilder(chart.Height, chart.Template),
		Scheduler: scheduler,
		Logger:    log,
		Now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// Sources lists the acquisition sources in fallback order.
func (f *RaindropFacade) Sources() []string {
	if named, ok := f.Source.(interface{ Names() []string }); ok {
		return named.Names()
	}
	return []string{f.Source.Name()}
}

// -----------------------------------------------------------------------------

// Validate rejects a request before any acquisition happens.
func (f *RaindropFacade) Validate(req models.MChartRequest) error {
	if req.Symbol == "" {
		return helpers.NewMissingParameterError("ticker")
	}
	if req.Start.IsZero() {
		return helpers.NewMissingParameterError("start")
	}
	if req.End.IsZero() {
		return helpers.NewMissingParameterError("end")
	}
	if req.Interval == "" {
		return helpers.NewMissingParameterError("interval")
	}
	if !req.End.After(req.Start) {
		return helpers.NewValidationError("end %s must be after start %s",
			req.End.Format(time.DateOnly), req.Start.Format(time.DateOnly))
	}
	if _, ok := utils.IntervalDuration(req.Interval); !ok {
		return helpers.NewValidationError("unsupported interval '%s'", req.Interval)
	}

	minWidth := utils.BinWidth(f.Chart.MinBinMinutes)
	maxWidth := utils.BinWidth(f.Chart.MaxBinMinutes)
	if req.BinWidth < minWidth || req.BinWidth > maxWidth {
		return helpers.NewValidationError("bin size %s outside [%s, %s]", req.BinWidth, minWidth, maxWidth)
	}
	if req.Margin < 0 || math.IsNaN(req.Margin) || math.IsInf(req.Margin, 0) {
		return helpers.NewValidationError("margin must be a non-negative number, got %v", req.Margin)
	}
	return nil
}

// -----------------------------------------------------------------------------

// BuildChart fetches the bars of req and turns them into a chart response.
func (f *RaindropFacade) BuildChart(ctx context.Context, req models.MChartRequest) (*models.MChartResponse, error) {
	if err := f.Validate(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := f.Logger.With("request_id", requestID)
	started := time.Now()

	// 1. Acquisition
	bars, err := f.Source.FetchBars(ctx, models.MBarRequest{
		Symbol:   req.Symbol,
		Start:    req.Start,
		End:      req.End,
		Interval: req.Interval,
	})
	if err != nil {
		log.Error("Acquisition failed for %s: %v", req.Symbol, err)
		return nil, err
	}
	if len(bars) == 0 {
		return nil, helpers.NewNoDataError(req.Symbol, req.Start, req.End, nil)
	}

	// 2. Binning
	raindrop, err := f.Engine.Build(req.Symbol, bars, req.BinWidth, req.Margin)
	if err != nil {
		var noData *helpers.NoDataError
		if errors.As(err, &noData) {
			return nil, helpers.NewNoDataError(req.Symbol, req.Start, req.End, err)
		}
		return nil, err
	}

	// 3. Rendering
	resp := &models.MChartResponse{
		RequestID: requestID,
		Symbol:    req.Symbol,
		Raindrop:  raindrop,
		Figure:    f.Figures.Build(raindrop, f.session(req.Symbol, raindrop)),
		UpdatedAt: f.Now(),
	}
	last, _ := LastCandle(raindrop)
	resp.OHLC = last

	headline, err := Headline(raindrop)
	if err != nil {
		resp.Warning = err.Error()
		log.Warning("%s", resp.Warning)
	} else {
		resp.VWAPOpen = &headline.VWAPOpen
		resp.VWAPClose = &headline.VWAPClose
	}
	resp.Metrics = BuildMetrics(resp)

	log.Info("Built %s: %d bars -> %d bins, %d ticks in %s",
		req.Symbol, len(bars), len(raindrop.Candles), len(raindrop.Ticks), time.Since(started).Round(time.Millisecond))
	return resp, nil
}

// -----------------------------------------------------------------------------

func (f *RaindropFacade) session(symbol string, r *models.MRaindrop) [2]float64 {
	if f.Scheduler == nil || len(r.Candles) == 0 {
		return DefaultSession
	}
	open, close, ok := f.Scheduler.CalendarFor(symbol).SessionHours(r.Candles[0].Start)
	if !ok {
		return DefaultSession
	}
	return [2]float64{open, close}
}

// -----------------------------------------------------------------------------

// BuildMetrics renders the three headline metrics of the dashboard.
func BuildMetrics(resp *models.MChartResponse) []models.MMetric {
	vwap := models.MMetric{Label: "VWAP (Current vs Previous)", Value: "n/a", Delta: "n/a"}
	if resp.VWAPOpen != nil && resp.VWAPClose != nil {
		vwap.Value = FormatPrice(*resp.VWAPClose)
		vwap.Delta = FormatDelta(*resp.VWAPClose - *resp.VWAPOpen)
	}

	price := models.MMetric{
		Label: "Current Prices (Close vs Open)",
		Value: FormatPrice(resp.OHLC.Close),
		Delta: FormatDelta(resp.OHLC.Close - resp.OHLC.Open),
	}

	updated := models.MMetric{Label: "Last Update", Value: resp.UpdatedAt.Truncate(time.Second).Format(time.DateTime)}

	return []models.MMetric{vwap, price, updated}
}

// -----------------------------------------------------------------------------

// FormatPrice rounds v to cents, e.g. "101.33$".
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "$"
}

// -----------------------------------------------------------------------------

// FormatDelta is FormatPrice with an explicit sign for positive values.
func FormatDelta(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "$"
	}
	return d.StringFixed(2) + "$"
}
