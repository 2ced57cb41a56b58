package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"raindrop-charts/src/config"
	"raindrop-charts/src/helpers"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"
)

// -----------------------------------------------------------------------------

// ChartQuery is a dashboard request before defaults are applied. Zero values
// mean "use the default".
type ChartQuery struct {
	Ticker   string
	Company  string
	Date     string // YYYY-MM-DD in the exchange timezone
	Bin      int    // minutes
	Margin   *float64
	Interval string
}

// -----------------------------------------------------------------------------

// Resolver turns dashboard queries into explicit chart requests. This is the
// only place where "today" enters a request.
type Resolver struct {
	Chart     models.MChartConfig
	Interval  string
	Catalog   []models.MTicker
	Scheduler *utils.MarketScheduler
}

// -----------------------------------------------------------------------------

// Resolve fills defaults and returns the request together with the trading
// date it covers.
func (r *Resolver) Resolve(q ChartQuery) (models.MChartRequest, time.Time, error) {
	symbol, err := r.symbol(q)
	if err != nil {
		return models.MChartRequest{}, time.Time{}, err
	}

	loc := r.Scheduler.Location(symbol)
	var date time.Time
	if q.Date == "" {
		date = r.Scheduler.DefaultDate(symbol)
	} else {
		date, err = time.ParseInLocation(time.DateOnly, q.Date, loc)
		if err != nil {
			return models.MChartRequest{}, time.Time{}, helpers.NewValidationError("date '%s' is not YYYY-MM-DD", q.Date)
		}
	}

	bin := q.Bin
	if bin == 0 {
		bin = r.Chart.DefaultBinMinutes
	}
	margin := r.Chart.DefaultMargin
	if q.Margin != nil {
		margin = *q.Margin
	}
	interval := q.Interval
	if interval == "" {
		interval = r.Interval
	}

	return models.MChartRequest{
		Symbol:   symbol,
		Start:    date,
		End:      date.AddDate(0, 0, 1),
		Interval: interval,
		BinWidth: utils.BinWidth(bin),
		Margin:   margin,
	}, date, nil
}

// -----------------------------------------------------------------------------

func (r *Resolver) symbol(q ChartQuery) (string, error) {
	if q.Ticker != "" {
		if sym, ok := config.ResolveTicker(r.Catalog, q.Ticker); ok {
			return sym, nil
		}
		return strings.ToUpper(strings.TrimSpace(q.Ticker)), nil
	}
	if q.Company != "" {
		if sym, ok := config.ResolveTicker(r.Catalog, q.Company); ok {
			return sym, nil
		}
		return "", helpers.NewValidationError("unknown company '%s'", q.Company)
	}
	return "", helpers.NewMissingParameterError("ticker")
}

// -----------------------------------------------------------------------------

// queryFromValues reads a ChartQuery from URL parameters.
func queryFromValues(get func(string) string) (ChartQuery, error) {
	q := ChartQuery{
		Ticker:   get("ticker"),
		Company:  get("company"),
		Date:     get("date"),
		Interval: get("interval"),
	}

	if raw := get("bin"); raw != "" {
		bin, err := strconv.Atoi(raw)
		if err != nil {
			return q, helpers.NewValidationError("bin '%s' is not a whole number of minutes", raw)
		}
		q.Bin = bin
	}
	if raw := get("margin"); raw != "" {
		margin, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, helpers.NewValidationError("margin '%s' is not a number", raw)
		}
		q.Margin = &margin
	}
	return q, nil
}

// -----------------------------------------------------------------------------

func queryFromCommand(cmd models.MSubscribeCommand) ChartQuery {
	return ChartQuery{
		Ticker:   cmd.Ticker,
		Company:  cmd.Company,
		Date:     cmd.Date,
		Bin:      cmd.Bin,
		Margin:   cmd.Margin,
		Interval: cmd.Interval,
	}
}

// -----------------------------------------------------------------------------

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch helpers.ErrorKind(err) {
	case helpers.KindMissingParameter, helpers.KindValidation:
		return http.StatusBadRequest
	case helpers.KindNoData, helpers.KindAggregationEmpty:
		return http.StatusNotFound
	case helpers.KindDataSource, helpers.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
