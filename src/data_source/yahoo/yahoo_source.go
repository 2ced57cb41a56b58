package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

type YahooFinanceSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	if sourceCfg.BaseURL == "" {
		sourceCfg.BaseURL = DefaultBaseURL
	}
	return &YahooFinanceSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       logger.NewLogger("YahooFinanceSource-" + sourceCfg.Name),
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

// FetchBars downloads the regular-session bars of req.Symbol in
// [req.Start, req.End). Timestamps come back in the exchange timezone.
func (s *YahooFinanceSource) FetchBars(ctx context.Context, req models.MBarRequest) ([]models.MBar, error) {
	params := map[string]string{
		"period1":        strconv.FormatInt(req.Start.Unix(), 10),
		"period2":        strconv.FormatInt(req.End.Unix(), 10),
		"interval":       req.Interval,
		"includePrePost": "false",
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s", strings.TrimRight(s.SourceConfig.BaseURL, "/"), req.Symbol)

	respBytes, err := s.Network.Get(ctx, url, params)
	if err != nil {
		return nil, helpers.NewDataSourceError(s.Name(), fmt.Errorf("network error for %s: %w", req.Symbol, err))
	}

	bars, err := s.parseChartResponse(req.Symbol, respBytes)
	if err != nil {
		return nil, helpers.NewDataSourceError(s.Name(), err)
	}

	// period2 is inclusive on the provider side
	out := bars[:0]
	for _, b := range bars {
		if !b.Timestamp.Before(req.Start) && b.Timestamp.Before(req.End) {
			out = append(out, b)
		}
	}

	if len(out) > 0 {
		s.Logger.Info("Fetched %s: %d valid bars [%s -> %s]", req.Symbol, len(out),
			out[0].Timestamp.Format(time.DateTime), out[len(out)-1].Timestamp.Format(time.DateTime))
	} else {
		s.Logger.Info("Fetched %s: no bars between %s and %s", req.Symbol,
			req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}
	return out, nil
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string `json:"currency"`
				Symbol               string `json:"symbol"`
				ExchangeName         string `json:"exchangeName"`
				Gmtoffset            int    `json:"gmtoffset"`
				Timezone             string `json:"timezone"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				DataGranularity      string `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"`   // Use pointers to handle null
					Low    []*float64 `json:"low"`    // Use pointers to handle null
					Open   []*float64 `json:"open"`   // Use pointers to handle null
					Close  []*float64 `json:"close"`  // Use pointers to handle null
					Volume []*float64 `json:"volume"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MBar, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	// Holidays and weekends come back as a result without timestamps
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		s.Logger.Info("Data alignment error for %s: Mismatched array lengths", symbol)
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.Gmtoffset)

	bars := make([]models.MBar, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			s.Logger.Debug("Invalid OHLCV data received for %s at index %d", symbol, i)
			continue
		}

		closeVal, volume := *quote.Close[i], *quote.Volume[i]
		if closeVal <= 0 || volume < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f, volume=%f", symbol, closeVal, volume)
			continue
		}

		bars = append(bars, models.MBar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).In(loc),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     closeVal,
			Volume:    volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// -----------------------------------------------------------------------------

func exchangeLocation(name string, gmtoffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtoffset != 0 {
		return time.FixedZone("exchange", gmtoffset)
	}
	return time.UTC
}
