package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/network"
)

const chartFixture = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","exchangeTimezoneName":"America/New_York","gmtoffset":-18000},
  "timestamp":[1704897060,1704897000,1704897120,1704897180],
  "indicators":{"quote":[{
    "open":  [101.0, 100.0, null, 102.0],
    "high":  [102.0, 101.0, 103.0, 103.0],
    "low":   [100.5,  99.5, 101.0, 101.5],
    "close": [101.5, 100.5, 102.0, 102.5],
    "volume":[2000,  1000,  500,   -1]
  }]}
}],"error":null}}`

func newSource(t *testing.T, handler http.HandlerFunc) *YahooFinanceSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	nm := network.NewAsyncNetworkManager(models.MNetworkConfig{RequestTimeout: 2}, logger.NewLogger("YahooTest"))
	return NewYahooFinanceSource(models.MSourceConfig{Name: "yahoo", Type: "yahoo", BaseURL: srv.URL}, nm)
}

func dayRequest(t *testing.T) models.MBarRequest {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, ny)
	return models.MBarRequest{Symbol: "AAPL", Start: start, End: start.AddDate(0, 0, 1), Interval: "1m"}
}

func TestFetchBarsCleansAndSorts(t *testing.T) {
	req := dayRequest(t)
	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("interval") != "1m" || q.Get("includePrePost") != "false" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("period1") != "1704862800" {
			t.Errorf("period1 = %s", q.Get("period1"))
		}
		w.Write([]byte(chartFixture))
	})

	bars, err := src.FetchBars(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2 (null and negative volume rows dropped)", len(bars))
	}
	if bars[0].Open != 100.0 || bars[1].Open != 101.0 {
		t.Errorf("bars not sorted: %+v", bars)
	}
	if got := bars[0].Timestamp.Format("15:04 MST"); got != "09:30 EST" {
		t.Errorf("timestamp not in exchange timezone: %s", got)
	}
	if bars[0].Symbol != "AAPL" {
		t.Errorf("symbol not set: %+v", bars[0])
	}
}

func TestFetchBarsEmptyDay(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},"indicators":{"quote":[{}]}}],"error":null}}`))
	})

	bars, err := src.FetchBars(context.Background(), dayRequest(t))
	if err != nil {
		t.Fatalf("empty day should not fail: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected no bars, got %d", len(bars))
	}
}

func TestFetchBarsProviderError(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := src.FetchBars(context.Background(), dayRequest(t))
	var dsErr *helpers.DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
}
