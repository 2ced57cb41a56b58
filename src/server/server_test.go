package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"

	"github.com/gorilla/websocket"
	_ "time/tzdata"
)

type fakeService struct {
	mu   sync.Mutex
	err  error
	reqs []models.MChartRequest
}

func (f *fakeService) BuildChart(ctx context.Context, req models.MChartRequest) (*models.MChartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.MChartResponse{
		RequestID: "req-1",
		Symbol:    req.Symbol,
		Figure:    &models.MFigure{},
		Metrics:   []models.MMetric{{Label: "Last Update", Value: "2024-01-09 16:00:00"}},
	}, nil
}

func (f *fakeService) Sources() []string { return []string{"fake"} }

func (f *fakeService) last() models.MChartRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

// -----------------------------------------------------------------------------

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name: "raindrop",
		Host: "127.0.0.1",
		Port: 8501,
		DataSource: models.MDataSourceConfig{
			Interval: "1m",
		},
		Chart: models.MChartConfig{
			DefaultBinMinutes: 30,
			MinBinMinutes:     5,
			MaxBinMinutes:     1440,
			DefaultMargin:     0.1,
			RefreshSeconds:    1,
			RefreshLimit:      2,
		},
	}
}

// testScheduler pins the NYSE to the weekday calendar so no exchange data is
// needed.
func testScheduler(now time.Time) *utils.MarketScheduler {
	sched := utils.NewMarketScheduler(logger.NewLogger("SchedulerTest"))
	sched.Calendars[utils.MICForSymbol("AAPL")] = utils.NewFallbackCalendar()
	sched.Now = func() time.Time { return now }
	return sched
}

func newTestServer(t *testing.T, svc *fakeService, now time.Time) *FastAPIServer {
	t.Helper()
	catalog := []models.MTicker{
		{Company: "Apple Inc.", Ticker: "AAPL"},
		{Company: "Microsoft Corporation", Ticker: "MSFT"},
	}
	s := NewFastAPIServer(testConfig(), svc, catalog, testScheduler(now), logger.NewLogger("ServerTest"))
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	s := newTestServer(t, &fakeService{}, time.Now())

	rec := get(t, s.Handler(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	var health struct {
		Status  string   `json:"status"`
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || len(health.Sources) != 1 || health.Sources[0] != "fake" {
		t.Errorf("unexpected health %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	rec = get(t, s.Handler(), "/api/config")
	var cfg map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg["default_bin_minutes"] != float64(30) || cfg["interval"] != "1m" {
		t.Errorf("unexpected config %v", cfg)
	}
}

func TestTickersAndIndex(t *testing.T) {
	s := newTestServer(t, &fakeService{}, time.Now())

	rec := get(t, s.Handler(), "/api/tickers")
	var tickers []models.MTicker
	if err := json.Unmarshal(rec.Body.Bytes(), &tickers); err != nil {
		t.Fatalf("decode tickers: %v", err)
	}
	if len(tickers) != 2 || tickers[0].Ticker != "AAPL" {
		t.Errorf("unexpected tickers %+v", tickers)
	}

	rec = get(t, s.Handler(), "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "plotly") {
		t.Errorf("dashboard page not served: %d", rec.Code)
	}
}

func TestRaindropEndpoint(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, time.Now())

	rec := get(t, s.Handler(), "/api/raindrop?company=Apple%20Inc.&date=2024-01-09&bin=15&margin=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.MChartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Symbol != "AAPL" {
		t.Errorf("symbol = %q", resp.Symbol)
	}

	req := svc.last()
	loc := newYork(t)
	if !req.Start.Equal(time.Date(2024, 1, 9, 0, 0, 0, 0, loc)) || !req.End.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, loc)) {
		t.Errorf("unexpected range %s - %s", req.Start, req.End)
	}
	if req.BinWidth != 15*time.Minute || req.Margin != 0 || req.Interval != "1m" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestRaindropEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"missing ticker", "/api/raindrop", nil, http.StatusBadRequest},
		{"bad bin", "/api/raindrop?ticker=AAPL&bin=ten", nil, http.StatusBadRequest},
		{"bad date", "/api/raindrop?ticker=AAPL&date=09/01/2024", nil, http.StatusBadRequest},
		{"unknown company", "/api/raindrop?company=Nope", nil, http.StatusBadRequest},
		{"no data", "/api/raindrop?ticker=AAPL", helpers.NewNoDataError("AAPL", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), nil), http.StatusNotFound},
		{"source down", "/api/raindrop?ticker=AAPL", helpers.NewDataSourceError("yahoo", errors.New("fetch failed")), http.StatusBadGateway},
		{"internal", "/api/raindrop?ticker=AAPL", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeService{err: tc.err}, time.Now())
			rec := get(t, s.Handler(), tc.target)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" || body["kind"] == "" {
				t.Errorf("error body incomplete: %v", body)
			}
		})
	}
}

// -----------------------------------------------------------------------------

func TestResolverDefaults(t *testing.T) {
	loc := newYork(t)
	// Wednesday afternoon; previous trading day is Tuesday
	now := time.Date(2024, 1, 10, 14, 0, 0, 0, loc)
	r := &Resolver{
		Chart:     testConfig().Chart,
		Interval:  "1m",
		Catalog:   []models.MTicker{{Company: "Apple Inc.", Ticker: "AAPL"}},
		Scheduler: testScheduler(now),
	}

	req, date, err := r.Resolve(ChartQuery{Ticker: "aapl"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := time.Date(2024, 1, 9, 0, 0, 0, 0, loc)
	if !date.Equal(want) || !req.Start.Equal(want) {
		t.Errorf("default date = %s, want %s", date, want)
	}
	if req.Symbol != "AAPL" || req.BinWidth != 30*time.Minute || req.Margin != 0.1 {
		t.Errorf("defaults not applied: %+v", req)
	}

	// Monday resolves to the previous Friday
	r.Scheduler.Now = func() time.Time { return time.Date(2024, 1, 8, 10, 0, 0, 0, loc) }
	_, date, err = r.Resolve(ChartQuery{Company: "Apple Inc."})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := time.Date(2024, 1, 5, 0, 0, 0, 0, loc); !date.Equal(want) {
		t.Errorf("monday default = %s, want %s", date, want)
	}

	if _, _, err := r.Resolve(ChartQuery{}); !helpers.IsParameterError(err) {
		t.Errorf("expected parameter error, got %v", err)
	}
}

func TestStatusForError(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          helpers.NewMissingParameterError("ticker"),
		http.StatusNotFound:            helpers.NewNoDataError("X", time.Time{}, time.Time{}, nil),
		http.StatusBadGateway:          helpers.NewNetworkError("down", nil),
		http.StatusInternalServerError: errors.New("boom"),
	}
	for want, err := range cases {
		if got := statusForError(err); got != want {
			t.Errorf("statusForError(%v) = %d, want %d", err, got, want)
		}
	}
}

// -----------------------------------------------------------------------------

func dialWS(t *testing.T, s *FastAPIServer) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.MChartMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg models.MChartMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocketSubscribe(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, time.Date(2024, 1, 10, 14, 0, 0, 0, newYork(t)))
	conn := dialWS(t, s)

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Ticker: "MSFT", Date: "2024-01-05", Bin: 60}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "INITIAL" || msg.Chart == nil || msg.Chart.Symbol != "MSFT" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if req := svc.last(); req.BinWidth != time.Hour {
		t.Errorf("bin not forwarded: %s", req.BinWidth)
	}

	// A past date is never live, so no updates follow.
	conn.SetReadDeadline(time.Now().Add(1500 * time.Millisecond))
	var extra models.MChartMessage
	if err := conn.ReadJSON(&extra); err == nil {
		t.Errorf("unexpected update for a closed session: %+v", extra)
	}
}

func TestWebSocketLiveRefresh(t *testing.T) {
	loc := newYork(t)
	svc := &fakeService{}
	// Wednesday 11:00, market open
	s := newTestServer(t, svc, time.Date(2024, 1, 10, 11, 0, 0, 0, loc))
	conn := dialWS(t, s)

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Ticker: "AAPL", Date: "2024-01-10"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "INITIAL" {
		t.Fatalf("expected INITIAL, got %+v", msg)
	}
	for want := 1; want <= 2; want++ {
		msg := readMessage(t, conn)
		if msg.Type != "UPDATE" || msg.Refresh != want {
			t.Fatalf("expected UPDATE %d, got %+v", want, msg)
		}
	}
}

func TestWebSocketErrors(t *testing.T) {
	s := newTestServer(t, &fakeService{}, time.Now())
	conn := dialWS(t, s)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "ERROR" || msg.Kind != helpers.KindValidation {
		t.Errorf("expected validation error, got %+v", msg)
	}

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "ERROR" || msg.Kind != helpers.KindMissingParameter {
		t.Errorf("expected missing parameter error, got %+v", msg)
	}
}

func TestDroppedClientIgnoresCommands(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, time.Date(2024, 1, 10, 11, 0, 0, 0, newYork(t)))

	client := newClient("dropped", s, nil)
	s.register <- client
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-client.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("client was not closed on shutdown")
	}

	commands := []string{
		`{"command":"bogus"}`,
		`{not json`,
		`{"command":"subscribe","ticker":"AAPL","date":"2024-01-10"}`,
		`{"command":"unsubscribe"}`,
	}
	for _, cmd := range commands {
		s.HandleClientMessage(client, []byte(cmd))
	}
	client.trySend(errorMessage(errors.New("late")))

	if n := len(client.send); n != 0 {
		t.Errorf("dropped client queued %d messages", n)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.reqs) != 0 {
		t.Errorf("dropped client started a refresh loop: %+v", svc.reqs)
	}
}

func TestDropEndsRunningRefresh(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, time.Date(2024, 1, 10, 11, 0, 0, 0, newYork(t)))

	client := newClient("live", s, nil)
	s.register <- client
	s.HandleClientMessage(client, []byte(`{"command":"subscribe","ticker":"AAPL","date":"2024-01-10"}`))

	select {
	case msg := <-client.send:
		if m, ok := msg.(models.MChartMessage); !ok || m.Type != "INITIAL" {
			t.Fatalf("expected INITIAL, got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no initial chart")
	}

	s.unregister <- client
	select {
	case <-client.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("client was not closed on unregister")
	}
	if ctx, ok := client.subscribe(); ok || ctx != nil {
		t.Errorf("subscribe succeeded after drop")
	}
}
