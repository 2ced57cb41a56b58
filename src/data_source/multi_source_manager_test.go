package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
)

type stubSource struct {
	name  string
	bars  []models.MBar
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchBars(ctx context.Context, req models.MBarRequest) ([]models.MBar, error) {
	s.calls++
	return s.bars, s.err
}

func oneBar() []models.MBar {
	return []models.MBar{{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1, Volume: 10}}
}

func TestFallbackOrder(t *testing.T) {
	failing := &stubSource{name: "yahoo", err: helpers.NewDataSourceError("yahoo", errors.New("down"))}
	empty := &stubSource{name: "cache"}
	good := &stubSource{name: "files", bars: oneBar()}
	unused := &stubSource{name: "spare", bars: oneBar()}

	m := NewMultiSourceManager([]interfaces.IDataSource{failing, empty, good, unused}, logger.NewLogger("MultiSourceTest"))
	bars, err := m.FetchBars(context.Background(), models.MBarRequest{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars", len(bars))
	}
	if failing.calls != 1 || empty.calls != 1 || good.calls != 1 || unused.calls != 0 {
		t.Errorf("unexpected call pattern: %d %d %d %d", failing.calls, empty.calls, good.calls, unused.calls)
	}
}

func TestAllFailingReturnsError(t *testing.T) {
	m := NewMultiSourceManager([]interfaces.IDataSource{
		&stubSource{name: "a", err: helpers.NewDataSourceError("a", errors.New("x"))},
		&stubSource{name: "b"},
	}, logger.NewLogger("MultiSourceTest"))

	_, err := m.FetchBars(context.Background(), models.MBarRequest{Symbol: "AAPL"})
	var dsErr *helpers.DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
}

func TestAllEmptyIsNotAnError(t *testing.T) {
	m := NewMultiSourceManager([]interfaces.IDataSource{&stubSource{name: "a"}}, logger.NewLogger("MultiSourceTest"))
	bars, err := m.FetchBars(context.Background(), models.MBarRequest{Symbol: "AAPL"})
	if err != nil || len(bars) != 0 {
		t.Fatalf("bars=%v err=%v", bars, err)
	}
}

func TestAddRemoveSources(t *testing.T) {
	m := NewMultiSourceManager(nil, logger.NewLogger("MultiSourceTest"))
	if err := m.AddSource(&stubSource{name: "a"}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := m.AddSource(&stubSource{name: "b"}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := m.AddSource(&stubSource{name: "a"}); err == nil {
		t.Errorf("duplicate source accepted")
	}
	if err := m.RemoveSource("a"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if names := m.Names(); len(names) != 1 || names[0] != "b" {
		t.Errorf("names = %v", names)
	}
	if _, err := m.GetSource("a"); err == nil {
		t.Errorf("removed source still reachable")
	}
	if err := m.RemoveSource("missing"); err == nil {
		t.Errorf("removing unknown source should fail")
	}
}
